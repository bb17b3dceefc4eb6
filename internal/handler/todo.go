package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/auth"
	"github.com/sakif/todo-list/internal/model"
	"github.com/sakif/todo-list/internal/service"
)

// TodoHandler serves /api/todos. Every route sits behind auth.RequireUser, so
// the user id is always in the context by the time these run.
type TodoHandler struct {
	svc    *service.TodoService
	logger *slog.Logger
}

func NewTodoHandler(svc *service.TodoService, logger *slog.Logger) *TodoHandler {
	return &TodoHandler{svc: svc, logger: logger}
}

type createTodoRequest struct {
	Text string `json:"text"`
}

// HandleList returns the caller's todos, newest first.
//
// HTTP: GET /api/todos → 200 [...]
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	todos, err := h.svc.List(r.Context(), userID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

// HandleCreate adds a todo.
//
// HTTP: POST /api/todos  {text} → 200 todo
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req createTodoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	todo, err := h.svc.Create(r.Context(), userID, req.Text)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleUpdate changes the text and/or completed flag of one of the caller's
// todos. Absent (or null) fields are left alone. An id that matches none of
// the caller's todos gets 200 with a null body, whether or not it exists.
//
// HTTP: PUT /api/todos/{id}  {text?, completed?} → 200 todo | 200 null
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, err := todoID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	var patch model.TodoPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, h.logger, err)
		return
	}

	todo, err := h.svc.Update(r.Context(), userID, id, patch)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

// HandleDelete removes one of the caller's todos. Unknown and foreign ids
// succeed without doing anything.
//
// HTTP: DELETE /api/todos/{id} → 200 {"message": "Todo deleted"}
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	id, err := todoID(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeMessage(w, http.StatusOK, "Todo deleted")
}

// userID reads the caller from the context. Without RequireUser in front of
// the route it would be missing; answer 401 rather than act as user 0.
func (h *TodoHandler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeNotAuthenticated(w)
	}
	return id, ok
}

// todoID parses the {id} URL parameter, which must be a positive integer.
func todoID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "Todo id must be a positive integer")
	}
	return id, nil
}
