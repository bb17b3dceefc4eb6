package client

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/sakif/todo-list/internal/model"
)

// msgAuthFailed is shown when a login or registration fails without a
// usable message from the server.
const msgAuthFailed = "Authentication failed"

// ErrTodoGone is returned by Update when the server no longer has the todo.
var ErrTodoGone = errors.New("todo no longer exists")

// API is the subset of Client the Controller drives.
type API interface {
	CurrentUser(ctx context.Context) (*model.User, error)
	Register(ctx context.Context, email, password, name string) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	Logout(ctx context.Context) error
	ListTodos(ctx context.Context) ([]model.Todo, error)
	CreateTodo(ctx context.Context, text string) (*model.Todo, error)
	UpdateTodo(ctx context.Context, id int64, patch model.TodoPatch) (*model.Todo, error)
	DeleteTodo(ctx context.Context, id int64) error
}

// View is what a UI should show for the current state.
type View int

const (
	ViewLoading View = iota
	ViewLogin
	ViewList
)

func (v View) String() string {
	switch v {
	case ViewLoading:
		return "loading"
	case ViewLogin:
		return "login"
	case ViewList:
		return "list"
	default:
		return "unknown"
	}
}

// State is the whole client-side state.
type State struct {
	User    *model.User
	Items   []model.Todo
	Loading bool
}

// Controller holds State and applies the app's transition rules:
//
//   - until Mount resolves the session, Loading is true
//   - when User goes from none to present, the list is fetched once
//   - Add and Delete patch Items after the server confirms, no re-fetch
//   - Logout clears User and Items whatever the server says
//   - fetch failures are logged and leave State as it was
//
// Network calls run without the lock held, so overlapping operations are
// last-response-wins.
type Controller struct {
	api    API
	logger *slog.Logger

	mu    sync.Mutex
	state State
}

func NewController(api API, logger *slog.Logger) *Controller {
	return &Controller{
		api:    api,
		logger: logger,
		state:  State{Loading: true},
	}
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Items = slices.Clone(c.state.Items)
	return s
}

// View reports which screen the state calls for.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.state.Loading:
		return ViewLoading
	case c.state.User == nil:
		return ViewLogin
	default:
		return ViewList
	}
}

// Mount resolves the current session. A 401 means "logged out"; any other
// failure is logged and also leaves the user logged out.
func (c *Controller) Mount(ctx context.Context) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		if !IsUnauthenticated(err) {
			c.logger.Error("checking auth failed", slog.String("error", err.Error()))
		}
		user = nil
	}
	c.setUser(ctx, user)
}

// Register creates an account and logs in. Failures come back as *APIError
// with a message fit to show the user.
func (c *Controller) Register(ctx context.Context, email, password, name string) error {
	user, err := c.api.Register(ctx, email, password, name)
	if err != nil {
		return authError(err)
	}
	c.setUser(ctx, user)
	return nil
}

// Login logs in with email and password. Failures come back as *APIError.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	user, err := c.api.Login(ctx, email, password)
	if err != nil {
		return authError(err)
	}
	c.setUser(ctx, user)
	return nil
}

// Logout ends the session. Local state is cleared even when the server call
// fails; the error is still returned.
func (c *Controller) Logout(ctx context.Context) error {
	err := c.api.Logout(ctx)
	if err != nil {
		c.logger.Error("logout failed", slog.String("error", err.Error()))
	}

	c.mu.Lock()
	c.state.User = nil
	c.state.Items = nil
	c.state.Loading = false
	c.mu.Unlock()
	return err
}

// Refresh re-fetches the whole list.
func (c *Controller) Refresh(ctx context.Context) error {
	items, err := c.api.ListTodos(ctx)
	if err != nil {
		c.logger.Error("fetching todos failed", slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	c.state.Items = items
	c.mu.Unlock()
	return nil
}

// Add creates a todo and puts it at the top of the list. Blank text is
// ignored without a request.
func (c *Controller) Add(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	todo, err := c.api.CreateTodo(ctx, text)
	if err != nil {
		c.logger.Error("adding todo failed", slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	c.state.Items = append([]model.Todo{*todo}, c.state.Items...)
	c.mu.Unlock()
	return nil
}

// Update applies patch to a todo and replaces it in the list. If the server
// no longer has it, the stale item is dropped and ErrTodoGone returned.
func (c *Controller) Update(ctx context.Context, id int64, patch model.TodoPatch) error {
	todo, err := c.api.UpdateTodo(ctx, id, patch)
	if err != nil {
		c.logger.Error("updating todo failed", slog.Int64("todoID", id), slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if todo == nil {
		c.state.Items = slices.DeleteFunc(c.state.Items, func(t model.Todo) bool { return t.ID == id })
		return ErrTodoGone
	}
	if i := slices.IndexFunc(c.state.Items, func(t model.Todo) bool { return t.ID == id }); i >= 0 {
		c.state.Items[i] = *todo
	}
	return nil
}

// Delete removes a todo and drops it from the list.
func (c *Controller) Delete(ctx context.Context, id int64) error {
	if err := c.api.DeleteTodo(ctx, id); err != nil {
		c.logger.Error("deleting todo failed", slog.Int64("todoID", id), slog.String("error", err.Error()))
		return err
	}

	c.mu.Lock()
	c.state.Items = slices.DeleteFunc(c.state.Items, func(t model.Todo) bool { return t.ID == id })
	c.mu.Unlock()
	return nil
}

// setUser records the resolved user and, on the none→present transition,
// fetches the list.
func (c *Controller) setUser(ctx context.Context, user *model.User) {
	c.mu.Lock()
	hadUser := c.state.User != nil
	c.state.User = user
	c.state.Loading = false
	c.mu.Unlock()

	if !hadUser && user != nil {
		// Refresh logs its own failure; the list just stays empty.
		_ = c.Refresh(ctx)
	}
}

// authError normalizes a login/registration failure to an *APIError with a
// non-empty message.
func authError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status == 0 || apiErr.Message == "" {
			return &APIError{Status: apiErr.Status, Message: msgAuthFailed, Err: err}
		}
		return apiErr
	}
	return &APIError{Message: msgAuthFailed, Err: err}
}
