package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/sakif/todo-list/internal/apperror"
	"github.com/sakif/todo-list/internal/model"
)

// =========================================================================
// FAKES
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository. Hand-written fakes
// keep the tests readable: you can see exactly what the "database" does.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*model.User
	nextID int64

	// set to simulate failures
	getErr    error
	createErr error
	// skipEmailCheck makes GetUserByEmail miss, to exercise the unique-index path
	skipEmailCheck bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (f *fakeUserRepo) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("User already exists")
		}
		if u.GoogleID != nil && existing.GoogleID != nil && *existing.GoogleID == *u.GoogleID {
			return apperror.Conflict("User already exists")
		}
	}
	u.ID = f.nextID
	f.nextID++
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	if !f.skipEmailCheck {
		for _, u := range f.users {
			if u.Email == email {
				copied := *u
				return &copied, nil
			}
		}
	}
	return nil, apperror.NotFoundMessage("user not found")
}

func (f *fakeUserRepo) GetUserByGoogleID(_ context.Context, googleID string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if u.GoogleID != nil && *u.GoogleID == googleID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFoundMessage("user not found")
}

func (f *fakeUserRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users)
}

// fakeTodoRepo is an in-memory repository.TodoRepository.
type fakeTodoRepo struct {
	mu     sync.Mutex
	todos  map[int64]*model.Todo
	nextID int64
	clock  time.Time
	err    error
}

func newFakeTodoRepo() *fakeTodoRepo {
	return &fakeTodoRepo{
		todos:  make(map[int64]*model.Todo),
		nextID: 1,
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeTodoRepo) ListTodos(_ context.Context, userID int64) ([]model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Todo, 0)
	for _, t := range f.todos {
		if t.UserID == userID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (f *fakeTodoRepo) CreateTodo(_ context.Context, t *model.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.clock = f.clock.Add(time.Second)
	t.ID = f.nextID
	f.nextID++
	t.Completed = false
	t.CreatedAt = f.clock
	copied := *t
	f.todos[t.ID] = &copied
	return nil
}

func (f *fakeTodoRepo) UpdateTodo(_ context.Context, userID, id int64, patch model.TodoPatch) (*model.Todo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	t, ok := f.todos[id]
	if !ok || t.UserID != userID {
		return nil, apperror.NotFound("todo", id)
	}
	if patch.Text != nil {
		t.Text = *patch.Text
	}
	if patch.Completed != nil {
		t.Completed = *patch.Completed
	}
	copied := *t
	return &copied, nil
}

func (f *fakeTodoRepo) DeleteTodo(_ context.Context, userID, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	t, ok := f.todos[id]
	if !ok || t.UserID != userID {
		return false, nil
	}
	delete(f.todos, id)
	return true, nil
}

// recordingObserver remembers every event it sees.
type recordingObserver struct {
	mu     sync.Mutex
	auth   []string
	todoOp []string
}

func (r *recordingObserver) AuthEvent(method, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auth = append(r.auth, method+":"+outcome)
}

func (r *recordingObserver) TodoOperation(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.todoOp = append(r.todoOp, op)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func userWithGoogleID(email, googleID string) *model.User {
	return &model.User{Email: email, Name: "Google User", GoogleID: &googleID}
}
