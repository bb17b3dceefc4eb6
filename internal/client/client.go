// Package client talks to the to-do HTTP API.
//
// Client is a thin typed wrapper over the endpoints; it keeps the session
// cookie in a cookie jar the way a browser would. Controller builds the
// browser app's state handling on top of it.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"

	"github.com/sakif/todo-list/internal/model"
)

// DefaultTimeout bounds every request made by a Client created with a nil
// *http.Client.
const DefaultTimeout = 15 * time.Second

// APIError is a non-2xx response. Message is the server's "message" field.
type APIError struct {
	Status  int    // 0 when the request never got a response
	Message string
	Err     error // transport error, if any
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsUnauthenticated reports whether err is a 401 from the server.
func IsUnauthenticated(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the server at baseURL. When httpClient is nil a
// client with a fresh cookie jar is used; a non-nil httpClient must have its
// own Jar for sessions to stick.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("client: creating cookie jar: %w", err)
		}
		httpClient = &http.Client{Jar: jar, Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}, nil
}

type userEnvelope struct {
	User *model.User `json:"user"`
}

// CurrentUser returns the logged-in user. Without a session it returns an
// *APIError for which IsUnauthenticated is true.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var out userEnvelope
	if err := c.do(ctx, http.MethodGet, "/auth/user", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	in := map[string]string{"email": email, "password": password, "name": name}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/register", in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*model.User, error) {
	in := map[string]string{"email": email, "password": password}
	var out userEnvelope
	if err := c.do(ctx, http.MethodPost, "/auth/login", in, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

func (c *Client) ListTodos(ctx context.Context) ([]model.Todo, error) {
	var out []model.Todo
	if err := c.do(ctx, http.MethodGet, "/api/todos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTodo(ctx context.Context, text string) (*model.Todo, error) {
	var out model.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", map[string]string{"text": text}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTodo returns nil without an error when the id matched nothing.
func (c *Client) UpdateTodo(ctx context.Context, id int64, patch model.TodoPatch) (*model.Todo, error) {
	var out *model.Todo
	if err := c.do(ctx, http.MethodPut, todoPath(id), patch, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, todoPath(id), nil, nil)
}

func todoPath(id int64) string {
	return "/api/todos/" + strconv.FormatInt(id, 10)
}

// do sends one JSON request and decodes the response into out (if non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("client: building request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Message: fmt.Sprintf("%s %s failed", method, path), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var payload struct {
		Message string `json:"message"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &payload) != nil || payload.Message == "" {
		payload.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: payload.Message}
}
