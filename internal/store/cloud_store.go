package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rogersnm/todos/internal/model"
)

// ClientIDHeader carries the id a client stamps on its writes so realtime
// echoes of those writes can be recognised.
const ClientIDHeader = "X-Client-ID"

// CloudStore implements Store against the todos HTTP API.
type CloudStore struct {
	apiURL   string
	clientID string
	client   *http.Client

	mu    sync.RWMutex
	token string
}

// compile-time check
var (
	_ Store         = (*CloudStore)(nil)
	_ Watcher       = (*CloudStore)(nil)
	_ Authenticator = (*CloudStore)(nil)
)

func NewCloudStore(apiURL, token string) *CloudStore {
	return &CloudStore{
		apiURL:   strings.TrimSuffix(apiURL, "/"),
		clientID: uuid.NewString(),
		client:   &http.Client{Timeout: 30 * time.Second},
		token:    token,
	}
}

// ClientID identifies this client's writes in the realtime feed.
func (cs *CloudStore) ClientID() string { return cs.clientID }

func (cs *CloudStore) SetToken(token string) {
	cs.mu.Lock()
	cs.token = token
	cs.mu.Unlock()
}

func (cs *CloudStore) currentToken() string {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.token
}

// --- HTTP helpers ---

func (cs *CloudStore) doJSON(ctx context.Context, op, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, cs.apiURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	if tok := cs.currentToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	req.Header.Set(ClientIDHeader, cs.clientID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := cs.client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return resp, nil
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// checkStatus turns an error status into an *AuthError or *TransportError
// and closes the body. It returns nil for success statuses.
func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	defer resp.Body.Close()

	var apiErr apiError
	msg := ""
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil {
		msg = apiErr.Error.Message
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{Op: op, Message: msg}
	case http.StatusNotFound:
		return &TransportError{Op: op, Status: resp.StatusCode, Message: msg, Err: ErrNotFound}
	}
	return &TransportError{Op: op, Status: resp.StatusCode, Message: msg}
}

func decodeResponse[T any](op string, resp *http.Response) (T, error) {
	var zero T
	if err := checkStatus(op, resp); err != nil {
		return zero, err
	}
	defer resp.Body.Close()

	var wrapper struct {
		Data T `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return zero, &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return wrapper.Data, nil
}

func expectOK(op string, resp *http.Response) error {
	if err := checkStatus(op, resp); err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// --- API types ---

type apiTask struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	Timestamp time.Time `json:"timestamp"`
}

func (t *apiTask) toModel() *model.Task {
	return &model.Task{
		ID:        t.ID,
		Title:     t.Title,
		Completed: t.Completed,
		Timestamp: t.Timestamp,
	}
}

// --- Tasks ---

func (cs *CloudStore) CreateTask(ctx context.Context, c TaskCreate) (*model.Task, error) {
	const op = "create task"
	payload := map[string]any{
		"title":     c.Title,
		"completed": c.Completed,
	}
	if !c.Timestamp.IsZero() {
		payload["timestamp"] = c.Timestamp.UTC()
	}
	resp, err := cs.doJSON(ctx, op, "POST", "/items", payload)
	if err != nil {
		return nil, err
	}
	at, err := decodeResponse[apiTask](op, resp)
	if err != nil {
		return nil, err
	}
	return at.toModel(), nil
}

func (cs *CloudStore) GetTask(ctx context.Context, taskID string) (*model.Task, error) {
	const op = "get task"
	resp, err := cs.doJSON(ctx, op, "GET", "/items/"+url.PathEscape(taskID), nil)
	if err != nil {
		return nil, err
	}
	at, err := decodeResponse[apiTask](op, resp)
	if err != nil {
		return nil, err
	}
	return at.toModel(), nil
}

func (cs *CloudStore) ListTasks(ctx context.Context) ([]model.Task, error) {
	const op = "list tasks"
	resp, err := cs.doJSON(ctx, op, "GET", "/items", nil)
	if err != nil {
		return nil, err
	}
	items, err := decodeResponse[[]apiTask](op, resp)
	if err != nil {
		return nil, err
	}
	tasks := make([]model.Task, 0, len(items))
	for _, at := range items {
		tasks = append(tasks, *at.toModel())
	}
	return tasks, nil
}

func (cs *CloudStore) UpdateTask(ctx context.Context, taskID string, upd TaskUpdate) error {
	const op = "update task"
	payload := map[string]any{}
	if upd.Title != nil {
		payload["title"] = *upd.Title
	}
	if upd.Completed != nil {
		payload["completed"] = *upd.Completed
	}
	resp, err := cs.doJSON(ctx, op, "PATCH", "/items/"+url.PathEscape(taskID), payload)
	if err != nil {
		return err
	}
	return expectOK(op, resp)
}

func (cs *CloudStore) DeleteTask(ctx context.Context, taskID string) error {
	const op = "delete task"
	resp, err := cs.doJSON(ctx, op, "DELETE", "/items/"+url.PathEscape(taskID), nil)
	if err != nil {
		return err
	}
	return expectOK(op, resp)
}

// DeleteTasksWhere filters client-side and removes the matches in one bulk call.
func (cs *CloudStore) DeleteTasksWhere(ctx context.Context, match func(model.Task) bool) error {
	const op = "delete tasks"
	tasks, err := cs.ListTasks(ctx)
	if err != nil {
		return err
	}
	ids := []string{}
	for _, t := range tasks {
		if match(t) {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	resp, err := cs.doJSON(ctx, op, "DELETE", "/items:bulkDeleteCompleted", map[string]any{"ids": ids})
	if err != nil {
		return err
	}
	return expectOK(op, resp)
}

func (cs *CloudStore) SetCompletedAll(ctx context.Context, completed bool) error {
	const op = "set completed"
	resp, err := cs.doJSON(ctx, op, "PATCH", "/items:bulkSetCompleted", map[string]any{"completed": completed})
	if err != nil {
		return err
	}
	return expectOK(op, resp)
}

// --- Auth ---

func (cs *CloudStore) Login(ctx context.Context, creds model.Credentials) (string, error) {
	const op = "login"
	resp, err := cs.doJSON(ctx, op, "POST", "/login", creds)
	if err != nil {
		return "", err
	}
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity {
		// Bad credentials are reported as validation failures by some backends.
		err := checkStatus(op, resp)
		var te *TransportError
		if errors.As(err, &te) {
			return "", &AuthError{Op: op, Message: te.Message}
		}
		return "", err
	}
	if err := checkStatus(op, resp); err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &TransportError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if out.AccessToken == "" {
		return "", &AuthError{Op: op, Message: "no access token in response"}
	}
	return out.AccessToken, nil
}

func (cs *CloudStore) Register(ctx context.Context, reg model.Registration) error {
	const op = "register"
	resp, err := cs.doJSON(ctx, op, "POST", "/register", reg)
	if err != nil {
		return err
	}
	return expectOK(op, resp)
}

func (cs *CloudStore) Logout(ctx context.Context) error {
	const op = "logout"
	resp, err := cs.doJSON(ctx, op, "POST", "/logout", nil)
	if err != nil {
		return err
	}
	return expectOK(op, resp)
}

func (cs *CloudStore) CurrentUser(ctx context.Context) (*model.User, error) {
	const op = "current user"
	resp, err := cs.doJSON(ctx, op, "GET", "/user", nil)
	if err != nil {
		return nil, err
	}
	u, err := decodeResponse[model.User](op, resp)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
