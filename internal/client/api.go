package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hiroki-koketsu/go-todo/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const defaultTimeout = 10 * time.Second

// APIError is a non-2xx answer from the todo server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// APIClient talks to the todo HTTP API.
type APIClient struct {
	baseURL string
	http    *http.Client
}

// NewAPIClient creates a client for the server at baseURL. A nil hc gets a
// traced client with a short timeout.
func NewAPIClient(baseURL string, hc *http.Client) *APIClient {
	if hc == nil {
		hc = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   defaultTimeout,
		}
	}
	return &APIClient{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// List returns every item on the server.
func (c *APIClient) List(ctx context.Context) ([]model.TodoItem, error) {
	var items []model.TodoItem
	if err := c.do(ctx, http.MethodGet, "/todos", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Create adds an item and returns the stored copy.
func (c *APIClient) Create(ctx context.Context, req model.CreateTodoRequest) (*model.TodoItem, error) {
	var item model.TodoItem
	if err := c.do(ctx, http.MethodPost, "/todos", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// Update applies a partial update. A nil item with a nil error means the id
// is unknown to the server.
func (c *APIClient) Update(ctx context.Context, req model.UpdateTodoRequest) (*model.TodoItem, error) {
	var item *model.TodoItem
	if err := c.do(ctx, http.MethodPut, "/todos", req, &item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes an item. Unknown ids succeed.
func (c *APIClient) Delete(ctx context.Context, id string) error {
	var resp model.DeleteResponse
	return c.do(ctx, http.MethodDelete, "/todos", model.DeleteTodoRequest{ID: id}, &resp)
}

// Login checks credentials against the server.
func (c *APIClient) Login(ctx context.Context, username, password string) error {
	return c.do(ctx, http.MethodPost, "/login", model.LoginRequest{Username: username, Password: password}, nil)
}

// Logout tells the server the session ended.
func (c *APIClient) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &e) == nil {
			apiErr.Message = e.Error
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
