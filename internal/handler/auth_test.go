package handler

import (
	"net/http"
	"testing"

	"github.com/hiroki-koketsu/go-todo/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	return nil
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t, repository.NewMemoryStore())

	resp, data := do(t, srv, http.MethodPost, "/login", `{"username":"user","password":"password"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"success":true}`, string(data))

	c := sessionCookie(resp)
	require.NotNil(t, c)
	assert.Equal(t, "true", c.Value)
}

func TestLoginRejected(t *testing.T) {
	srv := newTestServer(t, repository.NewMemoryStore())

	tests := []string{
		`{"username":"wrong","password":"wrong"}`,
		`{"username":"user","password":"nope"}`,
		`{}`,
	}
	for _, body := range tests {
		resp, data := do(t, srv, http.MethodPost, "/login", body)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid credentials", errorMessage(t, data))
		assert.Nil(t, sessionCookie(resp))
	}
}

func TestLogout(t *testing.T) {
	srv := newTestServer(t, repository.NewMemoryStore())

	resp, _ := do(t, srv, http.MethodPost, "/logout", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	c := sessionCookie(resp)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}
