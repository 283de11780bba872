package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hiroki-koketsu/go-todo/internal/config"
	"github.com/hiroki-koketsu/go-todo/internal/model"
)

// SessionCookie is the flag cookie the client checks before showing todos.
const SessionCookie = "auth"

// AuthHandler is a stand-in login: one configured username and password,
// answered with a flag cookie. It is not an access control layer.
type AuthHandler struct {
	creds  config.AuthConfig
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(creds config.AuthConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{creds: creds, logger: logger}
}

// Login checks the credentials and sets the session flag cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if !h.Check(req.Username, req.Password) {
		h.logger.WarnContext(ctx, "login rejected", slog.String("username", req.Username))
		respondJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid credentials"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "true",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	h.logger.InfoContext(ctx, "login accepted", slog.String("username", req.Username))
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Logout clears the session flag cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Check compares the given credentials with the configured pair.
func (h *AuthHandler) Check(username, password string) bool {
	return h.creds.Match(username, password)
}
