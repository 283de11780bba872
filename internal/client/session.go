package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const sessionFileName = "session.json"

// ErrUnauthenticated is returned when no session flag is present.
var ErrUnauthenticated = errors.New("not logged in")

// SessionInfo is the persisted session flag.
type SessionInfo struct {
	Auth      bool      `json:"auth"`
	Username  string    `json:"username"`
	Source    string    `json:"source"` // "env" | "file"
	CreatedAt time.Time `json:"createdAt"`
}

// Session reads and writes the session flag under a data directory.
type Session struct {
	dir string
}

// NewSession returns a Session stored in dir.
func NewSession(dir string) *Session {
	return &Session{dir: dir}
}

func (s *Session) path() string {
	return filepath.Join(s.dir, sessionFileName)
}

// Current returns the active session, or nil when logged out.
// TODO_SESSION=true in the environment overrides the file.
func (s *Session) Current() (*SessionInfo, error) {
	if env := strings.TrimSpace(os.Getenv("TODO_SESSION")); env != "" {
		if ok, _ := strconv.ParseBool(env); ok {
			return &SessionInfo{Auth: true, Source: "env"}, nil
		}
	}

	b, err := os.ReadFile(s.path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var info SessionInfo
	if err := json.Unmarshal(b, &info); err != nil || !info.Auth {
		// an unreadable flag is the same as no flag
		return nil, nil
	}
	info.Source = "file"
	return &info, nil
}

// Active reports whether a session flag is set.
func (s *Session) Active() (bool, error) {
	info, err := s.Current()
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// Start writes the session flag for username.
func (s *Session) Start(username string) error {
	// owner-only
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	info := SessionInfo{
		Auth:      true,
		Username:  username,
		Source:    "file",
		CreatedAt: time.Now(),
	}
	b, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.path(), b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// End removes the session flag. Ending a missing session is fine.
func (s *Session) End() error {
	if err := os.Remove(s.path()); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}
