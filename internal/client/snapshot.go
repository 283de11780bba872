package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hiroki-koketsu/go-todo/internal/model"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const snapshotFileName = "todos.json"

const snapshotSchemaJSON = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "text", "completed", "priority", "createdAt"],
    "properties": {
      "id":        {"type": "string", "minLength": 1},
      "text":      {"type": "string", "pattern": "\\S"},
      "completed": {"type": "boolean"},
      "priority":  {"enum": ["low", "medium", "high"]},
      "createdAt": {"type": "string", "format": "date-time"}
    }
  }
}`

var snapshotSchema = func() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	c.AssertFormat = true
	if err := c.AddResource("snapshot.schema.json", strings.NewReader(snapshotSchemaJSON)); err != nil {
		panic(err)
	}
	return c.MustCompile("snapshot.schema.json")
}()

// Snapshot keeps the working list in one JSON file. Single writer, no
// locking.
type Snapshot struct {
	path   string
	logger *slog.Logger
}

// NewSnapshot returns a Snapshot stored as todos.json in dir.
func NewSnapshot(dir string, logger *slog.Logger) *Snapshot {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Snapshot{path: filepath.Join(dir, snapshotFileName), logger: logger}
}

// Path returns the snapshot file location.
func (s *Snapshot) Path() string { return s.path }

// Load returns the saved list. A missing, unreadable or malformed file
// yields an empty list.
func (s *Snapshot) Load() []model.TodoItem {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("snapshot unreadable, starting empty", slog.Any("error", err))
		}
		return []model.TodoItem{}
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		s.logger.Warn("snapshot is not JSON, starting empty", slog.Any("error", err))
		return []model.TodoItem{}
	}
	if err := snapshotSchema.Validate(doc); err != nil {
		s.logger.Warn("snapshot failed validation, starting empty", slog.Any("error", err))
		return []model.TodoItem{}
	}

	var items []model.TodoItem
	if err := json.Unmarshal(b, &items); err != nil {
		s.logger.Warn("snapshot decode failed, starting empty", slog.Any("error", err))
		return []model.TodoItem{}
	}
	return items
}

// Save replaces the file with items. The write goes through a temp file so
// a crash never leaves a half-written snapshot.
func (s *Snapshot) Save(items []model.TodoItem) error {
	if items == nil {
		items = []model.TodoItem{}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	b, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".todos-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename file: %w", err)
	}
	return nil
}
