package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/proximity-lock/proximity-lock/internal/config"
	domain "github.com/proximity-lock/proximity-lock/internal/domain/session"
)

// Repository defines persistence operations for the session record.
type Repository interface {
	Load(ctx context.Context) (*domain.Session, error)
	Save(ctx context.Context, session *domain.Session) error
	Remove(ctx context.Context) error
}

// FileRepository persists the session record to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the session file.
	path string
	// mu protects concurrent access to the session file.
	mu sync.Mutex
}

// ErrNotFound is returned when no session record exists.
var ErrNotFound = errors.New("session not found")

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the location of the session file.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the session record from disk.
func (r *FileRepository) Load(_ context.Context) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read session file: %w", err)
	}

	var session domain.Session
	if err = yaml.Unmarshal(contents, &session); err != nil {
		return nil, fmt.Errorf("decode session file: %w", err)
	}

	if session.PID <= 0 {
		return nil, fmt.Errorf("decode session file: invalid pid %d", session.PID)
	}

	return &session, nil
}

// Save writes the session record to disk.
func (r *FileRepository) Save(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if err = os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}

	return nil
}

// Remove deletes the session record. A missing record is not an error.
func (r *FileRepository) Remove(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}

	return nil
}
