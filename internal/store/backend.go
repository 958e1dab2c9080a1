package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/MrSnakeDoc/bitscreen/internal/utils"
)

// Backend persists the whole store document as one blob.
type Backend interface {
	// Name identifies the backend in logs and on /infra.
	Name() string
	// Load returns the last saved document, or ErrNoDocument.
	Load(ctx context.Context) ([]byte, error)
	// Save replaces the persisted document.
	Save(ctx context.Context, data []byte) error
}

// FileBackend keeps the document in a single file on disk.
type FileBackend struct {
	path string
}

func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Name() string { return "file" }

// Path returns the document location.
func (b *FileBackend) Path() string { return b.path }

func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("read %s: %w", b.path, err)
	}
	return data, nil
}

// Save writes to a temp file in the same directory, then renames it over
// the document so readers never observe a half-written file.
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		utils.Close(tmp)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		utils.Close(tmp)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	committed = true
	return nil
}
