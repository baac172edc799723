package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const credentialsFile = "credentials.json"

// FileBackend persists credentials as a JSON file under <dir>/<profile>/.
// Profiles never share a file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend for one profile.
func NewFileBackend(dir, profile string) *FileBackend {
	return &FileBackend{path: filepath.Join(dir, profile, credentialsFile)}
}

// Path returns the file the credentials live in.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the credentials file, or returns nil if it does not exist.
func (b *FileBackend) Load(_ context.Context) (*Credentials, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &c, nil
}

// Save writes to a temporary file and renames it over the old one, so a
// reader never sees a partially written record.
func (b *FileBackend) Save(_ context.Context, c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create profile dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, credentialsFile+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credentials: %w", err)
	}

	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("failed to replace credentials: %w", err)
	}
	return nil
}

// Delete removes the credentials file if present.
func (b *FileBackend) Delete(_ context.Context) error {
	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}

// Ping checks that the profile directory can be created.
func (b *FileBackend) Ping(_ context.Context) error {
	return os.MkdirAll(filepath.Dir(b.path), 0o700)
}
