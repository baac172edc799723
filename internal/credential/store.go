package credential

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Store is the process-wide credential store. Reads are served from an
// in-memory mirror of the backend so that they never block on I/O; writes go
// to the backend first and only then become visible to readers.
type Store struct {
	backend Backend
	logger  *slog.Logger

	mu         sync.RWMutex
	current    *Credentials
	generation uint64
}

// Open creates a Store and loads whatever the backend has persisted.
func Open(ctx context.Context, backend Backend, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	loaded, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	s := &Store{backend: backend, logger: logger}
	if loaded != nil && loaded.Complete() {
		c := *loaded
		s.current = &c
	} else if loaded != nil {
		// A half-written record is treated as no session at all.
		logger.Warn("discarding incomplete persisted credentials")
		_ = backend.Delete(ctx)
	}

	return s, nil
}

// Write persists token and userID together, replacing any prior value.
func (s *Store) Write(ctx context.Context, token, userID string) error {
	c := Credentials{Token: token, UserID: userID}
	if !c.Complete() {
		return ErrIncomplete
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(ctx, c); err != nil {
		return fmt.Errorf("failed to persist credentials: %w", err)
	}

	s.current = &c
	s.generation++
	return nil
}

// Read returns the current credentials, or false when the user is anonymous.
func (s *Store) Read() (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Credentials{}, false
	}
	return *s.current, true
}

// ReadWithGeneration returns the current credentials together with the
// generation they belong to, read under one lock.
func (s *Store) ReadWithGeneration() (Credentials, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return Credentials{}, s.generation, false
	}
	return *s.current, s.generation, true
}

// Clear removes the credentials. It is idempotent and never fails: a backend
// error is logged and the in-memory view is cleared regardless.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Delete(ctx); err != nil {
		s.logger.Error("failed to delete persisted credentials", slog.String("error", err.Error()))
	}

	s.current = nil
	s.generation++
}

// Generation changes every time the credentials are written or cleared.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}
