package credential

import (
	"context"
	"sync"
)

// MemoryBackend keeps credentials in process memory only.
type MemoryBackend struct {
	mu   sync.Mutex
	data *Credentials
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) Load(_ context.Context) (*Credentials, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	c := *m.data
	return &c, nil
}

func (m *MemoryBackend) Save(_ context.Context, c Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = &c
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}

func (m *MemoryBackend) Ping(_ context.Context) error {
	return nil
}
