package session

import (
	"context"
	"sync"
)

// MemoryBackend keeps the pair in process memory. Several Stores sharing one
// MemoryBackend behave like processes sharing a state file.
type MemoryBackend struct {
	mu    sync.Mutex
	token string
	role  string
}

func (m *MemoryBackend) Load(_ context.Context) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.role, nil
}

func (m *MemoryBackend) Save(_ context.Context, token, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.role = token, role
	return nil
}

func (m *MemoryBackend) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.role = "", ""
	return nil
}

// Put writes raw values without pairing them. Used to simulate a corrupted
// state file.
func (m *MemoryBackend) Put(token, role string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.role = token, role
}
