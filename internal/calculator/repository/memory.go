package repository

import (
	"context"
	"sync"

	"refloor/internal/calculator/store"
)

// ============================================================
// Memory Storage
// ============================================================

type Memory struct {
	mu   sync.Mutex
	data map[string][]byte // session/key -> bytes
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// ForSession возвращает хранилище, ограниченное одной сессией.
func (m *Memory) ForSession(sessionID string) store.Storage {
	return &memorySession{mem: m, session: sessionID}
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

type memorySession struct {
	mem     *Memory
	session string
}

func (s *memorySession) slot(key string) string {
	return s.session + "/" + key
}

func (s *memorySession) Get(_ context.Context, key string) ([]byte, error) {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	data, ok := s.mem.data[s.slot(key)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *memorySession) Set(_ context.Context, key string, data []byte) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	buf := make([]byte, len(data))
	copy(buf, data)
	s.mem.data[s.slot(key)] = buf
	return nil
}

func (s *memorySession) Delete(_ context.Context, key string) error {
	s.mem.mu.Lock()
	defer s.mem.mu.Unlock()

	delete(s.mem.data, s.slot(key))
	return nil
}
