package store

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryMirror keeps payloads in process. Used for local development and tests.
type MemoryMirror struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{entries: map[string][]byte{}}
}

func (m *MemoryMirror) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payload, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), payload...), true, nil
}

func (m *MemoryMirror) Save(_ context.Context, key string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = append([]byte(nil), payload...)
	return nil
}

func (m *MemoryMirror) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := []string{}
	for k := range m.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
