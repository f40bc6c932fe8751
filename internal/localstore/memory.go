package localstore

import (
	"context"
	"sync"
)

// Memory is an in-process Storage. A positive quota bounds the total size of
// all stored blobs.
type Memory struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	quota int
}

func NewMemory(quotaBytes int) *Memory {
	return &Memory{blobs: make(map[string][]byte), quota: quotaBytes}
}

func (m *Memory) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(blob))
	copy(out, blob)
	return out, nil
}

func (m *Memory) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.quota > 0 {
		used := len(blob)
		for k, b := range m.blobs {
			if k != key {
				used += len(b)
			}
		}
		if used > m.quota {
			return ErrQuotaExceeded
		}
	}
	stored := make([]byte, len(blob))
	copy(stored, blob)
	m.blobs[key] = stored
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.blobs, key)
	m.mu.Unlock()
	return nil
}
