// Package proofstore keeps the payment-proof attachments uploaded at checkout.
package proofstore

import (
	"context"
	"errors"
	"path"
	"strings"
	"sync"
)

var ErrNotFound = errors.New("proof not found")

// Store persists an attachment and returns where it was written.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Key builds the object key for an order's proof, keeping the original
// file extension when there is one.
func Key(orderNumber, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 6 {
		ext = ""
	}
	return "orders/" + orderNumber + "/payment-proof" + ext
}

type object struct {
	contentType string
	data        []byte
}

// Memory is an in-process Store used in tests and when no bucket is set.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewMemory() *Memory {
	return &Memory{objects: make(map[string]object)}
}

func (m *Memory) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	buf := make([]byte, len(data))
	copy(buf, data)
	m.mu.Lock()
	m.objects[key] = object{contentType: contentType, data: buf}
	m.mu.Unlock()
	return "memory://" + key, nil
}

// Get returns a stored object and its content type.
func (m *Memory) Get(key string) ([]byte, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", ErrNotFound
	}
	return obj.data, obj.contentType, nil
}
