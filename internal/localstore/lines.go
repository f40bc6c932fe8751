package localstore

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/internal/domain"
)

// LineStore keeps a cart's lines as one JSON array blob.
type LineStore struct {
	storage Storage
	key     string
}

func NewLineStore(storage Storage, key string) *LineStore {
	return &LineStore{storage: storage, key: key}
}

// Load returns the stored lines in insertion order. A missing blob is an
// empty cart.
func (s *LineStore) Load(ctx context.Context) ([]domain.CartLine, error) {
	blob, err := s.storage.Load(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if len(blob) == 0 {
		return []domain.CartLine{}, nil
	}
	var lines []domain.CartLine
	if err := json.Unmarshal(blob, &lines); err != nil {
		return nil, fmt.Errorf("%w: key=%s: %v", ErrCorrupted, s.key, err)
	}
	for _, l := range lines {
		if l.ID == "" || l.Quantity < 1 || !l.UnitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: key=%s: invalid line %q", ErrCorrupted, s.key, l.ID)
		}
	}
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return lines, nil
}

// Save replaces the stored lines.
func (s *LineStore) Save(ctx context.Context, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	blob, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.storage.Save(ctx, s.key, blob)
}

// Reset removes the blob.
func (s *LineStore) Reset(ctx context.Context) error {
	return s.storage.Delete(ctx, s.key)
}
