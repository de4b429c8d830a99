package memory

import (
	"context"
	"sync"

	"rentme-app/internal/app/persist"
)

// KV is a map-backed persist.Storage for tests and ephemeral runs.
type KV struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewKV() *KV {
	return &KV{items: make(map[string][]byte)}
}

func (s *KV) GetItem(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *KV) SetItem(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = append([]byte(nil), value...)
	return nil
}

func (s *KV) RemoveItem(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Keys lists stored keys in no particular order.
func (s *KV) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	return out
}

var _ persist.Storage = (*KV)(nil)
