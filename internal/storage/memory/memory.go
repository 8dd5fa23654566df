package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// KV keeps values in process memory. Useful for tests and demo runs.
type KV struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

func New() *KV {
	return &KV{data: make(map[string]json.RawMessage)}
}

// Get implements store.KV
func (k *KV) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	v, ok := k.data[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

// Set implements store.KV
func (k *KV) Set(_ context.Context, key string, value json.RawMessage) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (k *KV) Close() error { return nil }
