// Package file persists key-value pairs as a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// KV stores every key in one JSON object. Each Set rewrites the file through
// a temporary file and a rename so readers never observe a partial write.
type KV struct {
	path string

	mu   sync.Mutex
	data map[string]json.RawMessage
}

// New opens path, creating its directory if needed. A missing file is an
// empty store; an unreadable one is an error.
func New(path string) (*KV, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	kv := &KV{path: path, data: make(map[string]json.RawMessage)}

	b, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return kv, nil
	case err != nil:
		return nil, fmt.Errorf("read data file: %w", err)
	}
	if len(b) == 0 {
		return kv, nil
	}
	if err := json.Unmarshal(b, &kv.data); err != nil {
		return nil, fmt.Errorf("decode data file %s: %w", path, err)
	}
	return kv, nil
}

// Get implements store.KV
func (k *KV) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

// Set implements store.KV
func (k *KV) Set(ctx context.Context, key string, value json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !json.Valid(value) {
		return fmt.Errorf("value for %q is not valid JSON", key)
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	next := make(map[string]json.RawMessage, len(k.data)+1)
	for kk, vv := range k.data {
		next[kk] = vv
	}
	next[key] = append(json.RawMessage(nil), value...)

	if err := k.flush(next); err != nil {
		return err
	}
	k.data = next
	return nil
}

func (k *KV) flush(data map[string]json.RawMessage) error {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode data file: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(k.path), ".saralfin-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), k.path); err != nil {
		return fmt.Errorf("replace data file: %w", err)
	}
	return nil
}

func (k *KV) Close() error { return nil }
