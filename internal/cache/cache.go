// Package cache holds the in-process caches: advisor sessions and rendered
// chart images.
package cache

import (
	"log/slog"
	"sync"
	"time"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches with expiring entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps expired entries from registered caches.
type Manager struct {
	mu          sync.Mutex
	caches      map[string]Cleaner
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	stopOnce    sync.Once
	started     bool
}

func NewManager() *Manager {
	return &Manager{
		caches:      make(map[string]Cleaner),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

// Register adds a named cache to the sweep.
func (m *Manager) Register(name string, c Cleaner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caches[name] = c
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for name, c := range m.caches {
		if n := c.CleanExpired(); n > 0 {
			slog.Debug("Expired cache entries removed", "cache", name, "count", n)
			total += n
		}
	}
	return total
}

// StartCleanup begins periodic cleanup of all registered caches
func (m *Manager) StartCleanup(interval time.Duration) {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.stopCleanup:
			return
		}
	}
}

// Stop ends the cleanup routine. Safe to call more than once.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCleanup)
		m.mu.Lock()
		started := m.started
		m.mu.Unlock()
		if started {
			<-m.cleanupDone
		}
	})
}
