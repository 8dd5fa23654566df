package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newLimiter(t *testing.T, perMinute int) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: perMinute, CleanupInterval: time.Hour, Now: clock.Now})
	t.Cleanup(rl.Stop)
	return rl, clock
}

func TestAllowWindow(t *testing.T) {
	rl, clock := newLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("1.2.3.4") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other client throttled")
	}

	clock.Advance(time.Minute)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("window did not reset")
	}
	if m := rl.GetMetrics(); m.Rejected != 1 || m.ClientCount != 2 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}

func TestCleanupStaleEntries(t *testing.T) {
	rl, clock := newLimiter(t, 3)
	rl.Allow("a")
	clock.Advance(11 * time.Minute)
	rl.Allow("b")

	if removed := rl.cleanupStaleEntries(); removed != 1 {
		t.Fatalf("removed %d, want 1", removed)
	}
	if rl.GetMetrics().ClientCount != 1 {
		t.Errorf("stale client kept")
	}
}

func TestMiddlewareLimitsSelectedMethods(t *testing.T) {
	rl, _ := newLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "ip" }, http.MethodPost)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(method string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(method, "/", nil))
		return rec
	}

	if rec := do(http.MethodPost); rec.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", rec.Code)
	}
	rec := do(http.MethodPost)
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second POST = %d retry=%q", rec.Code, rec.Header().Get("Retry-After"))
	}
	for i := 0; i < 5; i++ {
		if rec := do(http.MethodGet); rec.Code != http.StatusNoContent {
			t.Fatalf("GET throttled: %d", rec.Code)
		}
	}
}
