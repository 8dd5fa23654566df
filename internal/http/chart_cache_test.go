package http

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestChartCacheRendersOncePerKey(t *testing.T) {
	c := newChartCache(8, time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	render := func(w io.Writer) error {
		calls.Add(1)
		<-release
		_, err := w.Write([]byte("png"))
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b, err := c.get("daily:1:2025-03-15", render); err != nil || string(b) != "png" {
				t.Errorf("get = %q, %v", b, err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Fatalf("render calls = %d, want 1", n)
	}
	if _, err := c.get("daily:1:2025-03-15", render); err != nil || calls.Load() != 1 {
		t.Fatalf("cached get re-rendered: calls = %d, err = %v", calls.Load(), err)
	}
}

func TestChartCacheDoesNotCacheErrors(t *testing.T) {
	c := newChartCache(8, time.Minute)
	boom := errors.New("boom")
	if _, err := c.get("k", func(io.Writer) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if c.lru.Size() != 0 {
		t.Fatal("error was cached")
	}
	if c.renders.Load() != 0 {
		t.Fatal("failed render counted")
	}
}
