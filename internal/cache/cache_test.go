package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetSet(t *testing.T) {
	s := New[string]()

	key := MakeKey("web-1", "/var/www/html")
	s.Set(key, "33")

	got, ok := s.Get(key)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "33" {
		t.Errorf("expected 33, got %q", got)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", s.Len())
	}
}

func TestStore_Miss(t *testing.T) {
	s := New[bool]()

	_, ok := s.Get("nonexistent")
	if ok {
		t.Error("expected cache miss for nonexistent key")
	}
}

func TestMakeKey_Distinct(t *testing.T) {
	if MakeKey("a", "bc") == MakeKey("ab", "c") {
		t.Error("expected distinct keys for different part boundaries")
	}
}

func TestStore_ResolveCachesResult(t *testing.T) {
	s := New[string]()
	calls := 0
	resolve := func() (string, bool) {
		calls++
		return "1000", true
	}

	if v := s.Resolve("k", resolve); v != "1000" {
		t.Fatalf("expected 1000, got %q", v)
	}
	if v := s.Resolve("k", resolve); v != "1000" {
		t.Fatalf("expected 1000 on second call, got %q", v)
	}
	if calls != 1 {
		t.Errorf("expected resolver to run once, ran %d times", calls)
	}
}

func TestStore_ResolveWithoutStore(t *testing.T) {
	s := New[bool]()
	calls := 0
	resolve := func() (bool, bool) {
		calls++
		return false, false
	}

	s.Resolve("k", resolve)
	s.Resolve("k", resolve)
	if calls != 2 {
		t.Errorf("expected uncached result to be resolved again, ran %d times", calls)
	}
	if _, ok := s.Get("k"); ok {
		t.Error("expected no cache entry")
	}
}

func TestStore_ResolveErrNotCached(t *testing.T) {
	s := New[bool]()
	calls := 0
	wantErr := errors.New("mismatch")

	for i := 0; i < 2; i++ {
		_, err := s.ResolveErr("k", func() (bool, bool, error) {
			calls++
			return false, true, wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("expected shared error, got %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("expected failed resolution to be retried, ran %d times", calls)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", s.Len())
	}
}

func TestStore_ConcurrentResolveSameKey(t *testing.T) {
	s := New[string]()
	var calls atomic.Int32
	release := make(chan struct{})

	resolve := func() (string, bool) {
		calls.Add(1)
		<-release
		return "33", true
	}

	const n = 50
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = s.Resolve(MakeKey("web-1", "/var/www/html"), resolve)
		}(i)
	}

	// Give every goroutine a chance to join the in-flight resolution.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, r := range results {
		if r != "33" {
			t.Errorf("caller %d observed %q, want 33", i, r)
		}
	}
	if c := calls.Load(); c != 1 {
		t.Errorf("expected one resolution, got %d", c)
	}
}

func TestStore_ThreadSafety(t *testing.T) {
	s := New[int]()

	var wg sync.WaitGroup

	// Concurrent writes
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Set(MakeKey("target", string(rune('A'+n%26))), n)
		}(i)
	}

	// Concurrent reads and resolutions
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := MakeKey("target", string(rune('A'+n%26)))
			s.Get(key)
			s.Resolve(key, func() (int, bool) { return n, true })
		}(i)
	}

	wg.Wait()

	if s.Len() != 26 {
		t.Errorf("expected 26 keys, got %d", s.Len())
	}
}
