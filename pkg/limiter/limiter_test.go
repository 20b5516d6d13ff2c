package limiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestStoreSameKeySameLimiter(t *testing.T) {
	s := NewStore(10, 1)
	if s.Get("k") != s.Get("k") {
		t.Fatal("expected same limiter for same key")
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 key, got %d", s.Len())
	}
}

func TestStoreAllowReportsWait(t *testing.T) {
	s := NewStore(0.5, 1)

	ok, wait := s.Allow("k")
	if !ok || wait != 0 {
		t.Fatalf("first call should pass, got %v %v", ok, wait)
	}
	ok, wait = s.Allow("k")
	if ok {
		t.Fatal("second immediate call should be rejected")
	}
	if wait <= 0 || wait > 2*time.Second {
		t.Errorf("unexpected wait %v", wait)
	}

	// Rejections do not consume tokens, so other keys are unaffected.
	if ok, _ := s.Allow("other"); !ok {
		t.Error("other key should pass")
	}
}

func TestStoreCleanupRemovesIdle(t *testing.T) {
	s := NewStore(10, 1, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	before := s.Get("k")
	time.Sleep(4 * time.Millisecond)
	s.Cleanup()

	if s.Len() != 0 {
		t.Errorf("expected idle key removed, %d left", s.Len())
	}
	if s.Get("k") == before {
		t.Error("expected limiter to be recreated after cleanup")
	}
}

func TestJanitorStopsOnCancel(t *testing.T) {
	s := NewStore(10, 1, WithIdleTTL(time.Millisecond), WithCleanupEvery(2*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	s.StartJanitor(ctx)

	s.Get("k")
	deadline := time.Now().Add(time.Second)
	for s.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	if s.Len() != 0 {
		t.Error("janitor did not clean idle key")
	}
}

func TestMiddlewareRejectsWithRetryAfter(t *testing.T) {
	stats := NewMemoryStats()
	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})
	h := Middleware(Options{Store: NewStore(0.02, 1), Stats: stats, KeyHeader: "X-API-Key"})(next)

	do := func(key, addr string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/v1/generate", nil)
		r.RemoteAddr = addr
		if key != "" {
			r.Header.Set("X-API-Key", key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	if w := do("", "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	w := do("", "10.0.0.1:5678")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	secs, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil || secs < 1 {
		t.Errorf("unexpected Retry-After %q", w.Header().Get("Retry-After"))
	}

	// Keyed clients get their own bucket.
	if w := do("team-a", "10.0.0.1:1234"); w.Code != http.StatusOK {
		t.Errorf("expected keyed client to pass, got %d", w.Code)
	}

	if calls != 2 {
		t.Errorf("expected 2 handler calls, got %d", calls)
	}
	total := stats.Total()
	if total.Allowed != 2 || total.Denied != 1 {
		t.Errorf("unexpected totals %+v", total)
	}
	if got := stats.ByRoute()["POST /v1/generate"]; got.Denied != 1 {
		t.Errorf("unexpected route counters %+v", got)
	}
}

func TestMiddlewareCustomReject(t *testing.T) {
	var gotWait time.Duration
	h := Middleware(Options{
		Store: NewStore(0.02, 1),
		KeyFn: func(*http.Request) string { return "fixed" },
		Reject: func(w http.ResponseWriter, _ *http.Request, wait time.Duration) {
			gotWait = wait
			w.WriteHeader(http.StatusTooManyRequests)
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for range 2 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	if gotWait <= 0 {
		t.Error("custom reject not called with wait")
	}
}

func TestHeaderOrIP(t *testing.T) {
	fn := HeaderOrIP("X-API-Key")

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.9:4000"
	if got := fn(r); got != "192.168.1.9" {
		t.Errorf("expected host, got %q", got)
	}
	r.Header.Set("X-API-Key", " key-1 ")
	if got := fn(r); got != "key-1" {
		t.Errorf("expected header key, got %q", got)
	}
	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = ""
	if got := fn(r); got != "unknown" {
		t.Errorf("expected unknown, got %q", got)
	}
}

func TestRedisStatsNilSafe(t *testing.T) {
	var s *RedisStats
	if err := s.Record(context.Background(), Event{Allowed: true}); err != nil {
		t.Fatal(err)
	}
}

func TestRedisStatsUnreachable(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	s := NewRedisStats(rdb, "", time.Hour)
	if s.prefix != "sqlpilot:limiter" {
		t.Errorf("unexpected default prefix %q", s.prefix)
	}
	if err := s.Record(context.Background(), Event{Key: "k", Method: "GET", Path: "/"}); err == nil {
		t.Error("expected error from unreachable redis")
	}
}
