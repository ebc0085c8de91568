package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/annotation-study/registration/internal/config"
)

// ---------------------------------------------------------------------------
// MemoryLimiter
// ---------------------------------------------------------------------------

func newTestLimiter(t *testing.T, rpm, burst int) *MemoryLimiter {
	t.Helper()
	rl := NewMemoryLimiter(RateLimitConfig{
		RequestsPerMinute: rpm,
		BurstSize:         burst,
		CleanupInterval:   time.Hour,
	})
	t.Cleanup(func() { _ = rl.Close() })
	return rl
}

func TestMemoryLimiter_AllowsUpToBurst(t *testing.T) {
	rl := newTestLimiter(t, 1, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := rl.Allow(ctx, "client-a")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: Allow() = %+v, %v; want allowed", i+1, d, err)
		}
		if d.Remaining != 2-i {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, d.Remaining, 2-i)
		}
	}

	d, _ := rl.Allow(ctx, "client-a")
	if d.Allowed {
		t.Error("request beyond burst allowed")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v, want within one refill period", d.RetryAfter)
	}
}

func TestMemoryLimiter_ClientsAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, 1, 1)
	ctx := context.Background()

	if d, _ := rl.Allow(ctx, "a"); !d.Allowed {
		t.Fatal("first request from a denied")
	}
	if d, _ := rl.Allow(ctx, "a"); d.Allowed {
		t.Error("second request from a allowed")
	}
	if d, _ := rl.Allow(ctx, "b"); !d.Allowed {
		t.Error("client b throttled by client a")
	}
}

func TestMemoryLimiter_Refills(t *testing.T) {
	rl := newTestLimiter(t, 6000, 1) // 100 tokens per second
	ctx := context.Background()

	_, _ = rl.Allow(ctx, "k")
	if d, _ := rl.Allow(ctx, "k"); d.Allowed {
		t.Fatal("bucket did not empty")
	}
	time.Sleep(30 * time.Millisecond)
	if d, _ := rl.Allow(ctx, "k"); !d.Allowed {
		t.Error("bucket did not refill")
	}
}

func TestMemoryLimiter_CloseTwice(t *testing.T) {
	rl := NewMemoryLimiter(RateLimitConfig{RequestsPerMinute: 1, BurstSize: 1})
	_ = rl.Close()
	if err := rl.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

// ---------------------------------------------------------------------------
// NewLimiter / RedisLimiter
// ---------------------------------------------------------------------------

func TestNewLimiter_SelectsBackend(t *testing.T) {
	mem := NewLimiter(&config.RateLimitingConfig{RequestsPerMinute: 30, Burst: 10})
	defer mem.Close()
	if _, ok := mem.(*MemoryLimiter); !ok {
		t.Errorf("NewLimiter() = %T, want *MemoryLimiter", mem)
	}

	red := NewLimiter(&config.RateLimitingConfig{RequestsPerMinute: 30, Burst: 10, RedisAddr: "127.0.0.1:1"})
	defer red.Close()
	if _, ok := red.(*RedisLimiter); !ok {
		t.Errorf("NewLimiter() = %T, want *RedisLimiter", red)
	}
	if red.Limit() != 30 {
		t.Errorf("Limit() = %d, want 30", red.Limit())
	}
}

func TestRedisLimiter_UnreachableReturnsError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	rl := NewRedisLimiter(client, 30, 10)
	defer rl.Close()

	if _, err := rl.Allow(context.Background(), "ip:10.0.0.1"); err == nil {
		t.Error("Allow() = nil error for unreachable Redis")
	}
}

// ---------------------------------------------------------------------------
// RateLimitMiddleware
// ---------------------------------------------------------------------------

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, context.DeadlineExceeded
}
func (failingLimiter) Limit() int   { return 1 }
func (failingLimiter) Close() error { return nil }

func newRateLimitedRouter(l Limiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimitMiddleware(l))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newRateLimitedRouter(newTestLimiter(t, 1, 2))

	for i, want := range []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		r.ServeHTTP(w, req)

		if w.Code != want {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, want)
		}
		if w.Header().Get("X-RateLimit-Limit") != "1" {
			t.Errorf("X-RateLimit-Limit = %q", w.Header().Get("X-RateLimit-Limit"))
		}
		if want == http.StatusTooManyRequests {
			retry, err := strconv.Atoi(w.Header().Get("Retry-After"))
			if err != nil || retry < 1 {
				t.Errorf("Retry-After = %q", w.Header().Get("Retry-After"))
			}
			var body map[string]interface{}
			_ = json.Unmarshal(w.Body.Bytes(), &body)
			if body["error"] != "Rate limit exceeded" {
				t.Errorf("body = %v", body)
			}
		}
	}

	// another client is unaffected
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.2.2.2:4000"
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("other client status = %d", w.Code)
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	r := newRateLimitedRouter(failingLimiter{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the limiter errors", w.Code)
	}
}
