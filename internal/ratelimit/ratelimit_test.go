package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixed(l *Limiter, t time.Time) *time.Time {
	now := t
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiter_BurstThenWait(t *testing.T) {
	l := New("auth", 3, time.Minute)
	now := fixed(l, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("1.2.3.4")
		require.True(t, ok, "request %d", i)
	}
	ok, wait := l.Allow("1.2.3.4")
	assert.False(t, ok)
	assert.InDelta(t, 20*time.Second, wait, float64(time.Second))

	other, _ := l.Allow("5.6.7.8")
	assert.True(t, other)

	*now = now.Add(21 * time.Second)
	ok, _ = l.Allow("1.2.3.4")
	assert.True(t, ok)
}

func TestLimiter_Sweep(t *testing.T) {
	l := New("api", 60, time.Minute)
	now := fixed(l, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	l.Allow("a")
	*now = now.Add(5 * time.Minute)
	l.Allow("b")

	assert.Equal(t, 1, l.Sweep(time.Minute))
	assert.Equal(t, 1, l.Len())

	require.NoError(t, Sweeper{Limiters: []*Limiter{l, nil}, TTL: 0}.Run())
}

func TestMiddleware(t *testing.T) {
	l := New("otp", 1, time.Hour)
	fixed(l, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	h := Middleware(l, ByIP)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/account/email-change", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	secs, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, 3600, secs, 1)
}

func TestMiddleware_NilLimiterPassesThrough(t *testing.T) {
	h := Middleware(nil, ByIP)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

type subjectKey struct{}

func TestByUser(t *testing.T) {
	key := ByUser(func(ctx context.Context) string {
		s, _ := ctx.Value(subjectKey{}).(string)
		return s
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1"
	assert.Equal(t, "10.0.0.2", key(req))

	req = req.WithContext(context.WithValue(req.Context(), subjectKey{}, "u1"))
	assert.Equal(t, "user:u1", key(req))
}
