package session

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/storage"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// mintToken signs a throwaway JWT expiring at exp.
func mintToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        shared.GenerateID(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped atomic.Bool
}

func (t *fakeTimer) Stop() bool { return !t.stopped.Swap(true) }

// fakeTimers records every timer instead of running it.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (ft *fakeTimers) AfterFunc(d time.Duration, f func()) Timer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	t := &fakeTimer{delay: d, f: f}
	ft.timers = append(ft.timers, t)
	return t
}

func (ft *fakeTimers) all() []*fakeTimer {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	return append([]*fakeTimer(nil), ft.timers...)
}

func (ft *fakeTimers) active() []*fakeTimer {
	var out []*fakeTimer
	for _, t := range ft.all() {
		if !t.stopped.Load() {
			out = append(out, t)
		}
	}
	return out
}

// refreshServer is a fake /auth/refresh endpoint.
type refreshServer struct {
	*httptest.Server
	calls   atomic.Int32
	mu      sync.Mutex
	handler func(w http.ResponseWriter, r *http.Request)
	lastReq models.RefreshRequest
}

func newRefreshServer(t *testing.T) *refreshServer {
	t.Helper()
	rs := &refreshServer{}
	rs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != RefreshPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		rs.calls.Add(1)

		body, _ := io.ReadAll(r.Body)
		rs.mu.Lock()
		_ = json.Unmarshal(body, &rs.lastReq)
		h := rs.handler
		rs.mu.Unlock()

		h(w, r)
	}))
	t.Cleanup(rs.Close)
	return rs
}

func (rs *refreshServer) respond(h func(w http.ResponseWriter, r *http.Request)) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.handler = h
}

func (rs *refreshServer) lastRefreshToken() string {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.lastReq.RefreshToken
}

func respondTokens(access, refresh string) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.AuthResponse{
			AccessToken:  access,
			RefreshToken: refresh,
			User:         &models.User{ID: "user-1"},
		})
	}
}

func respondStatus(code int) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"nope"}`, code)
	}
}

type harness struct {
	m      *Manager
	kv     *storage.MemoryStore
	clock  *fakeClock
	timers *fakeTimers
	srv    *refreshServer
}

func newHarness(t *testing.T, policy Policy) *harness {
	t.Helper()
	h := &harness{
		kv:     storage.NewMemoryStore(),
		clock:  newFakeClock(),
		timers: &fakeTimers{},
		srv:    newRefreshServer(t),
	}

	m, err := NewManager(ManagerOpts{
		Storage:    h.kv,
		HTTPClient: h.srv.Client(),
		BaseURL:    h.srv.URL,
		Policy:     policy,
		Logger:     shared.NewLogger(io.Discard),
		Now:        h.clock.Now,
		AfterFunc:  h.timers.AfterFunc,
	})
	require.NoError(t, err)
	t.Cleanup(m.Close)
	h.m = m
	return h
}

// seed stores a pair expiring after d without going through the manager.
func (h *harness) seed(t *testing.T, d time.Duration, refresh string) *TokenPair {
	t.Helper()
	pair, err := NewTokenPair(mintToken(t, h.clock.Now().Add(d)), refresh)
	require.NoError(t, err)
	data, err := json.Marshal(pair)
	require.NoError(t, err)
	require.NoError(t, h.kv.Set(t.Context(), StorageKey, data))
	return pair
}
