package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/setlist/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager(t *testing.T) {
	for _, raw := range []string{"", "not a url", "/relative"} {
		_, err := NewManager(ManagerOpts{BaseURL: raw})
		assert.ErrorIs(t, err, shared.ErrInvalidConfig, raw)
	}

	m, err := NewManager(ManagerOpts{BaseURL: "https://api.example.com/", Logger: shared.NewLogger(io.Discard)})
	require.NoError(t, err)
	defer m.Close()
	assert.Equal(t, "https://api.example.com/auth/refresh", m.coord.refreshURL)
}

func TestGetValidAccessToken(t *testing.T) {
	ctx := context.Background()

	t.Run("no session", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		token, ok := h.m.GetValidAccessToken(ctx)
		assert.False(t, ok)
		assert.Empty(t, token)
		assert.Zero(t, h.srv.calls.Load())
	})

	t.Run("fresh token is returned without network and renewal is scheduled later", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		pair := h.seed(t, 10*time.Minute, "r1")
		require.NoError(t, h.m.Start(ctx))

		token, ok := h.m.GetValidAccessToken(ctx)
		require.True(t, ok)
		assert.Equal(t, pair.AccessToken, token)
		assert.Zero(t, h.srv.calls.Load())

		active := h.timers.active()
		require.Len(t, active, 1)
		assert.Equal(t, 5*time.Minute, active[0].delay)
	})

	t.Run("proactive window triggers background renewal", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		old := h.seed(t, 4*time.Minute, "r1")
		fresh := mintToken(t, h.clock.Now().Add(15*time.Minute))
		h.srv.respond(respondTokens(fresh, "r2"))

		token, ok := h.m.GetValidAccessToken(ctx)
		require.True(t, ok)
		assert.Equal(t, old.AccessToken, token, "caller gets the cached token immediately")

		require.Eventually(t, func() bool {
			p, _ := h.m.GetTokens(ctx)
			return p != nil && p.AccessToken == fresh
		}, 2*time.Second, 5*time.Millisecond)
		assert.EqualValues(t, 1, h.srv.calls.Load())
		assert.Equal(t, "r1", h.srv.lastRefreshToken())
	})

	t.Run("background renewal failure stays hidden", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		old := h.seed(t, 4*time.Minute, "r1")
		h.srv.respond(respondStatus(http.StatusBadGateway))

		token, ok := h.m.GetValidAccessToken(ctx)
		require.True(t, ok)
		assert.Equal(t, old.AccessToken, token)

		require.Eventually(t, func() bool { return h.srv.calls.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
		h.m.coord.wg.Wait()

		got, err := h.m.GetTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, old, got)
	})

	t.Run("background cooldown", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, 4*time.Minute, "r1")
		h.srv.respond(respondStatus(http.StatusServiceUnavailable))

		for range 3 {
			_, ok := h.m.GetValidAccessToken(ctx)
			require.True(t, ok)
			h.m.coord.wg.Wait()
		}
		assert.EqualValues(t, 1, h.srv.calls.Load())

		h.clock.Advance(11 * time.Second)
		_, ok := h.m.GetValidAccessToken(ctx)
		require.True(t, ok)
		h.m.coord.wg.Wait()
		assert.EqualValues(t, 2, h.srv.calls.Load())
	})

	t.Run("cooldown can be disabled", func(t *testing.T) {
		p := DefaultPolicy()
		p.BackgroundCooldown = 0
		h := newHarness(t, p)
		h.seed(t, 4*time.Minute, "r1")
		h.srv.respond(respondStatus(http.StatusServiceUnavailable))

		for range 3 {
			h.m.GetValidAccessToken(ctx)
			h.m.coord.wg.Wait()
		}
		assert.EqualValues(t, 3, h.srv.calls.Load())
	})

	t.Run("expired token blocks on refresh", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, -time.Minute, "r1")
		fresh := mintToken(t, h.clock.Now().Add(15*time.Minute))
		h.srv.respond(respondTokens(fresh, "r2"))

		token, ok := h.m.GetValidAccessToken(ctx)
		require.True(t, ok)
		assert.Equal(t, fresh, token)

		stored, err := h.m.GetTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, "r2", stored.RefreshToken)

		active := h.timers.active()
		require.Len(t, active, 1)
		assert.Equal(t, 10*time.Minute, active[0].delay)
	})

	t.Run("near expiry counts as expired", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, 90*time.Second, "r1")
		fresh := mintToken(t, h.clock.Now().Add(15*time.Minute))
		h.srv.respond(respondTokens(fresh, ""))

		token, ok := h.m.GetValidAccessToken(ctx)
		require.True(t, ok)
		assert.Equal(t, fresh, token)

		stored, _ := h.m.GetTokens(ctx)
		assert.Equal(t, "r1", stored.RefreshToken, "old refresh token is kept when the server does not rotate it")
	})

	t.Run("corrupted storage is cleared", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		require.NoError(t, h.kv.Set(ctx, StorageKey, []byte(`{"accessToken":""}`)))

		_, ok := h.m.GetValidAccessToken(ctx)
		assert.False(t, ok)

		_, err := h.kv.Get(ctx, StorageKey)
		assert.Error(t, err)
	})
}

func TestSingleFlight(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent callers share one exchange", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, -time.Minute, "r1")
		fresh := mintToken(t, h.clock.Now().Add(15*time.Minute))

		release := make(chan struct{})
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			<-release
			respondTokens(fresh, "r2")(w, r)
		})

		const n = 10
		var started, done sync.WaitGroup
		results := make([]string, n)
		for i := range n {
			started.Add(1)
			done.Add(1)
			go func() {
				defer done.Done()
				started.Done()
				results[i], _ = h.m.GetValidAccessToken(ctx)
			}()
		}

		started.Wait()
		require.Eventually(t, func() bool { return h.srv.calls.Load() == 1 }, 2*time.Second, time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		close(release)
		done.Wait()

		assert.EqualValues(t, 1, h.srv.calls.Load())
		for i, got := range results {
			assert.Equal(t, fresh, got, "caller %d", i)
		}
	})

	t.Run("concurrent callers share a failure", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, -time.Minute, "r1")

		release := make(chan struct{})
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			<-release
			respondStatus(http.StatusUnauthorized)(w, r)
		})

		const n = 8
		var started, done sync.WaitGroup
		oks := make([]bool, n)
		for i := range n {
			started.Add(1)
			done.Add(1)
			go func() {
				defer done.Done()
				started.Done()
				_, oks[i] = h.m.GetValidAccessToken(ctx)
			}()
		}

		started.Wait()
		require.Eventually(t, func() bool { return h.srv.calls.Load() == 1 }, 2*time.Second, time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		close(release)
		done.Wait()

		assert.EqualValues(t, 1, h.srv.calls.Load())
		for i, ok := range oks {
			assert.False(t, ok, "caller %d", i)
		}
	})

	t.Run("cancelled caller stops waiting but the exchange completes", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, -time.Minute, "r1")
		fresh := mintToken(t, h.clock.Now().Add(15*time.Minute))

		release := make(chan struct{})
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			<-release
			respondTokens(fresh, "r2")(w, r)
		})

		cctx, cancel := context.WithCancel(ctx)
		result := make(chan bool)
		go func() {
			_, ok := h.m.GetValidAccessToken(cctx)
			result <- ok
		}()

		require.Eventually(t, func() bool { return h.srv.calls.Load() == 1 }, 2*time.Second, time.Millisecond)
		cancel()
		assert.False(t, <-result)

		close(release)
		require.Eventually(t, func() bool {
			p, _ := h.m.GetTokens(ctx)
			return p != nil && p.AccessToken == fresh
		}, 2*time.Second, 5*time.Millisecond)
	})
}

func TestRefreshOutcomes(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failures keep the session", func(t *testing.T) {
		tc := []struct {
			name    string
			handler func(http.ResponseWriter, *http.Request)
		}{
			{name: "server error", handler: respondStatus(http.StatusInternalServerError)},
			{name: "bad request", handler: respondStatus(http.StatusBadRequest)},
			{name: "rate limited", handler: respondStatus(http.StatusTooManyRequests)},
			{name: "garbage body", handler: func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }},
			{name: "opaque access token", handler: respondTokens("opaque", "r2")},
			{name: "empty access token", handler: respondTokens("", "r2")},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				h := newHarness(t, DefaultPolicy())
				old := h.seed(t, -time.Minute, "r1")
				h.srv.respond(tt.handler)

				assert.Nil(t, h.m.Refresh(ctx))

				got, err := h.m.GetTokens(ctx)
				require.NoError(t, err)
				assert.Equal(t, old, got)
			})
		}
	})

	t.Run("network error keeps the session", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		old := h.seed(t, -time.Minute, "r1")
		h.srv.Close()

		_, ok := h.m.GetValidAccessToken(ctx)
		assert.False(t, ok)

		got, err := h.m.GetTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, old, got)
	})

	t.Run("timeout keeps the session", func(t *testing.T) {
		p := DefaultPolicy()
		p.RefreshTimeout = 50 * time.Millisecond
		h := newHarness(t, p)
		old := h.seed(t, -time.Minute, "r1")
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		})

		start := time.Now()
		assert.Nil(t, h.m.Refresh(ctx))
		assert.Less(t, time.Since(start), time.Second)

		got, err := h.m.GetTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, old, got)
	})

	t.Run("terminal failures clear the session", func(t *testing.T) {
		for _, code := range []int{http.StatusUnauthorized, http.StatusForbidden} {
			t.Run(http.StatusText(code), func(t *testing.T) {
				h := newHarness(t, DefaultPolicy())
				h.seed(t, -time.Minute, "r1")
				require.NoError(t, h.m.Start(ctx))
				h.srv.respond(respondStatus(code))

				_, ok := h.m.GetValidAccessToken(ctx)
				assert.False(t, ok)

				got, err := h.m.GetTokens(ctx)
				require.NoError(t, err)
				assert.Nil(t, got)
				assert.Empty(t, h.timers.active())
			})
		}
	})

	t.Run("missing refresh token clears without a network call", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, -time.Minute, "")

		_, ok := h.m.GetValidAccessToken(ctx)
		assert.False(t, ok)
		assert.Zero(t, h.srv.calls.Load())

		got, _ := h.m.GetTokens(ctx)
		assert.Nil(t, got)
	})

	t.Run("refresh sends json body", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, -time.Minute, "r-secret")
		contentType := make(chan string, 1)
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			contentType <- r.Header.Get("Content-Type")
			respondStatus(http.StatusInternalServerError)(w, r)
		})

		h.m.Refresh(ctx)
		assert.Equal(t, "application/json", <-contentType)
		assert.Equal(t, "r-secret", h.srv.lastRefreshToken())
	})

	t.Run("clear during refresh discards the result", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, -time.Minute, "r1")
		release := make(chan struct{})
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			<-release
			respondTokens(mintToken(t, h.clock.Now().Add(time.Hour)), "r2")(w, r)
		})

		result := make(chan *TokenPair)
		go func() { result <- h.m.Refresh(ctx) }()

		require.Eventually(t, func() bool { return h.srv.calls.Load() == 1 }, 2*time.Second, time.Millisecond)
		require.NoError(t, h.m.Logout(ctx))
		close(release)

		assert.Nil(t, <-result)
		got, _ := h.m.GetTokens(ctx)
		assert.Nil(t, got, "a logged out session must not come back")
	})

	t.Run("login during refresh keeps the new session", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, -time.Minute, "old-refresh")
		release := make(chan struct{})
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			<-release
			respondTokens(mintToken(t, h.clock.Now().Add(time.Hour)), "old-refresh-2")(w, r)
		})

		result := make(chan *TokenPair)
		go func() { result <- h.m.Refresh(ctx) }()

		require.Eventually(t, func() bool { return h.srv.calls.Load() == 1 }, 2*time.Second, time.Millisecond)
		_, err := h.m.Login(ctx, mintToken(t, h.clock.Now().Add(30*time.Minute)), "new-user-refresh")
		require.NoError(t, err)
		close(release)

		assert.Nil(t, <-result)
		got, err := h.m.GetTokens(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "new-user-refresh", got.RefreshToken)

		active := h.timers.active()
		require.Len(t, active, 1)
		assert.Equal(t, 25*time.Minute, active[0].delay)
	})
}

func TestRenewalTimerTriggersRefresh(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, DefaultPolicy())
	fresh := mintToken(t, h.clock.Now().Add(time.Hour))
	h.srv.respond(respondTokens(fresh, "r2"))

	_, err := h.m.Login(ctx, mintToken(t, h.clock.Now().Add(20*time.Minute)), "r1")
	require.NoError(t, err)

	active := h.timers.active()
	require.Len(t, active, 1)
	assert.Equal(t, 15*time.Minute, active[0].delay)

	h.clock.Advance(15 * time.Minute)
	active[0].f()
	h.m.coord.wg.Wait()

	assert.EqualValues(t, 1, h.srv.calls.Load())
	got, err := h.m.GetTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, fresh, got.AccessToken)

	next := h.timers.active()
	require.Len(t, next, 1)
	assert.Equal(t, 40*time.Minute, next[0].delay)
}

func TestManagerStartAndStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("status without session", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		require.NoError(t, h.m.Start(ctx))
		assert.Empty(t, h.timers.all())

		st, err := h.m.Status(ctx)
		require.NoError(t, err)
		assert.False(t, st.Authenticated)
		assert.Equal(t, "memory", st.Storage)
	})

	t.Run("status with session", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, 2*time.Minute, "r1")
		require.NoError(t, h.m.Start(ctx))

		st, err := h.m.Status(ctx)
		require.NoError(t, err)
		assert.True(t, st.Authenticated)
		assert.True(t, st.NearExpiry)
		assert.False(t, st.Expired)
		assert.Equal(t, 2*time.Minute, st.Remaining)
		assert.True(t, st.NextRenewal.Equal(h.clock.Now().Add(30*time.Second)))

		data, err := json.Marshal(st)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"authenticated":true`)
	})

	t.Run("start discards corrupted session", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		require.NoError(t, h.kv.Set(ctx, StorageKey, []byte("nope")))

		require.NoError(t, h.m.Start(ctx))
		_, err := h.kv.Get(ctx, StorageKey)
		assert.Error(t, err)
	})

	t.Run("login rejects token without expiry", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		_, err := h.m.Login(ctx, "opaque", "r1")
		assert.ErrorIs(t, err, shared.ErrMissingExpiry)
	})

	t.Run("close stops renewal", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, 10*time.Minute, "r1")
		require.NoError(t, h.m.Start(ctx))

		h.m.Close()
		assert.Empty(t, h.timers.active())
		assert.False(t, h.m.coord.RefreshInBackground())
	})

	t.Run("close lets a background renewal land", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		h.seed(t, 4*time.Minute, "r1")
		fresh := mintToken(t, h.clock.Now().Add(time.Hour))
		release := make(chan struct{})
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			<-release
			respondTokens(fresh, "r2")(w, r)
		})

		_, ok := h.m.GetValidAccessToken(ctx)
		require.True(t, ok)
		require.Eventually(t, func() bool { return h.srv.calls.Load() == 1 }, 2*time.Second, time.Millisecond)

		closed := make(chan struct{})
		go func() {
			h.m.Close()
			close(closed)
		}()
		close(release)
		<-closed

		got, err := h.m.GetTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, fresh, got.AccessToken)
		assert.Empty(t, h.timers.active(), "no timer survives close")
	})

	t.Run("close cancels a renewal that outlives the drain", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		old := h.seed(t, 4*time.Minute, "r1")
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		h.srv.respond(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
		h.m.coord.drain = 20 * time.Millisecond

		_, ok := h.m.GetValidAccessToken(ctx)
		require.True(t, ok)
		require.Eventually(t, func() bool { return h.srv.calls.Load() == 1 }, 2*time.Second, time.Millisecond)

		start := time.Now()
		h.m.Close()
		assert.Less(t, time.Since(start), time.Second)

		got, err := h.m.GetTokens(ctx)
		require.NoError(t, err)
		assert.Equal(t, old, got, "a cancelled renewal keeps the session")
	})
}

func TestTokenSource(t *testing.T) {
	ctx := context.Background()

	t.Run("yields bearer token", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		pair := h.seed(t, 30*time.Minute, "r1")

		tok, err := h.m.TokenSource(ctx).Token()
		require.NoError(t, err)
		assert.Equal(t, pair.AccessToken, tok.AccessToken)
		assert.Equal(t, "Bearer", tok.Type())
		assert.True(t, tok.Expiry.Equal(pair.ExpiryTime()))
	})

	t.Run("no session", func(t *testing.T) {
		h := newHarness(t, DefaultPolicy())
		_, err := h.m.TokenSource(ctx).Token()
		assert.ErrorIs(t, err, shared.ErrNotAuthenticated)
	})
}
