package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlist/internal/metrics"
	"github.com/desertthunder/setlist/internal/models"
	"github.com/desertthunder/setlist/internal/shared"
	"golang.org/x/sync/singleflight"
)

const (
	RefreshPath = "/auth/refresh"
	flightKey   = "refresh"

	// closeDrain bounds how long Close waits for background renewals
	// before cancelling them.
	closeDrain = 2 * time.Second
)

// Coordinator exchanges the refresh token for a new pair, one exchange at a time.
type Coordinator struct {
	store      *Store
	client     *http.Client
	refreshURL string
	policy     Policy
	now        func() time.Time
	logger     *log.Logger

	group singleflight.Group

	// base outlives any single caller; Close cancels it.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	drain  time.Duration

	mu             sync.Mutex
	closed         bool
	lastBackground time.Time
}

func newCoordinator(store *Store, client *http.Client, baseURL string, logger *log.Logger) *Coordinator {
	base, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		store:      store,
		client:     client,
		refreshURL: baseURL + RefreshPath,
		policy:     store.policy,
		now:        store.now,
		logger:     logger,
		base:       base,
		cancel:     cancel,
		drain:      closeDrain,
	}
	store.onReset = func() { c.group.Forget(flightKey) }
	store.onRenew = func() { c.RefreshInBackground() }
	return c
}

// Refresh returns a fresh pair, or nil when none could be obtained.
//
// Concurrent callers share one exchange. The exchange runs on a context
// detached from ctx, so a caller that gives up only stops waiting.
func (c *Coordinator) Refresh(ctx context.Context) *TokenPair {
	ch := c.group.DoChan(flightKey, func() (any, error) {
		return c.exchange(c.base), nil
	})

	select {
	case res := <-ch:
		pair, _ := res.Val.(*TokenPair)
		return pair
	case <-ctx.Done():
		return nil
	}
}

// RefreshInBackground starts a renewal nobody waits for. It reports whether
// one was started; a call inside the cooldown window is skipped.
func (c *Coordinator) RefreshInBackground() bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	now := c.now()
	if cd := c.policy.BackgroundCooldown; cd > 0 && !c.lastBackground.IsZero() && now.Sub(c.lastBackground) < cd {
		c.mu.Unlock()
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshSkipped).Inc()
		c.logger.Debug("background renewal skipped", "since_last", now.Sub(c.lastBackground))
		return false
	}
	c.lastBackground = now
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if pair := c.Refresh(c.base); pair == nil {
			c.logger.Warn("background renewal did not produce a token")
		}
	}()
	return true
}

// Close stops new background renewals and gives the ones in flight up to
// the drain period to land. Whatever is still running after that is
// cancelled; Close returns once every background renewal has exited.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(c.drain)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		c.logger.Warn("background renewal still running, cancelling", "drain", c.drain)
	}

	c.cancel()
	<-done
}

func (c *Coordinator) exchange(ctx context.Context) *TokenPair {
	epoch := c.store.currentEpoch()

	current, err := c.store.GetTokens(ctx)
	switch {
	case errors.Is(err, shared.ErrStorageCorrupted):
		c.logger.Warn("stored session is unreadable", "err", err)
		c.store.clearFor(ctx, "corrupted")
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshNoToken).Inc()
		return nil
	case err != nil:
		c.logger.Warn("could not read session for refresh", "err", err)
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshTransient).Inc()
		return nil
	case current == nil || current.RefreshToken == "":
		c.store.clearFor(ctx, "no_refresh_token")
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshNoToken).Inc()
		return nil
	}

	start := c.now()
	resp, err := c.post(ctx, current.RefreshToken)
	metrics.RefreshDuration.Observe(c.now().Sub(start).Seconds())
	if err != nil {
		c.logger.Warn("refresh failed, keeping session", "err", err)
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshTransient).Inc()
		return nil
	}

	if resp.terminal {
		c.logger.Warn("refresh token rejected", "status", resp.status)
		c.store.clearFor(ctx, "refresh_rejected")
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshTerminal).Inc()
		return nil
	}

	refresh := resp.body.RefreshToken
	if refresh == "" {
		refresh = current.RefreshToken
	}
	pair, err := NewTokenPair(resp.body.AccessToken, refresh)
	if err != nil {
		c.logger.Warn("refresh returned an unusable access token", "err", err)
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshTransient).Inc()
		return nil
	}

	stored, err := c.store.setTokensIfEpoch(ctx, pair, epoch)
	if err != nil {
		c.logger.Error("failed to store refreshed session", "err", err)
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshTransient).Inc()
		return nil
	}
	if !stored {
		c.logger.Info("session changed during refresh, discarding result")
		metrics.RefreshTotal.WithLabelValues(metrics.RefreshDiscarded).Inc()
		return nil
	}

	c.logger.Info("session refreshed", "expires", pair.ExpiryTime().Format(time.RFC3339), "token", shared.RedactToken(pair.AccessToken))
	metrics.RefreshTotal.WithLabelValues(metrics.RefreshSuccess).Inc()
	return pair
}

type refreshResult struct {
	status   int
	terminal bool
	body     models.AuthResponse
}

// post performs the exchange. A returned error is always transient; a 401 or
// 403 comes back as a terminal result instead.
func (c *Coordinator) post(ctx context.Context, refreshToken string) (*refreshResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.policy.RefreshTimeout)
	defer cancel()

	payload, err := json.Marshal(models.RefreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fmt.Errorf("failed to encode refresh request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s: %v", shared.ErrTimeout, c.policy.RefreshTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrNetwork, err)
	}
	defer resp.Body.Close()

	result := &refreshResult{status: resp.StatusCode}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		result.terminal = true
		return result, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", shared.ErrRefreshFailed, resp.StatusCode, bytes.TrimSpace(snippet))
	}

	if err := json.NewDecoder(resp.Body).Decode(&result.body); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", shared.ErrRefreshFailed, err)
	}
	if result.body.AccessToken == "" {
		return nil, fmt.Errorf("%w: response has no access token", shared.ErrRefreshFailed)
	}
	return result, nil
}
