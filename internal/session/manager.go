package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlist/internal/metrics"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/storage"
)

// Manager is the process-wide session service. Build one with [NewManager]
// and pass it to everything that needs a token.
type Manager struct {
	store   *Store
	coord   *Coordinator
	policy  Policy
	now     func() time.Time
	logger  *log.Logger
	storage storage.KV
}

// ManagerOpts configures a [Manager]. Only BaseURL is required.
type ManagerOpts struct {
	Storage    storage.KV
	HTTPClient *http.Client
	BaseURL    string
	Policy     Policy
	Logger     *log.Logger
	Now        func() time.Time
	AfterFunc  AfterFunc
}

// Status summarizes the stored session.
type Status struct {
	Authenticated bool          `json:"authenticated"`
	ExpiresAt     time.Time     `json:"expiresAt,omitzero"`
	Remaining     time.Duration `json:"remaining"`
	NearExpiry    bool          `json:"nearExpiry"`
	Expired       bool          `json:"expired"`
	NextRenewal   time.Time     `json:"nextRenewal,omitzero"`
	Storage       string        `json:"storage"`
}

// NewManager wires a [Store] and [Coordinator] together.
func NewManager(opts ManagerOpts) (*Manager, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", shared.ErrInvalidConfig, opts.BaseURL)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStore()
	}
	logger := shared.WithLogger(opts.Logger, "component", "session")

	store := NewStore(StoreOpts{
		Storage:   opts.Storage,
		Policy:    opts.Policy,
		Now:       opts.Now,
		AfterFunc: opts.AfterFunc,
		Logger:    logger,
	})
	coord := newCoordinator(store, opts.HTTPClient, strings.TrimRight(opts.BaseURL, "/"), logger)

	return &Manager{
		store:   store,
		coord:   coord,
		policy:  store.policy,
		now:     store.now,
		logger:  logger,
		storage: opts.Storage,
	}, nil
}

// Start re-arms the renewal timer for a session persisted by an earlier run.
func (m *Manager) Start(ctx context.Context) error {
	pair, err := m.store.GetTokens(ctx)
	if errors.Is(err, shared.ErrStorageCorrupted) {
		m.logger.Warn("discarding unreadable session", "err", err)
		m.store.clearFor(ctx, "corrupted")
		return nil
	}
	if err != nil {
		return err
	}
	if pair != nil {
		m.store.Schedule(pair)
	}
	return nil
}

// Close lets in-flight background renewals finish within a short drain
// period, cancels any that are still running after it and then stops the
// timer, including one re-armed by a renewal that landed while draining.
func (m *Manager) Close() {
	m.coord.Close()
	m.store.Stop()
}

// GetValidAccessToken returns a usable access token, refreshing first when
// the stored one is near expiry. ok is false when there is no session or the
// refresh failed.
func (m *Manager) GetValidAccessToken(ctx context.Context) (token string, ok bool) {
	pair, err := m.store.GetTokens(ctx)
	if err != nil {
		m.logger.Warn("failed to read session", "err", err)
		if errors.Is(err, shared.ErrStorageCorrupted) {
			m.store.clearFor(ctx, "corrupted")
		}
		return "", false
	}
	if pair == nil {
		return "", false
	}

	if !m.store.IsNearExpiry(pair) {
		if pair.Remaining(m.now()) <= m.policy.ProactiveWindow {
			m.coord.RefreshInBackground()
		}
		return pair.AccessToken, true
	}

	m.logger.Debug("access token near expiry, refreshing", "expired", m.store.IsPastHardExpiry(pair))
	fresh := m.coord.Refresh(ctx)
	if fresh == nil {
		return "", false
	}
	return fresh.AccessToken, true
}

// Login stores the tokens returned by a login call.
func (m *Manager) Login(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	pair, err := NewTokenPair(accessToken, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := m.store.SetTokens(ctx, pair); err != nil {
		return nil, err
	}
	m.logger.Info("session started", "expires", pair.ExpiryTime().Format(time.RFC3339))
	return pair, nil
}

// Logout clears the session.
func (m *Manager) Logout(ctx context.Context) error {
	metrics.TokenClearsTotal.WithLabelValues("logout").Inc()
	return m.store.ClearTokens(ctx)
}

// Refresh forces a blocking refresh.
func (m *Manager) Refresh(ctx context.Context) *TokenPair {
	return m.coord.Refresh(ctx)
}

func (m *Manager) SetTokens(ctx context.Context, pair *TokenPair) error {
	return m.store.SetTokens(ctx, pair)
}

func (m *Manager) GetTokens(ctx context.Context) (*TokenPair, error) {
	return m.store.GetTokens(ctx)
}

func (m *Manager) ClearTokens(ctx context.Context) error {
	return m.store.ClearTokens(ctx)
}

func (m *Manager) IsNearExpiry(pair *TokenPair) bool {
	return m.store.IsNearExpiry(pair)
}

func (m *Manager) IsPastHardExpiry(pair *TokenPair) bool {
	return m.store.IsPastHardExpiry(pair)
}

// Status reports the stored session without triggering a refresh.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	st := &Status{Storage: storage.Describe(m.storage)}

	pair, err := m.store.GetTokens(ctx)
	if err != nil {
		return st, err
	}
	if pair == nil {
		return st, nil
	}

	st.Authenticated = true
	st.ExpiresAt = pair.ExpiryTime()
	st.Remaining = pair.Remaining(m.now())
	st.NearExpiry = m.store.IsNearExpiry(pair)
	st.Expired = m.store.IsPastHardExpiry(pair)
	if next, ok := m.store.NextRenewal(); ok {
		st.NextRenewal = next
	}
	return st, nil
}
