package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlist/internal/metrics"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/storage"
)

// Timer is the part of [time.Timer] the store needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. [time.AfterFunc] is the default.
type AfterFunc func(d time.Duration, f func()) Timer

func defaultAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Store owns the persisted [TokenPair] and the single renewal timer.
type Store struct {
	kv        storage.KV
	policy    Policy
	now       func() time.Time
	afterFunc AfterFunc
	logger    *log.Logger

	mu          sync.Mutex
	timer       Timer
	generation  uint64
	epoch       uint64
	nextRenewal time.Time
	onRenew     func()
	onReset     func()
}

// StoreOpts configures a [Store]. Zero values get defaults.
type StoreOpts struct {
	Storage   storage.KV
	Policy    Policy
	Now       func() time.Time
	AfterFunc AfterFunc
	Logger    *log.Logger
}

// NewStore creates a [Store] backed by opts.Storage.
func NewStore(opts StoreOpts) *Store {
	if opts.Storage == nil {
		opts.Storage = storage.NewMemoryStore()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.AfterFunc == nil {
		opts.AfterFunc = defaultAfterFunc
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Store{
		kv:        opts.Storage,
		policy:    opts.Policy.withDefaults(),
		now:       opts.Now,
		afterFunc: opts.AfterFunc,
		logger:    opts.Logger,
	}
}

// SetTokens persists pair and re-arms the renewal timer. The write completes
// before the new timer exists, and the previous timer is always disarmed first.
//
// A stored pair starts a new session: refreshes already in flight for the
// previous one are discarded when they land.
func (s *Store) SetTokens(ctx context.Context, pair *TokenPair) error {
	s.mu.Lock()
	err := s.setLocked(ctx, pair)
	if err == nil {
		s.epoch++
	}
	onReset := s.onReset
	s.mu.Unlock()

	if err == nil && onReset != nil {
		onReset()
	}
	return err
}

// setTokensIfEpoch is SetTokens for a refresh result. It stores pair only
// when the session was neither replaced nor cleared since epoch was read,
// and reports whether it did.
func (s *Store) setTokensIfEpoch(ctx context.Context, pair *TokenPair, epoch uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return false, nil
	}
	if err := s.setLocked(ctx, pair); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) setLocked(ctx context.Context, pair *TokenPair) error {
	if pair == nil || !pair.valid() {
		return fmt.Errorf("%w: token pair needs an access token and expiry", shared.ErrInvalidInput)
	}

	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("failed to encode tokens: %w", err)
	}
	if err := s.kv.Set(ctx, StorageKey, data); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	s.armLocked(pair)
	return nil
}

// GetTokens returns the stored pair, or nil when there is none.
func (s *Store) GetTokens(ctx context.Context) (*TokenPair, error) {
	data, err := s.kv.Get(ctx, StorageKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read tokens: %w", err)
	}

	var pair TokenPair
	if err := json.Unmarshal(data, &pair); err != nil || !pair.valid() {
		return nil, fmt.Errorf("%w: %s", shared.ErrStorageCorrupted, StorageKey)
	}
	return &pair, nil
}

// ClearTokens erases the stored pair, disarms the timer and drops in-flight
// refresh bookkeeping. Safe to call when nothing is stored.
func (s *Store) ClearTokens(ctx context.Context) error {
	s.mu.Lock()
	s.epoch++
	s.disarmLocked()
	err := s.kv.Delete(ctx, StorageKey)
	onReset := s.onReset
	s.mu.Unlock()

	if onReset != nil {
		onReset()
	}
	if err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

// clearFor clears the session and records why.
func (s *Store) clearFor(ctx context.Context, reason string) {
	metrics.TokenClearsTotal.WithLabelValues(reason).Inc()
	if err := s.ClearTokens(ctx); err != nil {
		s.logger.Error("failed to clear session", "reason", reason, "err", err)
		return
	}
	s.logger.Info("session cleared", "reason", reason)
}

// IsNearExpiry reports whether pair is within the conservative buffer of its
// expiry, or past it.
func (s *Store) IsNearExpiry(pair *TokenPair) bool {
	return !s.now().Before(pair.ExpiryTime().Add(-s.policy.ExpiryBuffer))
}

// IsPastHardExpiry reports whether pair has actually expired, with no buffer.
func (s *Store) IsPastHardExpiry(pair *TokenPair) bool {
	return !s.now().Before(pair.ExpiryTime())
}

// Schedule arms the renewal timer for an already stored pair.
func (s *Store) Schedule(pair *TokenPair) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armLocked(pair)
}

// Stop disarms the renewal timer.
func (s *Store) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disarmLocked()
}

// NextRenewal returns when the pending timer fires, if one is armed.
func (s *Store) NextRenewal() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRenewal, s.timer != nil
}

func (s *Store) currentEpoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// renewalDelay is max(expiresAt - now - lead, minimum).
func (s *Store) renewalDelay(pair *TokenPair) time.Duration {
	d := pair.Remaining(s.now()) - s.policy.RenewalLead
	return max(d, s.policy.MinimumDelay)
}

func (s *Store) armLocked(pair *TokenPair) {
	s.disarmLocked()

	gen := s.generation
	delay := s.renewalDelay(pair)
	s.timer = s.afterFunc(delay, func() { s.fire(gen) })
	s.nextRenewal = s.now().Add(delay)

	s.logger.Debug("renewal scheduled", "in", delay.Round(time.Second), "expires", pair.ExpiryTime().Format(time.RFC3339))
}

// disarmLocked stops the timer and bumps the generation so a callback that
// already started sees it is stale.
func (s *Store) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.nextRenewal = time.Time{}
	s.generation++
}

func (s *Store) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.nextRenewal = time.Time{}
	renew := s.onRenew
	s.mu.Unlock()

	if renew != nil {
		renew()
	}
}
