package session

import (
	"time"

	"github.com/desertthunder/setlist/internal/shared"
)

// Policy holds the buffers and timeouts that drive renewal.
type Policy struct {
	// ExpiryBuffer makes IsNearExpiry report true this long before exp.
	ExpiryBuffer time.Duration
	// RenewalLead is how long before exp the renewal timer fires.
	RenewalLead time.Duration
	// MinimumDelay floors the timer delay.
	MinimumDelay time.Duration
	// ProactiveWindow triggers a background renewal when a still-usable
	// token has at most this much time left.
	ProactiveWindow time.Duration
	// RefreshTimeout bounds the refresh exchange.
	RefreshTimeout time.Duration
	// BackgroundCooldown suppresses background renewals started within this
	// long of the previous one. Zero disables it.
	BackgroundCooldown time.Duration
}

// DefaultPolicy returns the standard timings.
func DefaultPolicy() Policy {
	return Policy{
		ExpiryBuffer:       3 * time.Minute,
		RenewalLead:        5 * time.Minute,
		MinimumDelay:       30 * time.Second,
		ProactiveWindow:    5 * time.Minute,
		RefreshTimeout:     20 * time.Second,
		BackgroundCooldown: 10 * time.Second,
	}
}

// PolicyFromConfig reads timings from config, keeping defaults for zero values.
func PolicyFromConfig(cfg shared.SessionConfig) Policy {
	p := DefaultPolicy()
	pick := func(dst *time.Duration, v shared.Duration) {
		if v.Duration > 0 {
			*dst = v.Duration
		}
	}
	pick(&p.ExpiryBuffer, cfg.ExpiryBuffer)
	pick(&p.RenewalLead, cfg.RenewalLead)
	pick(&p.MinimumDelay, cfg.MinimumDelay)
	pick(&p.ProactiveWindow, cfg.ProactiveWindow)
	pick(&p.RefreshTimeout, cfg.RefreshTimeout)
	pick(&p.BackgroundCooldown, cfg.BackgroundCooldown)
	return p
}

// withDefaults fills zero durations, except BackgroundCooldown which may be
// zero on purpose.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.ExpiryBuffer <= 0 {
		p.ExpiryBuffer = d.ExpiryBuffer
	}
	if p.RenewalLead <= 0 {
		p.RenewalLead = d.RenewalLead
	}
	if p.MinimumDelay <= 0 {
		p.MinimumDelay = d.MinimumDelay
	}
	if p.ProactiveWindow <= 0 {
		p.ProactiveWindow = d.ProactiveWindow
	}
	if p.RefreshTimeout <= 0 {
		p.RefreshTimeout = d.RefreshTimeout
	}
	return p
}
