package session

import (
	"fmt"
	"time"

	"github.com/desertthunder/setlist/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// StorageKey is where the session lives in the backing [storage.KV].
const StorageKey = "auth_tokens"

// TokenPair is the persisted session credential.
//
// ExpiresAt is epoch milliseconds and always comes from the access token's
// exp claim.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// NewTokenPair builds a pair, reading the expiry from access.
func NewTokenPair(access, refresh string) (*TokenPair, error) {
	exp, err := ExpiryFromToken(access)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp.UnixMilli()}, nil
}

// ExpiryFromToken decodes the exp claim of a JWT without checking its
// signature. The result is only used to schedule renewal; the server still
// rejects expired tokens on its own.
func ExpiryFromToken(raw string) (time.Time, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", shared.ErrMissingExpiry, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, shared.ErrMissingExpiry
	}
	return claims.ExpiresAt.Time, nil
}

// ExpiryTime returns ExpiresAt as a [time.Time].
func (p *TokenPair) ExpiryTime() time.Time {
	return time.UnixMilli(p.ExpiresAt)
}

// Remaining is how long the access token has left at now. Negative once expired.
func (p *TokenPair) Remaining(now time.Time) time.Duration {
	return p.ExpiryTime().Sub(now)
}

func (p *TokenPair) valid() bool {
	return p.AccessToken != "" && p.ExpiresAt > 0
}
