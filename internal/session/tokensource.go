package session

import (
	"context"

	"github.com/desertthunder/setlist/internal/shared"
	"golang.org/x/oauth2"
)

type tokenSource struct {
	ctx context.Context
	m   *Manager
}

// TokenSource adapts the session to [oauth2.TokenSource], for use with
// [oauth2.Transport] or [oauth2.NewClient]. Each Token call goes through
// GetValidAccessToken, so renewal still happens in one place.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, m: m}
}

func (s *tokenSource) Token() (*oauth2.Token, error) {
	access, ok := s.m.GetValidAccessToken(s.ctx)
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
	if exp, err := ExpiryFromToken(access); err == nil {
		tok.Expiry = exp
	}
	return tok, nil
}
