package brief

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"meetprep/internal/gateway"
	"meetprep/internal/models"
	"meetprep/internal/store"
)

// refreshSkew refreshes tokens that expire within this window.
const refreshSkew = 5 * time.Minute

// TokenManager hands out a user's Google token, refreshing it when it is
// about to expire. Concurrent runs for the same user share one refresh.
type TokenManager struct {
	store  store.Store
	oauth  gateway.TokenGateway
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewTokenManager(logger *slog.Logger, st store.Store, oauth gateway.TokenGateway) *TokenManager {
	return &TokenManager{store: st, oauth: oauth, logger: logger, now: time.Now}
}

// Token returns a usable token for u. On refresh failure it returns the
// stored token together with the error, so the caller can carry on with it.
func (m *TokenManager) Token(ctx context.Context, u *models.User) (*oauth2.Token, error) {
	current := tokenOf(u)
	if !m.needsRefresh(u) {
		return current, nil
	}

	// The shared refresh runs detached from the first caller's context; each
	// caller stops waiting on its own cancellation.
	flightCtx := context.WithoutCancel(ctx)
	ch := m.group.DoChan(u.ID, func() (any, error) {
		// Another run may have refreshed while we waited on the store.
		fresh, err := m.store.GetUser(flightCtx, u.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reload user: %w", err)
		}
		if !m.needsRefresh(fresh) {
			return tokenOf(fresh), nil
		}

		tok, err := m.oauth.Refresh(flightCtx, fresh.GoogleRefreshToken)
		if err != nil {
			return nil, err
		}

		var expiry *time.Time
		if !tok.Expiry.IsZero() {
			expiry = &tok.Expiry
		}
		if err := m.store.UpdateTokens(flightCtx, u.ID, tok.AccessToken, tok.RefreshToken, expiry); err != nil {
			m.logger.Error("Failed to persist refreshed token", "userID", u.ID, "error", err)
		}
		return tok, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return current, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return current, res.Err
	}
	m.logger.Debug("Access token ready", "userID", u.ID, "shared", res.Shared)
	return res.Val.(*oauth2.Token), nil
}

// needsRefresh is true when a refresh token exists and the access token is
// missing or expires within refreshSkew. An unknown expiry is trusted.
func (m *TokenManager) needsRefresh(u *models.User) bool {
	if u.GoogleRefreshToken == "" {
		return false
	}
	if u.GoogleAccessToken == "" {
		return true
	}
	return u.TokenExpiry != nil && !m.now().Add(refreshSkew).Before(*u.TokenExpiry)
}

func tokenOf(u *models.User) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  u.GoogleAccessToken,
		RefreshToken: u.GoogleRefreshToken,
		TokenType:    "Bearer",
	}
	if u.TokenExpiry != nil {
		tok.Expiry = *u.TokenExpiry
	}
	return tok
}
