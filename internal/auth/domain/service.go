package domain

import (
	"context"
	"time"

	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
)

type Service interface {
	// RequestMagicLink issues a short-lived signed login token and mails the
	// link. Delivery is best-effort: a failed send is reported in the result,
	// not as an error, so the endpoint cannot be used to probe addresses.
	RequestMagicLink(ctx context.Context, req MagicLinkRequest) (*MagicLinkResult, error)
	// Redeem exchanges a valid magic-link token for a session, creating the
	// profile on first login.
	Redeem(ctx context.Context, req RedeemRequest) (*LoginResult, error)
	Logout(ctx context.Context, rawToken string) error
	// Authenticate resolves a raw session token to a live session.
	Authenticate(ctx context.Context, rawToken string) (*Session, error)
	// PruneSessions deletes expired session rows.
	PruneSessions(ctx context.Context) (int64, error)
}

type MagicLinkRequest struct {
	Email string `json:"email" binding:"required"`
}

type MagicLinkResult struct {
	EmailSent bool   `json:"email_sent"`
	Warning   string `json:"warning,omitempty"`
}

type RedeemRequest struct {
	Token     string
	UserAgent string
	IPAddress string
}

type LoginResult struct {
	Profile   *profiledomain.ProfileResponse `json:"profile"`
	RawToken  string                         `json:"-"`
	ExpiresAt time.Time                      `json:"expires_at"`
}
