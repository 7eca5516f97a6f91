package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TokenTTL is how long an invitation link stays valid.
const TokenTTL = 7 * 24 * time.Hour

type Service interface {
	// Issue records an invitation and sends the link by email. Email delivery
	// is best-effort: a failed send still returns the created invitation with
	// EmailSent=false and a warning for the caller to surface.
	Issue(ctx context.Context, req IssueRequest) (*IssueResult, error)
	Validate(ctx context.Context, token string) (*InvitationResponse, error)
	Accept(ctx context.Context, req AcceptRequest) error
	Revoke(ctx context.Context, id string) error
	// Inspect assembles the whole invitation flow state for an email, used by
	// the diagnostic CLI.
	Inspect(ctx context.Context, email string) (*FlowState, error)
	// ExpireSweep flips pending invitations past expiry to expired.
	ExpireSweep(ctx context.Context, limit int) (int, error)
}

type IssueRequest struct {
	Email       string
	Role        string
	SponsorID   string
	SponsorName string
	CreatedBy   snowflake.ID
}

type IssueResult struct {
	InvitationID  string `json:"invitation_id"`
	InvitationURL string `json:"invitation_url"`
	EmailSent     bool   `json:"email_sent"`
	Warning       string `json:"warning,omitempty"`
}

type AcceptRequest struct {
	Token     string
	UserID    snowflake.ID
	Email     string
	Role      string
	SponsorID string
}

type InvitationResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	SponsorID  string     `json:"sponsor_id,omitempty"`
	Status     string     `json:"status"`
	EmailSent  bool       `json:"email_sent"`
	ExpiresAt  time.Time  `json:"expires_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FlowState is the assembled invitation-to-access state for one email.
type FlowState struct {
	Email       string               `json:"email"`
	Invitations []InvitationResponse `json:"invitations"`
	HasProfile  bool                 `json:"has_profile"`
	ProfileRole string               `json:"profile_role,omitempty"`
	HasLink     bool                 `json:"has_sponsor_link"`
	SponsorID   string               `json:"sponsor_id,omitempty"`
}

var (
	ErrNotFound        = errors.New("invitation_not_found")
	ErrExpired         = errors.New("invitation_expired")
	ErrAlreadyAccepted = errors.New("invitation_already_accepted")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidRole     = errors.New("invalid_role")
	ErrInvalidToken    = errors.New("invalid_token")
	ErrInvalidID       = errors.New("invalid_invitation_id")
	ErrSponsorRequired = errors.New("sponsor_required")
	ErrUserMismatch    = errors.New("user_mismatch")
	ErrLinkUnverified  = errors.New("sponsor_link_unverified")
)
