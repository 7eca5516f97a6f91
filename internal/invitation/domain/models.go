// Package domain contains persistence models for the invitation service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusExpired  = "expired"
	StatusRevoked  = "revoked"
)

// Invitation is a pending offer to join the portal with a role, optionally
// bound to a sponsor. The token is single-use and expires after seven days.
type Invitation struct {
	ID         snowflake.ID  `gorm:"primaryKey" json:"id"`
	Email      string        `gorm:"type:text;not null;index" json:"email"`
	Role       string        `gorm:"type:text;not null" json:"role"`
	SponsorID  *snowflake.ID `gorm:"index" json:"sponsor_id,omitempty"`
	Token      string        `gorm:"type:text;not null;uniqueIndex:ux_invitations_token" json:"-"`
	Status     string        `gorm:"type:text;not null;default:pending" json:"status"`
	EmailSent  bool          `gorm:"column:email_sent;not null;default:false" json:"email_sent"`
	ExpiresAt  time.Time     `gorm:"not null" json:"expires_at"`
	AcceptedAt *time.Time    `gorm:"column:accepted_at" json:"accepted_at,omitempty"`
	CreatedBy  *snowflake.ID `gorm:"column:created_by" json:"created_by,omitempty"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Invitation) TableName() string { return "invitations" }

// Expired reports whether the invitation is past its expiry at the given time.
// ExpiresAt and AcceptedAt stay authoritative; the status column is a
// denormalized view maintained by the sweep job.
func (i Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// Accepted reports whether the invitation has already been redeemed.
func (i Invitation) Accepted() bool {
	return i.AcceptedAt != nil
}
