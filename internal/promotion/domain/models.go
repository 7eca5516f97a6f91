// Package domain contains persistence models for the promotion service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	TypeEvergreen    = "evergreen"
	TypeTimeLimited  = "time_limited"
	TypeCouponCode   = "coupon_code"
	TypeExternalLink = "external_link"
)

const (
	StatusDraft           = "draft"
	StatusPendingApproval = "pending_approval"
	StatusActive          = "active"
	StatusExpired         = "expired"
	StatusArchived        = "archived"
)

const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

func ValidType(t string) bool {
	switch t {
	case TypeEvergreen, TypeTimeLimited, TypeCouponCode, TypeExternalLink:
		return true
	}
	return false
}

func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPendingApproval, StatusActive, StatusExpired, StatusArchived:
		return true
	}
	return false
}

// Promotion belongs to exactly one sponsor. Status tracks the public
// lifecycle while ApprovalStatus tracks the review decision; the two move
// together through the approval flow but are stored separately.
type Promotion struct {
	ID             snowflake.ID  `gorm:"primaryKey" json:"id"`
	SponsorID      snowflake.ID  `gorm:"not null;index" json:"sponsor_id"`
	Title          string        `gorm:"type:text;not null" json:"title"`
	Description    string        `gorm:"type:text" json:"description"`
	PromotionType  string        `gorm:"type:text;not null;column:promotion_type" json:"promotion_type"`
	StartDate      time.Time     `gorm:"not null" json:"start_date"`
	EndDate        *time.Time    `json:"end_date,omitempty"`
	CouponCode     string        `gorm:"type:text" json:"coupon_code,omitempty"`
	ExternalLink   string        `gorm:"type:text" json:"external_link,omitempty"`
	Terms          string        `gorm:"type:text" json:"terms,omitempty"`
	IsFeatured     bool          `gorm:"not null;default:false" json:"is_featured"`
	Status         string        `gorm:"type:text;not null;default:draft;index" json:"status"`
	ApprovalStatus string        `gorm:"type:text;not null;default:pending" json:"approval_status"`
	ApprovedBy     *snowflake.ID `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time    `json:"approved_at,omitempty"`
	ApprovalNotes  string        `gorm:"type:text" json:"approval_notes,omitempty"`
	PublishToSite  bool          `gorm:"not null;default:true" json:"publish_to_site"`
	PublishToSlack bool          `gorm:"not null;default:false" json:"publish_to_slack"`
	SlackChannel   string        `gorm:"type:text" json:"slack_channel,omitempty"`
	CreatedBy      *snowflake.ID `json:"created_by,omitempty"`
	CreatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Promotion) TableName() string { return "promotions" }

// Visible reports whether the promotion shows on the public site at the
// given instant. The row-level-security policy for anonymous reads encodes
// the same predicate; the sponsorctl visibility command replays this
// function against a stored row to detect drift between the two.
func (p *Promotion) Visible(now time.Time) bool {
	if p.Status != StatusActive {
		return false
	}
	if p.StartDate.After(now) {
		return false
	}
	if p.EndDate != nil && p.EndDate.Before(now) {
		return false
	}
	return true
}
