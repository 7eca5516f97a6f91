// Package domain contains persistence models for analytics events.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventSponsorView    = "sponsor_view"
	EventPromotionView  = "promotion_view"
	EventPromotionClick = "promotion_click"
	EventCouponReveal   = "coupon_reveal"
	EventBlogView       = "blog_view"
)

// Event is one public-site interaction, written fire-and-forget from the
// tracking endpoint.
type Event struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	EventType   string            `gorm:"type:text;not null;index" json:"event_type"`
	SponsorID   *snowflake.ID     `gorm:"index" json:"sponsor_id,omitempty"`
	PromotionID *snowflake.ID     `gorm:"index" json:"promotion_id,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index" json:"created_at"`
}

// TableName sets the database table name.
func (Event) TableName() string { return "analytics_events" }
