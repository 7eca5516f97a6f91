// Package domain contains persistence models for outbound Slack delivery.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

const (
	EventNewPromotion      = "new_promotion"
	EventFeaturedPromotion = "featured_promotion"
	EventPromotionPending  = "promotion_pending"
	EventNewSponsor        = "new_sponsor"
	EventBlogPost          = "blog_post"
)

// Notification is the delivery record for one outbound Slack message. Rows
// are written before the API call and updated with the outcome, so failed
// deliveries stay inspectable.
type Notification struct {
	ID               snowflake.ID   `gorm:"primaryKey" json:"id"`
	NotificationType string         `gorm:"type:text;not null;index" json:"notification_type"`
	Channel          string         `gorm:"type:text" json:"channel"`
	Payload          datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	Status           string         `gorm:"type:text;not null;default:pending;index" json:"status"`
	ErrorMessage     string         `gorm:"type:text" json:"error_message,omitempty"`
	Attempts         int            `gorm:"not null;default:0" json:"attempts"`
	SentAt           *time.Time     `json:"sent_at,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (Notification) TableName() string { return "slack_notifications" }
