// Package domain contains persistence models for the sponsor service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Sponsor is a sponsoring business shown in the public directory.
type Sponsor struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name            string            `gorm:"type:text;not null" json:"name"`
	Slug            string            `gorm:"type:text;not null;uniqueIndex:ux_sponsors_slug" json:"slug"`
	Tagline         string            `gorm:"type:text" json:"tagline"`
	Description     string            `gorm:"type:text" json:"description"`
	LogoURL         string            `gorm:"type:text;column:logo_url" json:"logo_url"`
	BannerURL       string            `gorm:"type:text;column:banner_url" json:"banner_url"`
	Category        pq.StringArray    `gorm:"type:text[]" json:"category"`
	WebsiteURL      string            `gorm:"type:text;column:website_url" json:"website_url"`
	ContactEmail    string            `gorm:"type:text;column:contact_email" json:"contact_email"`
	ContactPhone    string            `gorm:"type:text;column:contact_phone" json:"contact_phone"`
	AddressStreet   string            `gorm:"type:text;column:address_street" json:"address_street"`
	AddressCity     string            `gorm:"type:text;column:address_city" json:"address_city"`
	AddressState    string            `gorm:"type:text;column:address_state" json:"address_state"`
	AddressZip      string            `gorm:"type:text;column:address_zip" json:"address_zip"`
	SocialInstagram string            `gorm:"type:text;column:social_instagram" json:"social_instagram"`
	SocialFacebook  string            `gorm:"type:text;column:social_facebook" json:"social_facebook"`
	SocialStrava    string            `gorm:"type:text;column:social_strava" json:"social_strava"`
	SocialTwitter   string            `gorm:"type:text;column:social_twitter" json:"social_twitter"`
	Status          string            `gorm:"type:text;not null;default:pending" json:"status"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Sponsor) TableName() string { return "sponsors" }

// SponsorAdmin links a profile to the sponsor it manages.
type SponsorAdmin struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	SponsorID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_sponsor_user,priority:1" json:"sponsor_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_sponsor_user,priority:2" json:"user_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (SponsorAdmin) TableName() string { return "sponsor_admins" }
