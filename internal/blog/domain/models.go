// Package domain contains persistence models for the blog service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Post is an editorial article, optionally tagged with the sponsors it
// covers.
type Post struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Title            string       `gorm:"type:text;not null" json:"title"`
	Slug             string       `gorm:"type:text;not null;uniqueIndex:ux_blog_posts_slug" json:"slug"`
	Excerpt          string       `gorm:"type:text" json:"excerpt"`
	Content          string       `gorm:"type:text" json:"content"`
	FeaturedImageURL string       `gorm:"type:text;column:featured_image_url" json:"featured_image_url"`
	AuthorID         snowflake.ID `gorm:"not null;index" json:"author_id"`
	Status           string       `gorm:"type:text;not null;default:draft;index" json:"status"`
	PublishedAt      *time.Time   `json:"published_at,omitempty"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Post) TableName() string { return "blog_posts" }

// PostSponsor tags a post with a sponsor it mentions.
type PostSponsor struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	PostID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_post_sponsor,priority:1" json:"post_id"`
	SponsorID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_post_sponsor,priority:2" json:"sponsor_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (PostSponsor) TableName() string { return "blog_post_sponsors" }
