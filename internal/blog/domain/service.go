package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, authorID snowflake.ID, req CreateRequest) (*PostResponse, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*PostResponse, error)
	Publish(ctx context.Context, id string) (*PostResponse, error)
	Archive(ctx context.Context, id string) (*PostResponse, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*PostResponse, error)
	GetBySlug(ctx context.Context, slug string) (*PostResponse, error)
	List(ctx context.Context, filter ListFilter) ([]PostResponse, error)
	// ListPublished returns published posts for the public site, newest
	// first.
	ListPublished(ctx context.Context, limit int) ([]PostResponse, error)
}

// Publisher announces a freshly published post. Failures are logged by the
// caller and never fail the publish itself.
type Publisher interface {
	PostPublished(ctx context.Context, post *Post) error
}

type CreateRequest struct {
	Title            string   `json:"title" binding:"required"`
	Excerpt          string   `json:"excerpt"`
	Content          string   `json:"content"`
	FeaturedImageURL string   `json:"featured_image_url"`
	Status           string   `json:"status"`
	SponsorIDs       []string `json:"sponsor_ids"`
}

type UpdateRequest struct {
	Title            *string   `json:"title"`
	Excerpt          *string   `json:"excerpt"`
	Content          *string   `json:"content"`
	FeaturedImageURL *string   `json:"featured_image_url"`
	Status           *string   `json:"status"`
	SponsorIDs       *[]string `json:"sponsor_ids"`
}

type PostResponse struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Slug             string     `json:"slug"`
	Excerpt          string     `json:"excerpt,omitempty"`
	Content          string     `json:"content,omitempty"`
	FeaturedImageURL string     `json:"featured_image_url,omitempty"`
	AuthorID         string     `json:"author_id"`
	Status           string     `json:"status"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
	SponsorIDs       []string   `json:"sponsor_ids,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

var (
	ErrNotFound      = errors.New("blog_post_not_found")
	ErrInvalidTitle  = errors.New("title_required")
	ErrInvalidStatus = errors.New("invalid_blog_status")
	ErrInvalidID     = errors.New("invalid_blog_post_id")
	ErrSlugTaken     = errors.New("blog_slug_taken")
)
