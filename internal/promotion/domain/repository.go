package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// ListFilter narrows promotion listings.
type ListFilter struct {
	SponsorID      snowflake.ID
	Status         string
	ApprovalStatus string
	FeaturedOnly   bool
	Limit          int
	Offset         int
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, promotion Promotion) error
	Update(ctx context.Context, promotion Promotion) error
	UpdateColumns(ctx context.Context, id snowflake.ID, values map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error
	FindByID(ctx context.Context, id snowflake.ID) (*Promotion, error)
	List(ctx context.Context, filter ListFilter) ([]Promotion, error)
	// ListVisible returns promotions passing the public visibility predicate
	// at the given instant.
	ListVisible(ctx context.Context, now time.Time, limit int) ([]Promotion, error)
	// ExpireDue flips active promotions whose end_date has passed to expired
	// and returns the affected count.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
