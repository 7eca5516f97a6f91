package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	EventType   string
	SponsorID   snowflake.ID
	PromotionID snowflake.ID
	Since       time.Time
	Limit       int
}

// TypeCount is one row of an aggregated event count.
type TypeCount struct {
	EventType string `json:"event_type"`
	Count     int64  `json:"count"`
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event Event) error
	List(ctx context.Context, filter ListFilter) ([]Event, error)
	CountByType(ctx context.Context, sponsorID snowflake.ID, since time.Time) ([]TypeCount, error)
}
