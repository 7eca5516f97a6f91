package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	Status    string
	AuthorID  snowflake.ID
	SponsorID snowflake.ID
	Limit     int
	Offset    int
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, post Post) error
	Update(ctx context.Context, post Post) error
	Delete(ctx context.Context, id snowflake.ID) error
	FindByID(ctx context.Context, id snowflake.ID) (*Post, error)
	FindBySlug(ctx context.Context, slug string) (*Post, error)
	List(ctx context.Context, filter ListFilter) ([]Post, error)
	ReplaceSponsorTags(ctx context.Context, postID snowflake.ID, tags []PostSponsor) error
	SponsorTags(ctx context.Context, postID snowflake.ID) ([]PostSponsor, error)
}
