package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Upsert(ctx context.Context, profile Profile) error
	FindByID(ctx context.Context, id snowflake.ID) (*Profile, error)
	FindByEmail(ctx context.Context, email string) (*Profile, error)
	UpdateRole(ctx context.Context, id snowflake.ID, role string) error
	List(ctx context.Context) ([]Profile, error)
}
