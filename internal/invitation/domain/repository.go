package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, invitation Invitation) error
	FindByToken(ctx context.Context, token string) (*Invitation, error)
	FindByID(ctx context.Context, id snowflake.ID) (*Invitation, error)
	ListByEmail(ctx context.Context, email string) ([]Invitation, error)
	MarkAccepted(ctx context.Context, id snowflake.ID, acceptedAt time.Time) error
	MarkEmailSent(ctx context.Context, id snowflake.ID, sent bool) error
	Revoke(ctx context.Context, id snowflake.ID) error
	ExpirePending(ctx context.Context, now time.Time, limit int) (int64, error)
}
