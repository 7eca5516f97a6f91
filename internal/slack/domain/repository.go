package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ListFilter struct {
	NotificationType string
	Status           string
	Limit            int
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification Notification) error
	MarkSent(ctx context.Context, id snowflake.ID, sentAt time.Time) error
	MarkFailed(ctx context.Context, id snowflake.ID, errorMessage string) error
	List(ctx context.Context, filter ListFilter) ([]Notification, error)
}
