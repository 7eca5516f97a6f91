package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/slack/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, notification domain.Notification) error {
	return r.db.WithContext(ctx).Create(&notification).Error
}

func (r *repository) MarkSent(ctx context.Context, id snowflake.ID, sentAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":   domain.StatusSent,
			"sent_at":  sentAt,
			"attempts": gorm.Expr("attempts + 1"),
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id snowflake.ID, errorMessage string) error {
	return r.db.WithContext(ctx).Model(&domain.Notification{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":        domain.StatusFailed,
			"error_message": errorMessage,
			"attempts":      gorm.Expr("attempts + 1"),
		}).Error
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Notification, error) {
	query := r.db.WithContext(ctx).Model(&domain.Notification{})
	if filter.NotificationType != "" {
		query = query.Where("notification_type = ?", filter.NotificationType)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var notifications []domain.Notification
	if err := query.Order("created_at DESC").Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}
