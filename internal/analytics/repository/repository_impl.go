package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/analytics/domain"
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

func (r *repository) Create(ctx context.Context, event domain.Event) error {
	return r.db.WithContext(ctx).Create(&event).Error
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Event, error) {
	query := r.db.WithContext(ctx).Model(&domain.Event{})
	if filter.EventType != "" {
		query = query.Where("event_type = ?", filter.EventType)
	}
	if filter.SponsorID != 0 {
		query = query.Where("sponsor_id = ?", filter.SponsorID)
	}
	if filter.PromotionID != 0 {
		query = query.Where("promotion_id = ?", filter.PromotionID)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var events []domain.Event
	if err := query.Order("created_at DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) CountByType(ctx context.Context, sponsorID snowflake.ID, since time.Time) ([]domain.TypeCount, error) {
	query := r.db.WithContext(ctx).Model(&domain.Event{}).
		Select("event_type, count(*) as count").
		Where("sponsor_id = ?", sponsorID).
		Group("event_type")
	if !since.IsZero() {
		query = query.Where("created_at >= ?", since)
	}

	var counts []domain.TypeCount
	if err := query.Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}
