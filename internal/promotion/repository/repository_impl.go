package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/promotion/domain"
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

func (r *repository) Create(ctx context.Context, promotion domain.Promotion) error {
	return r.db.WithContext(ctx).Create(&promotion).Error
}

func (r *repository) Update(ctx context.Context, promotion domain.Promotion) error {
	return r.db.WithContext(ctx).Save(&promotion).Error
}

func (r *repository) UpdateColumns(ctx context.Context, id snowflake.ID, values map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Promotion{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.Promotion{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Promotion, error) {
	var promotion domain.Promotion
	if err := r.db.WithContext(ctx).First(&promotion, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &promotion, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Promotion, error) {
	query := r.db.WithContext(ctx).Model(&domain.Promotion{})
	if filter.SponsorID != 0 {
		query = query.Where("sponsor_id = ?", filter.SponsorID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ApprovalStatus != "" {
		query = query.Where("approval_status = ?", filter.ApprovalStatus)
	}
	if filter.FeaturedOnly {
		query = query.Where("is_featured = ?", true)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var promotions []domain.Promotion
	if err := query.Order("created_at DESC").Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}

func (r *repository) ListVisible(ctx context.Context, now time.Time, limit int) ([]domain.Promotion, error) {
	query := r.db.WithContext(ctx).
		Where("status = ?", domain.StatusActive).
		Where("start_date <= ?", now).
		Where("end_date IS NULL OR end_date >= ?", now).
		Order("is_featured DESC, start_date DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var promotions []domain.Promotion
	if err := query.Find(&promotions).Error; err != nil {
		return nil, err
	}
	return promotions, nil
}

func (r *repository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Promotion{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", domain.StatusActive, now).
		Updates(map[string]any{
			"status":     domain.StatusExpired,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}
