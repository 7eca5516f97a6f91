package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/invitation/domain"
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

func (r *repository) Create(ctx context.Context, invitation domain.Invitation) error {
	return r.db.WithContext(ctx).Create(&invitation).Error
}

func (r *repository) FindByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	var invitation domain.Invitation
	if err := r.db.WithContext(ctx).First(&invitation, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Invitation, error) {
	var invitation domain.Invitation
	if err := r.db.WithContext(ctx).First(&invitation, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *repository) ListByEmail(ctx context.Context, email string) ([]domain.Invitation, error) {
	var invitations []domain.Invitation
	err := r.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(email)).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return nil, err
	}
	return invitations, nil
}

func (r *repository) MarkAccepted(ctx context.Context, id snowflake.ID, acceptedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"accepted_at": acceptedAt,
			"status":      domain.StatusAccepted,
		}).Error
}

func (r *repository) MarkEmailSent(ctx context.Context, id snowflake.ID, sent bool) error {
	return r.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("id = ?", id).
		Update("email_sent", sent).Error
}

func (r *repository) Revoke(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("id = ? AND accepted_at IS NULL", id).
		Update("status", domain.StatusRevoked).Error
}

func (r *repository) ExpirePending(ctx context.Context, now time.Time, limit int) (int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.Invitation{}).
		Where("status = ? AND accepted_at IS NULL AND expires_at < ?", domain.StatusPending, now)
	if limit > 0 {
		query = query.Where("id IN (?)", r.db.Model(&domain.Invitation{}).
			Select("id").
			Where("status = ? AND accepted_at IS NULL AND expires_at < ?", domain.StatusPending, now).
			Limit(limit))
	}

	result := query.Update("status", domain.StatusExpired)
	return result.RowsAffected, result.Error
}
