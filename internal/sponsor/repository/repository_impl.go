package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
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

func (r *repository) Create(ctx context.Context, sponsor domain.Sponsor) error {
	return r.db.WithContext(ctx).Create(&sponsor).Error
}

func (r *repository) Update(ctx context.Context, sponsor domain.Sponsor) error {
	return r.db.WithContext(ctx).Save(&sponsor).Error
}

func (r *repository) UpdateColumns(ctx context.Context, id snowflake.ID, values map[string]any) error {
	return r.db.WithContext(ctx).Model(&domain.Sponsor{}).
		Where("id = ?", id).
		Updates(values).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Delete(&domain.Sponsor{}, "id = ?", id).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Sponsor, error) {
	var sponsor domain.Sponsor
	if err := r.db.WithContext(ctx).First(&sponsor, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sponsor, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*domain.Sponsor, error) {
	var sponsor domain.Sponsor
	if err := r.db.WithContext(ctx).First(&sponsor, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &sponsor, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Sponsor, error) {
	query := r.db.WithContext(ctx).Model(&domain.Sponsor{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Category != "" {
		query = query.Where("? = ANY(category)", filter.Category)
	}

	var sponsors []domain.Sponsor
	if err := query.Order("name ASC").Find(&sponsors).Error; err != nil {
		return nil, err
	}
	return sponsors, nil
}

func (r *repository) UpsertAdminLink(ctx context.Context, link domain.SponsorAdmin) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "sponsor_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(&link).Error
}

func (r *repository) DeleteAdminLink(ctx context.Context, sponsorID, userID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Where("sponsor_id = ? AND user_id = ?", sponsorID, userID).
		Delete(&domain.SponsorAdmin{}).Error
}

func (r *repository) FindLinkByUser(ctx context.Context, userID snowflake.ID) (*domain.SponsorAdmin, error) {
	var link domain.SponsorAdmin
	if err := r.db.WithContext(ctx).First(&link, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) TeamMembers(ctx context.Context, sponsorID snowflake.ID) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	err := r.db.WithContext(ctx).Raw(
		`SELECT p.id AS user_id, p.email, p.display_name, sa.created_at AS linked_at
		 FROM sponsor_admins sa
		 JOIN profiles p ON p.id = sa.user_id
		 WHERE sa.sponsor_id = ?
		 ORDER BY sa.created_at ASC`,
		sponsorID,
	).Scan(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *repository) FindOrphanedAdmins(ctx context.Context) ([]domain.OrphanedAdmin, error) {
	var orphans []domain.OrphanedAdmin
	err := r.db.WithContext(ctx).Raw(
		`SELECT p.id AS user_id, p.email
		 FROM profiles p
		 LEFT JOIN sponsor_admins sa ON sa.user_id = p.id
		 WHERE p.role = ? AND sa.id IS NULL
		 ORDER BY p.created_at ASC`,
		"sponsor_admin",
	).Scan(&orphans).Error
	if err != nil {
		return nil, err
	}
	return orphans, nil
}
