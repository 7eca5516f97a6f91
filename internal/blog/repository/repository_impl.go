package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/blog/domain"
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

func (r *repository) Create(ctx context.Context, post domain.Post) error {
	return r.db.WithContext(ctx).Create(&post).Error
}

func (r *repository) Update(ctx context.Context, post domain.Post) error {
	return r.db.WithContext(ctx).Save(&post).Error
}

func (r *repository) Delete(ctx context.Context, id snowflake.ID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.PostSponsor{}, "post_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Post{}, "id = ?", id).Error
	})
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repository) FindBySlug(ctx context.Context, slug string) (*domain.Post, error) {
	var post domain.Post
	if err := r.db.WithContext(ctx).First(&post, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Post, error) {
	query := r.db.WithContext(ctx).Model(&domain.Post{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.SponsorID != 0 {
		query = query.Where("id IN (?)", r.db.Model(&domain.PostSponsor{}).
			Select("post_id").
			Where("sponsor_id = ?", filter.SponsorID))
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var posts []domain.Post
	if err := query.Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

func (r *repository) ReplaceSponsorTags(ctx context.Context, postID snowflake.ID, tags []domain.PostSponsor) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&domain.PostSponsor{}, "post_id = ?", postID).Error; err != nil {
			return err
		}
		if len(tags) == 0 {
			return nil
		}
		return tx.Create(&tags).Error
	})
}

func (r *repository) SponsorTags(ctx context.Context, postID snowflake.ID) ([]domain.PostSponsor, error) {
	var tags []domain.PostSponsor
	if err := r.db.WithContext(ctx).Find(&tags, "post_id = ?", postID).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
