package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/sponsorhub/sponsorhub/internal/blog/domain"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	repo      domain.Repository
	publisher domain.Publisher
	clk       clock.Clock
	genID     *snowflake.Node
	log       *zap.Logger
}

func NewService(
	repo domain.Repository,
	publisher domain.Publisher,
	clk clock.Clock,
	genID *snowflake.Node,
	log *zap.Logger,
) domain.Service {
	return &service{
		repo:      repo,
		publisher: publisher,
		clk:       clk,
		genID:     genID,
		log:       log,
	}
}

func (s *service) Create(ctx context.Context, authorID snowflake.ID, req domain.CreateRequest) (*domain.PostResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	status := req.Status
	if status == "" {
		status = domain.StatusDraft
	}
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}

	now := s.clk.Now()
	post := domain.Post{
		ID:               s.genID.Generate(),
		Title:            title,
		Slug:             slug.Make(title),
		Excerpt:          req.Excerpt,
		Content:          req.Content,
		FeaturedImageURL: req.FeaturedImageURL,
		AuthorID:         authorID,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if status == domain.StatusPublished {
		publishedAt := now
		post.PublishedAt = &publishedAt
	}

	tags, err := s.parseTags(post.ID, req.SponsorIDs)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, post); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}
	if len(tags) > 0 {
		if err := s.repo.ReplaceSponsorTags(ctx, post.ID, tags); err != nil {
			return nil, err
		}
	}

	if post.Status == domain.StatusPublished {
		s.announce(ctx, &post)
	}
	return s.toResponse(ctx, &post)
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.PostResponse, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, domain.ErrInvalidTitle
		}
		if title != post.Title {
			post.Title = title
			post.Slug = slug.Make(title)
		}
	}
	if req.Excerpt != nil {
		post.Excerpt = *req.Excerpt
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.FeaturedImageURL != nil {
		post.FeaturedImageURL = *req.FeaturedImageURL
	}

	wasPublished := post.Status == domain.StatusPublished
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		post.Status = *req.Status
		if post.Status == domain.StatusPublished && post.PublishedAt == nil {
			publishedAt := s.clk.Now()
			post.PublishedAt = &publishedAt
		}
	}

	post.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, *post); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	if req.SponsorIDs != nil {
		tags, err := s.parseTags(post.ID, *req.SponsorIDs)
		if err != nil {
			return nil, err
		}
		if err := s.repo.ReplaceSponsorTags(ctx, post.ID, tags); err != nil {
			return nil, err
		}
	}

	if !wasPublished && post.Status == domain.StatusPublished {
		s.announce(ctx, post)
	}
	return s.toResponse(ctx, post)
}

func (s *service) Publish(ctx context.Context, id string) (*domain.PostResponse, error) {
	status := domain.StatusPublished
	return s.Update(ctx, id, domain.UpdateRequest{Status: &status})
}

func (s *service) Archive(ctx context.Context, id string) (*domain.PostResponse, error) {
	status := domain.StatusArchived
	return s.Update(ctx, id, domain.UpdateRequest{Status: &status})
}

func (s *service) Delete(ctx context.Context, id string) error {
	post, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, post.ID)
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.PostResponse, error) {
	post, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, post)
}

func (s *service) GetBySlug(ctx context.Context, postSlug string) (*domain.PostResponse, error) {
	post, err := s.repo.FindBySlug(ctx, postSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s.toResponse(ctx, post)
}

func (s *service) List(ctx context.Context, filter domain.ListFilter) ([]domain.PostResponse, error) {
	posts, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PostResponse, 0, len(posts))
	for i := range posts {
		resp, err := s.toResponse(ctx, &posts[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *service) ListPublished(ctx context.Context, limit int) ([]domain.PostResponse, error) {
	return s.List(ctx, domain.ListFilter{Status: domain.StatusPublished, Limit: limit})
}

func (s *service) load(ctx context.Context, id string) (*domain.Post, error) {
	postID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return post, nil
}

func (s *service) parseTags(postID snowflake.ID, sponsorIDs []string) ([]domain.PostSponsor, error) {
	tags := make([]domain.PostSponsor, 0, len(sponsorIDs))
	for _, raw := range sponsorIDs {
		sponsorID, err := snowflake.ParseString(strings.TrimSpace(raw))
		if err != nil {
			return nil, domain.ErrInvalidID
		}
		tags = append(tags, domain.PostSponsor{
			ID:        s.genID.Generate(),
			PostID:    postID,
			SponsorID: sponsorID,
			CreatedAt: s.clk.Now(),
		})
	}
	return tags, nil
}

func (s *service) announce(ctx context.Context, post *domain.Post) {
	if s.publisher == nil {
		return
	}
	announce := *post
	go func() {
		ctx := context.WithoutCancel(ctx)
		if err := s.publisher.PostPublished(ctx, &announce); err != nil {
			s.log.Warn("failed to announce published post",
				zap.String("post_id", announce.ID.String()),
				zap.Error(err),
			)
		}
	}()
}

func (s *service) toResponse(ctx context.Context, post *domain.Post) (*domain.PostResponse, error) {
	tags, err := s.repo.SponsorTags(ctx, post.ID)
	if err != nil {
		return nil, err
	}

	resp := &domain.PostResponse{
		ID:               post.ID.String(),
		Title:            post.Title,
		Slug:             post.Slug,
		Excerpt:          post.Excerpt,
		Content:          post.Content,
		FeaturedImageURL: post.FeaturedImageURL,
		AuthorID:         post.AuthorID.String(),
		Status:           post.Status,
		PublishedAt:      post.PublishedAt,
		CreatedAt:        post.CreatedAt,
		UpdatedAt:        post.UpdatedAt,
	}
	for _, tag := range tags {
		resp.SponsorIDs = append(resp.SponsorIDs, tag.SponsorID.String())
	}
	return resp, nil
}
