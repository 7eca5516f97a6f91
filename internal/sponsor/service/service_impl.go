package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	"github.com/sponsorhub/sponsorhub/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db        *gorm.DB
	repo      domain.Repository
	genID     *snowflake.Node
	publisher domain.Publisher
	log       *zap.Logger
}

func NewService(gdb *gorm.DB, repo domain.Repository, genID *snowflake.Node, publisher domain.Publisher, log *zap.Logger) domain.Service {
	return &service{db: gdb, repo: repo, genID: genID, publisher: publisher, log: log}
}

func (s *service) Create(ctx context.Context, req domain.CreateSponsorRequest) (*domain.SponsorResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = domain.StatusPending
	}
	if !domain.ValidStatus(status) {
		return nil, domain.ErrInvalidStatus
	}

	now := time.Now().UTC()
	sponsor := domain.Sponsor{
		ID:           s.genID.Generate(),
		Name:         name,
		Slug:         slug.Make(name),
		Tagline:      strings.TrimSpace(req.Tagline),
		Description:  req.Description,
		LogoURL:      strings.TrimSpace(req.LogoURL),
		BannerURL:    strings.TrimSpace(req.BannerURL),
		Category:     req.Category,
		WebsiteURL:   strings.TrimSpace(req.WebsiteURL),
		ContactEmail: strings.ToLower(strings.TrimSpace(req.ContactEmail)),
		ContactPhone: strings.TrimSpace(req.ContactPhone),
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, sponsor); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	if s.publisher != nil {
		// Announce the onboarding; delivery must never fail the create.
		announce := sponsor
		go func() {
			ctx := context.WithoutCancel(ctx)
			if err := s.publisher.SponsorCreated(ctx, &announce); err != nil {
				s.log.Warn("failed to announce new sponsor",
					zap.String("sponsor_id", announce.ID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	return toResponse(&sponsor), nil
}

func (s *service) Update(ctx context.Context, id string, req domain.UpdateSponsorRequest) (*domain.SponsorResponse, error) {
	sponsorID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	sponsor, err := s.repo.FindByID(ctx, sponsorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		sponsor.Name = name
		sponsor.Slug = slug.Make(name)
	}
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		sponsor.Status = *req.Status
	}
	applyString(&sponsor.Tagline, req.Tagline)
	applyString(&sponsor.Description, req.Description)
	applyString(&sponsor.LogoURL, req.LogoURL)
	applyString(&sponsor.BannerURL, req.BannerURL)
	applyString(&sponsor.WebsiteURL, req.WebsiteURL)
	applyString(&sponsor.ContactEmail, req.ContactEmail)
	applyString(&sponsor.ContactPhone, req.ContactPhone)
	if req.Category != nil {
		sponsor.Category = req.Category
	}
	sponsor.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, *sponsor); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	return toResponse(sponsor), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	sponsorID, err := parseID(id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, sponsorID)
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.SponsorResponse, error) {
	sponsorID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	sponsor, err := s.repo.FindByID(ctx, sponsorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toResponse(sponsor), nil
}

func (s *service) GetBySlug(ctx context.Context, sponsorSlug string) (*domain.SponsorResponse, error) {
	sponsorSlug = strings.TrimSpace(sponsorSlug)
	if sponsorSlug == "" {
		return nil, domain.ErrNotFound
	}

	sponsor, err := s.repo.FindBySlug(ctx, sponsorSlug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toResponse(sponsor), nil
}

func (s *service) List(ctx context.Context, filter domain.ListFilter) ([]domain.SponsorResponse, error) {
	if filter.Status != "" && !domain.ValidStatus(filter.Status) {
		return nil, domain.ErrInvalidStatus
	}

	sponsors, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toResponses(sponsors), nil
}

func (s *service) ListActive(ctx context.Context) ([]domain.SponsorResponse, error) {
	sponsors, err := s.repo.List(ctx, domain.ListFilter{Status: domain.StatusActive})
	if err != nil {
		return nil, err
	}
	return toResponses(sponsors), nil
}

func (s *service) SponsorForUser(ctx context.Context, userID snowflake.ID) (*domain.SponsorResponse, error) {
	link, err := s.repo.FindLinkByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoSponsor
		}
		return nil, err
	}

	sponsor, err := s.repo.FindByID(ctx, link.SponsorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// The link points at a deleted sponsor. Surface the same error as
			// a missing link so callers treat both as "no sponsor yet".
			s.log.Warn("sponsor link references missing sponsor",
				zap.String("user_id", userID.String()),
				zap.String("sponsor_id", link.SponsorID.String()),
			)
			return nil, domain.ErrNoSponsor
		}
		return nil, err
	}
	return toResponse(sponsor), nil
}

func (s *service) UpdateOwnProfile(ctx context.Context, userID snowflake.ID, req domain.UpdateSponsorProfileRequest) (*domain.SponsorResponse, error) {
	link, err := s.repo.FindLinkByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoSponsor
		}
		return nil, err
	}

	values := map[string]any{"updated_at": time.Now().UTC()}
	putString(values, "tagline", req.Tagline)
	putString(values, "description", req.Description)
	putString(values, "logo_url", req.LogoURL)
	putString(values, "banner_url", req.BannerURL)
	putString(values, "website_url", req.WebsiteURL)
	putString(values, "contact_email", req.ContactEmail)
	putString(values, "contact_phone", req.ContactPhone)
	putString(values, "address_street", req.AddressStreet)
	putString(values, "address_city", req.AddressCity)
	putString(values, "address_state", req.AddressState)
	putString(values, "address_zip", req.AddressZip)
	putString(values, "social_instagram", req.SocialInstagram)
	putString(values, "social_facebook", req.SocialFacebook)
	putString(values, "social_strava", req.SocialStrava)
	putString(values, "social_twitter", req.SocialTwitter)

	if err := s.repo.UpdateColumns(ctx, link.SponsorID, values); err != nil {
		return nil, err
	}

	sponsor, err := s.repo.FindByID(ctx, link.SponsorID)
	if err != nil {
		return nil, err
	}
	return toResponse(sponsor), nil
}

func (s *service) TeamMembers(ctx context.Context, userID snowflake.ID) ([]domain.TeamMemberResponse, error) {
	link, err := s.repo.FindLinkByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNoSponsor
		}
		return nil, err
	}

	members, err := s.repo.TeamMembers(ctx, link.SponsorID)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.TeamMemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, domain.TeamMemberResponse{
			UserID:      m.UserID.String(),
			Email:       m.Email,
			DisplayName: m.DisplayName,
			LinkedAt:    m.LinkedAt,
		})
	}
	return resp, nil
}

func (s *service) LinkAdmin(ctx context.Context, sponsorID, userID snowflake.ID) error {
	if _, err := s.repo.FindByID(ctx, sponsorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	return s.repo.UpsertAdminLink(ctx, domain.SponsorAdmin{
		ID:        s.genID.Generate(),
		SponsorID: sponsorID,
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	})
}

func (s *service) UnlinkAdmin(ctx context.Context, sponsorID, userID snowflake.ID) error {
	return s.repo.DeleteAdminLink(ctx, sponsorID, userID)
}

func (s *service) FindOrphanedAdmins(ctx context.Context) ([]domain.OrphanedAdmin, error) {
	return s.repo.FindOrphanedAdmins(ctx)
}

func parseID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, domain.ErrInvalidID
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func putString(values map[string]any, column string, src *string) {
	if src != nil {
		values[column] = strings.TrimSpace(*src)
	}
}

func toResponse(sponsor *domain.Sponsor) *domain.SponsorResponse {
	return &domain.SponsorResponse{
		ID:           sponsor.ID.String(),
		Name:         sponsor.Name,
		Slug:         sponsor.Slug,
		Tagline:      sponsor.Tagline,
		Description:  sponsor.Description,
		LogoURL:      sponsor.LogoURL,
		BannerURL:    sponsor.BannerURL,
		Category:     sponsor.Category,
		WebsiteURL:   sponsor.WebsiteURL,
		ContactEmail: sponsor.ContactEmail,
		ContactPhone: sponsor.ContactPhone,
		Status:       sponsor.Status,
		CreatedAt:    sponsor.CreatedAt,
	}
}

func toResponses(sponsors []domain.Sponsor) []domain.SponsorResponse {
	resp := make([]domain.SponsorResponse, 0, len(sponsors))
	for i := range sponsors {
		resp = append(resp, *toResponse(&sponsors[i]))
	}
	return resp
}
