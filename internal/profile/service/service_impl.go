package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/profile/domain"
	"gorm.io/gorm"
)

type service struct {
	repo  domain.Repository
	genID *snowflake.Node
}

func NewService(repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &service{repo: repo, genID: genID}
}

func (s *service) EnsureForLogin(ctx context.Context, email string) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	profile := domain.Profile{
		ID:          s.genID.Generate(),
		Email:       email,
		DisplayName: displayNameFromEmail(email),
		Role:        domain.RoleSponsorAdmin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Upsert(ctx, profile); err != nil {
		return nil, err
	}

	// Re-read so a concurrent first login returns the winning row.
	return s.repo.FindByEmail(ctx, email)
}

func (s *service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Profile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return profile, err
}

func (s *service) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.ErrInvalidEmail
	}
	profile, err := s.repo.FindByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	return profile, err
}

func (s *service) AssignRole(ctx context.Context, id snowflake.ID, role string) error {
	if !domain.ValidRole(role) {
		return domain.ErrInvalidRole
	}
	return s.repo.UpdateRole(ctx, id, role)
}

func (s *service) List(ctx context.Context) ([]domain.ProfileResponse, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]domain.ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		resp = append(resp, domain.ProfileResponse{
			ID:          p.ID.String(),
			Email:       p.Email,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
			Role:        p.Role,
		})
	}
	return resp, nil
}

func displayNameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
