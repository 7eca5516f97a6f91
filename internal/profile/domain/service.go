package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	// EnsureForLogin finds the profile for an email, creating a sponsor_admin
	// profile when none exists yet. Existing roles are never downgraded here.
	EnsureForLogin(ctx context.Context, email string) (*Profile, error)
	GetByID(ctx context.Context, id snowflake.ID) (*Profile, error)
	GetByEmail(ctx context.Context, email string) (*Profile, error)
	AssignRole(ctx context.Context, id snowflake.ID, role string) error
	List(ctx context.Context) ([]ProfileResponse, error)
}

type ProfileResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Role        string `json:"role"`
}

var (
	ErrNotFound     = errors.New("profile_not_found")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidRole  = errors.New("invalid_role")
)
