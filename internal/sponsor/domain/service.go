package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateSponsorRequest) (*SponsorResponse, error)
	Update(ctx context.Context, id string, req UpdateSponsorRequest) (*SponsorResponse, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*SponsorResponse, error)
	GetBySlug(ctx context.Context, slug string) (*SponsorResponse, error)
	List(ctx context.Context, filter ListFilter) ([]SponsorResponse, error)
	ListActive(ctx context.Context) ([]SponsorResponse, error)

	// SponsorForUser resolves the sponsor a sponsor_admin manages.
	SponsorForUser(ctx context.Context, userID snowflake.ID) (*SponsorResponse, error)
	// UpdateOwnProfile applies the subset of fields a sponsor admin may edit.
	UpdateOwnProfile(ctx context.Context, userID snowflake.ID, req UpdateSponsorProfileRequest) (*SponsorResponse, error)

	TeamMembers(ctx context.Context, userID snowflake.ID) ([]TeamMemberResponse, error)
	LinkAdmin(ctx context.Context, sponsorID, userID snowflake.ID) error
	UnlinkAdmin(ctx context.Context, sponsorID, userID snowflake.ID) error
	FindOrphanedAdmins(ctx context.Context) ([]OrphanedAdmin, error)
}

// Publisher announces a newly created sponsor to an outbound channel.
// Failures are logged by the caller and never fail the create.
type Publisher interface {
	SponsorCreated(ctx context.Context, sponsor *Sponsor) error
}

type CreateSponsorRequest struct {
	Name         string
	Tagline      string
	Description  string
	LogoURL      string
	BannerURL    string
	Category     []string
	WebsiteURL   string
	ContactEmail string
	ContactPhone string
	Status       string
}

type UpdateSponsorRequest struct {
	Name         *string
	Tagline      *string
	Description  *string
	LogoURL      *string
	BannerURL    *string
	Category     []string
	WebsiteURL   *string
	ContactEmail *string
	ContactPhone *string
	Status       *string
}

// UpdateSponsorProfileRequest is the sponsor admin's own editable subset.
// Status and slug are deliberately absent.
type UpdateSponsorProfileRequest struct {
	Tagline         *string
	Description     *string
	LogoURL         *string
	BannerURL       *string
	WebsiteURL      *string
	ContactEmail    *string
	ContactPhone    *string
	AddressStreet   *string
	AddressCity     *string
	AddressState    *string
	AddressZip      *string
	SocialInstagram *string
	SocialFacebook  *string
	SocialStrava    *string
	SocialTwitter   *string
}

type SponsorResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Tagline      string    `json:"tagline,omitempty"`
	Description  string    `json:"description,omitempty"`
	LogoURL      string    `json:"logo_url,omitempty"`
	BannerURL    string    `json:"banner_url,omitempty"`
	Category     []string  `json:"category"`
	WebsiteURL   string    `json:"website_url,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

type TeamMemberResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	LinkedAt    time.Time `json:"linked_at"`
}

var (
	ErrNotFound      = errors.New("sponsor_not_found")
	ErrNoSponsor     = errors.New("no_sponsor_for_user")
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidStatus = errors.New("invalid_status")
	ErrInvalidID     = errors.New("invalid_sponsor_id")
	ErrSlugTaken     = errors.New("slug_taken")
)

// ValidStatus reports whether the status is a known sponsor status.
func ValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusActive, StatusInactive:
		return true
	default:
		return false
	}
}
