package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// TeamMember is a profile joined through sponsor_admins.
type TeamMember struct {
	UserID      snowflake.ID
	Email       string
	DisplayName string
	LinkedAt    time.Time
}

// OrphanedAdmin is a sponsor_admin profile with no sponsor link.
type OrphanedAdmin struct {
	UserID snowflake.ID
	Email  string
}

type ListFilter struct {
	Status   string
	Category string
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, sponsor Sponsor) error
	Update(ctx context.Context, sponsor Sponsor) error
	UpdateColumns(ctx context.Context, id snowflake.ID, values map[string]any) error
	Delete(ctx context.Context, id snowflake.ID) error
	FindByID(ctx context.Context, id snowflake.ID) (*Sponsor, error)
	FindBySlug(ctx context.Context, slug string) (*Sponsor, error)
	List(ctx context.Context, filter ListFilter) ([]Sponsor, error)
	UpsertAdminLink(ctx context.Context, link SponsorAdmin) error
	DeleteAdminLink(ctx context.Context, sponsorID, userID snowflake.ID) error
	FindLinkByUser(ctx context.Context, userID snowflake.ID) (*SponsorAdmin, error)
	TeamMembers(ctx context.Context, sponsorID snowflake.ID) ([]TeamMember, error)
	FindOrphanedAdmins(ctx context.Context) ([]OrphanedAdmin, error)
}
