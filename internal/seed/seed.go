// Package seed bootstraps the first super admin so a fresh install is
// reachable without hand-editing the database.
package seed

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
)

// EnsureBootstrapAdmin upserts a super_admin profile for the configured
// email. Existing profiles are promoted rather than duplicated, so the env
// var stays safe to leave set across restarts.
func EnsureBootstrapAdmin(db *gorm.DB, email string) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile profiledomain.Profile
		err := tx.WithContext(ctx).Where("email = ?", email).First(&profile).Error
		if err == nil {
			if profile.Role == profiledomain.RoleSuperAdmin {
				return nil
			}
			return tx.WithContext(ctx).
				Model(&profiledomain.Profile{}).
				Where("id = ?", profile.ID).
				Updates(map[string]any{
					"role":       profiledomain.RoleSuperAdmin,
					"updated_at": time.Now().UTC(),
				}).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		profile = profiledomain.Profile{
			ID:          node.Generate(),
			Email:       email,
			DisplayName: displayName(email),
			Role:        profiledomain.RoleSuperAdmin,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		return tx.WithContext(ctx).Create(&profile).Error
	})
}

func displayName(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	return email[:at]
}
