// Package domain contains persistence models for the profile service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleSuperAdmin   = "super_admin"
	RoleSponsorAdmin = "sponsor_admin"
)

// ValidRole reports whether the role is one of the portal roles.
func ValidRole(role string) bool {
	return role == RoleSuperAdmin || role == RoleSponsorAdmin
}

// Profile is the portal identity. A row is created on first successful login
// or on invitation acceptance, whichever happens first.
type Profile struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Email       string       `gorm:"type:text;not null;uniqueIndex:ux_profiles_email" json:"email"`
	DisplayName string       `gorm:"type:text;column:display_name" json:"display_name"`
	AvatarURL   string       `gorm:"type:text;column:avatar_url" json:"avatar_url"`
	Role        string       `gorm:"type:text;not null" json:"role"`
	CreatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }
