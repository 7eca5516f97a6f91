package rls

import (
	"gorm.io/gorm"
)

// WithUser pins the requesting user onto the current transaction so
// row-level security policies can scope reads. Only meaningful on the anon
// handle; the service role bypasses RLS entirely.
func WithUser(tx *gorm.DB, userID string) error {
	return tx.Exec(
		"SET LOCAL app.current_user_id = ?",
		userID,
	).Error
}
