package authorization

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := dbConn.AutoMigrate(&profiledomain.Profile{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	enforcer, err := NewEnforcer(dbConn)
	if err != nil {
		t.Fatalf("new enforcer: %v", err)
	}
	svc := NewService(Params{
		DB:       dbConn,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
	return svc, dbConn
}

func seedProfile(t *testing.T, dbConn *gorm.DB, id snowflake.ID, role string) {
	t.Helper()
	profile := profiledomain.Profile{
		ID:        id,
		Email:     id.String() + "@example.com",
		Role:      role,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := dbConn.Create(&profile).Error; err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func TestSuperAdminGrants(t *testing.T) {
	svc, dbConn := newTestService(t)
	seedProfile(t, dbConn, snowflake.ID(101), profiledomain.RoleSuperAdmin)

	ctx := context.Background()
	checks := []struct {
		object string
		action string
	}{
		{ObjectSponsor, ActionSponsorCreate},
		{ObjectSponsor, ActionSponsorDelete},
		{ObjectPromotion, ActionPromotionApprove},
		{ObjectBlogPost, ActionBlogPostPublish},
		{ObjectInvitation, ActionInvitationRevoke},
		{ObjectProfile, ActionProfileManageRoles},
		{ObjectSlack, ActionSlackView},
	}
	for _, check := range checks {
		if err := svc.Authorize(ctx, "user:101", "", check.object, check.action); err != nil {
			t.Fatalf("expected %s %s allowed for super admin, got %v", check.object, check.action, err)
		}
	}

	// Super admin permissions are not confined to a sponsor scope.
	if err := svc.Authorize(ctx, "user:101", "202", ObjectPromotion, ActionPromotionApprove); err != nil {
		t.Fatalf("expected scoped approve allowed for super admin, got %v", err)
	}
}

func TestSponsorAdminGrantsAndDenials(t *testing.T) {
	svc, dbConn := newTestService(t)
	seedProfile(t, dbConn, snowflake.ID(102), profiledomain.RoleSponsorAdmin)

	ctx := context.Background()
	if err := svc.Authorize(ctx, "user:102", "202", ObjectPromotion, ActionPromotionCreate); err != nil {
		t.Fatalf("expected promotion create allowed for sponsor admin, got %v", err)
	}
	if err := svc.Authorize(ctx, "user:102", "202", ObjectSponsor, ActionSponsorUpdate); err != nil {
		t.Fatalf("expected sponsor update allowed for sponsor admin, got %v", err)
	}

	denied := []struct {
		object string
		action string
	}{
		{ObjectPromotion, ActionPromotionApprove},
		{ObjectSponsor, ActionSponsorCreate},
		{ObjectSponsor, ActionSponsorDelete},
		{ObjectBlogPost, ActionBlogPostCreate},
		{ObjectInvitation, ActionInvitationRevoke},
		{ObjectProfile, ActionProfileManageRoles},
		{ObjectSlack, ActionSlackView},
	}
	for _, check := range denied {
		err := svc.Authorize(ctx, "user:102", "202", check.object, check.action)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected %s %s forbidden for sponsor admin, got %v", check.object, check.action, err)
		}
	}
}

func TestSystemActor(t *testing.T) {
	svc, _ := newTestService(t)

	ctx := context.Background()
	if err := svc.Authorize(ctx, "system", "", ObjectPromotion, ActionPromotionExpire); err != nil {
		t.Fatalf("expected promotion expire allowed for system, got %v", err)
	}
	if err := svc.Authorize(ctx, "system", "", ObjectInvitation, ActionInvitationExpire); err != nil {
		t.Fatalf("expected invitation expire allowed for system, got %v", err)
	}
	err := svc.Authorize(ctx, "system", "", ObjectPromotion, ActionPromotionApprove)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected promotion approve forbidden for system, got %v", err)
	}
}

func TestInvalidActors(t *testing.T) {
	svc, _ := newTestService(t)

	ctx := context.Background()
	cases := []string{"", "user:", "user:abc", "api_key:1", "robot"}
	for _, actor := range cases {
		err := svc.Authorize(ctx, actor, "", ObjectSponsor, ActionSponsorView)
		if !errors.Is(err, ErrInvalidActor) {
			t.Fatalf("expected invalid actor for %q, got %v", actor, err)
		}
	}
}

func TestUnknownUserForbidden(t *testing.T) {
	svc, _ := newTestService(t)

	err := svc.Authorize(context.Background(), "user:999", "", ObjectSponsor, ActionSponsorView)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden for unknown user, got %v", err)
	}
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc, dbConn := newTestService(t)
	seedProfile(t, dbConn, snowflake.ID(103), profiledomain.RoleSponsorAdmin)

	ctx := context.Background()
	err := svc.Authorize(ctx, "user:103", "", ObjectBlogPost, ActionBlogPostCreate)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected blog create forbidden before promotion to super admin, got %v", err)
	}

	if err := dbConn.Model(&profiledomain.Profile{}).
		Where("id = ?", snowflake.ID(103)).
		Update("role", profiledomain.RoleSuperAdmin).Error; err != nil {
		t.Fatalf("update role: %v", err)
	}

	if err := svc.Authorize(ctx, "user:103", "", ObjectBlogPost, ActionBlogPostCreate); err != nil {
		t.Fatalf("expected blog create allowed after promotion, got %v", err)
	}
}
