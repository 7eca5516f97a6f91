package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectSponsor    = "sponsor"
	ObjectPromotion  = "promotion"
	ObjectBlogPost   = "blog_post"
	ObjectInvitation = "invitation"
	ObjectProfile    = "profile"
	ObjectAnalytics  = "analytics"
	ObjectSlack      = "slack_notification"
)

const (
	ActionSponsorView   = "sponsor.view"
	ActionSponsorCreate = "sponsor.create"
	ActionSponsorUpdate = "sponsor.update"
	ActionSponsorDelete = "sponsor.delete"

	ActionPromotionView    = "promotion.view"
	ActionPromotionCreate  = "promotion.create"
	ActionPromotionUpdate  = "promotion.update"
	ActionPromotionDelete  = "promotion.delete"
	ActionPromotionToggle  = "promotion.toggle"
	ActionPromotionApprove = "promotion.approve"
	ActionPromotionExpire  = "promotion.expire"

	ActionBlogPostView    = "blog_post.view"
	ActionBlogPostCreate  = "blog_post.create"
	ActionBlogPostUpdate  = "blog_post.update"
	ActionBlogPostDelete  = "blog_post.delete"
	ActionBlogPostPublish = "blog_post.publish"

	ActionInvitationIssue  = "invitation.issue"
	ActionInvitationView   = "invitation.view"
	ActionInvitationRevoke = "invitation.revoke"
	ActionInvitationExpire = "invitation.expire"

	ActionProfileView        = "profile.view"
	ActionProfileUpdate      = "profile.update"
	ActionProfileManageRoles = "profile.manage_roles"

	ActionAnalyticsView = "analytics.view"

	ActionSlackView = "slack_notification.view"
)

const portalDomain = "portal"

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, scope string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor)
	if err != nil {
		return err
	}

	domain := portalDomain
	if scope = strings.TrimSpace(scope); scope != "" {
		domain = fmt.Sprintf("sponsor:%s", scope)
	}
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("subject", subject),
			zap.String("domain", domain),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", ErrInvalidActor
		}
		role, err := s.roleForUser(ctx, userID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM profiles
		 WHERE id = ?
		 LIMIT 1`,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Sponsor admin permissions (scoped to their sponsor by the
		// grouping domain)
		{"role:sponsor_admin", ObjectSponsor, ActionSponsorView},
		{"role:sponsor_admin", ObjectSponsor, ActionSponsorUpdate},
		{"role:sponsor_admin", ObjectPromotion, ActionPromotionView},
		{"role:sponsor_admin", ObjectPromotion, ActionPromotionCreate},
		{"role:sponsor_admin", ObjectPromotion, ActionPromotionUpdate},
		{"role:sponsor_admin", ObjectPromotion, ActionPromotionDelete},
		{"role:sponsor_admin", ObjectPromotion, ActionPromotionToggle},
		{"role:sponsor_admin", ObjectInvitation, ActionInvitationIssue},
		{"role:sponsor_admin", ObjectInvitation, ActionInvitationView},
		{"role:sponsor_admin", ObjectProfile, ActionProfileView},
		{"role:sponsor_admin", ObjectProfile, ActionProfileUpdate},
		{"role:sponsor_admin", ObjectAnalytics, ActionAnalyticsView},

		// Super admin permissions
		{"role:super_admin", ObjectSponsor, ActionSponsorView},
		{"role:super_admin", ObjectSponsor, ActionSponsorCreate},
		{"role:super_admin", ObjectSponsor, ActionSponsorUpdate},
		{"role:super_admin", ObjectSponsor, ActionSponsorDelete},
		{"role:super_admin", ObjectPromotion, ActionPromotionView},
		{"role:super_admin", ObjectPromotion, ActionPromotionCreate},
		{"role:super_admin", ObjectPromotion, ActionPromotionUpdate},
		{"role:super_admin", ObjectPromotion, ActionPromotionDelete},
		{"role:super_admin", ObjectPromotion, ActionPromotionToggle},
		{"role:super_admin", ObjectPromotion, ActionPromotionApprove},
		{"role:super_admin", ObjectBlogPost, ActionBlogPostView},
		{"role:super_admin", ObjectBlogPost, ActionBlogPostCreate},
		{"role:super_admin", ObjectBlogPost, ActionBlogPostUpdate},
		{"role:super_admin", ObjectBlogPost, ActionBlogPostDelete},
		{"role:super_admin", ObjectBlogPost, ActionBlogPostPublish},
		{"role:super_admin", ObjectInvitation, ActionInvitationIssue},
		{"role:super_admin", ObjectInvitation, ActionInvitationView},
		{"role:super_admin", ObjectInvitation, ActionInvitationRevoke},
		{"role:super_admin", ObjectProfile, ActionProfileView},
		{"role:super_admin", ObjectProfile, ActionProfileUpdate},
		{"role:super_admin", ObjectProfile, ActionProfileManageRoles},
		{"role:super_admin", ObjectAnalytics, ActionAnalyticsView},
		{"role:super_admin", ObjectSlack, ActionSlackView},

		// System permissions (scheduler jobs)
		{"role:system", ObjectPromotion, ActionPromotionExpire},
		{"role:system", ObjectInvitation, ActionInvitationExpire},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
