package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sponsorhub/sponsorhub/internal/analytics"
	analyticsdomain "github.com/sponsorhub/sponsorhub/internal/analytics/domain"
	"github.com/sponsorhub/sponsorhub/internal/auth"
	authdomain "github.com/sponsorhub/sponsorhub/internal/auth/domain"
	"github.com/sponsorhub/sponsorhub/internal/auth/session"
	"github.com/sponsorhub/sponsorhub/internal/authorization"
	"github.com/sponsorhub/sponsorhub/internal/blog"
	blogdomain "github.com/sponsorhub/sponsorhub/internal/blog/domain"
	"github.com/sponsorhub/sponsorhub/internal/config"
	"github.com/sponsorhub/sponsorhub/internal/invitation"
	invitationdomain "github.com/sponsorhub/sponsorhub/internal/invitation/domain"
	"github.com/sponsorhub/sponsorhub/internal/observability"
	obsmiddleware "github.com/sponsorhub/sponsorhub/internal/observability/logger"
	obsmetrics "github.com/sponsorhub/sponsorhub/internal/observability/metrics"
	obstracing "github.com/sponsorhub/sponsorhub/internal/observability/tracing"
	"github.com/sponsorhub/sponsorhub/internal/profile"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	"github.com/sponsorhub/sponsorhub/internal/promotion"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	"github.com/sponsorhub/sponsorhub/internal/providers/email"
	"github.com/sponsorhub/sponsorhub/internal/ratelimit"
	"github.com/sponsorhub/sponsorhub/internal/slack"
	slackservice "github.com/sponsorhub/sponsorhub/internal/slack/service"
	"github.com/sponsorhub/sponsorhub/internal/sponsor"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	fx.Provide(registerGin),
	authorization.Module,
	auth.Module,
	email.Module,
	profile.Module,
	sponsor.Module,
	promotion.Module,
	invitation.Module,
	blog.Module,
	analytics.Module,
	slack.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine        *gin.Engine
	cfg           config.Config
	db            *gorm.DB
	genID         *snowflake.Node
	sessions      *session.Manager
	authSvc       authdomain.Service
	authzSvc      authorization.Service
	profileSvc    profiledomain.Service
	sponsorSvc    sponsordomain.Service
	promotionSvc  promotiondomain.Service
	invitationSvc invitationdomain.Service
	blogSvc       blogdomain.Service
	analyticsSvc  analyticsdomain.Service
	notifier      *slackservice.Notifier
	limiter       *ratelimit.PortalLimiter
	obsMetrics    *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin           *gin.Engine
	Cfg           config.Config
	DB            *gorm.DB
	GenID         *snowflake.Node
	Sessions      *session.Manager
	AuthSvc       authdomain.Service
	AuthzSvc      authorization.Service
	ProfileSvc    profiledomain.Service
	SponsorSvc    sponsordomain.Service
	PromotionSvc  promotiondomain.Service
	InvitationSvc invitationdomain.Service
	BlogSvc       blogdomain.Service
	AnalyticsSvc  analyticsdomain.Service
	Notifier      *slackservice.Notifier
	Limiter       *ratelimit.PortalLimiter `optional:"true"`
	ObsMetrics    *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:        p.Gin,
		cfg:           p.Cfg,
		db:            p.DB,
		genID:         p.GenID,
		sessions:      p.Sessions,
		authSvc:       p.AuthSvc,
		authzSvc:      p.AuthzSvc,
		profileSvc:    p.ProfileSvc,
		sponsorSvc:    p.SponsorSvc,
		promotionSvc:  p.PromotionSvc,
		invitationSvc: p.InvitationSvc,
		blogSvc:       p.BlogSvc,
		analyticsSvc:  p.AnalyticsSvc,
		notifier:      p.Notifier,
		limiter:       p.Limiter,
		obsMetrics:    p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAdminRoutes()
	svc.registerSponsorAdminRoutes()
	svc.registerInvitationRoutes()
	svc.registerPublicRoutes()
	svc.registerRelayRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/magic-link", s.RequestMagicLink)
	auth.GET("/callback", s.AuthCallback)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.POST("/logout", s.Logout)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired(), s.RequireSuperAdmin())

	admin.GET("/sponsors", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorView), s.AdminListSponsors)
	admin.POST("/sponsors", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorCreate), s.AdminCreateSponsor)
	admin.GET("/sponsors/:id", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorView), s.AdminGetSponsor)
	admin.PUT("/sponsors/:id", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorUpdate), s.AdminUpdateSponsor)
	admin.DELETE("/sponsors/:id", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorDelete), s.AdminDeleteSponsor)
	admin.POST("/sponsors/:id/admins", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorUpdate), s.AdminLinkSponsorAdmin)
	admin.DELETE("/sponsors/:id/admins/:userId", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorUpdate), s.AdminUnlinkSponsorAdmin)
	admin.GET("/orphaned-admins", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorView), s.AdminListOrphanedAdmins)

	admin.GET("/promotions", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionView), s.AdminListPromotions)
	admin.POST("/promotions", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionCreate), s.AdminCreatePromotion)
	admin.GET("/promotions/:id", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionView), s.AdminGetPromotion)
	admin.PUT("/promotions/:id", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionUpdate), s.AdminUpdatePromotion)
	admin.DELETE("/promotions/:id", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionDelete), s.AdminDeletePromotion)
	admin.POST("/promotions/:id/decision", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionApprove), s.AdminDecidePromotion)

	admin.POST("/invitations", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationIssue), s.AdminIssueInvitation)
	admin.GET("/invitations/:email", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationView), s.AdminInspectInvitations)
	admin.POST("/invitations/:id/revoke", s.authorizeAction(authorization.ObjectInvitation, authorization.ActionInvitationRevoke), s.AdminRevokeInvitation)

	admin.GET("/blog", s.authorizeAction(authorization.ObjectBlogPost, authorization.ActionBlogPostView), s.AdminListPosts)
	admin.POST("/blog", s.authorizeAction(authorization.ObjectBlogPost, authorization.ActionBlogPostCreate), s.AdminCreatePost)
	admin.GET("/blog/:id", s.authorizeAction(authorization.ObjectBlogPost, authorization.ActionBlogPostView), s.AdminGetPost)
	admin.PUT("/blog/:id", s.authorizeAction(authorization.ObjectBlogPost, authorization.ActionBlogPostUpdate), s.AdminUpdatePost)
	admin.DELETE("/blog/:id", s.authorizeAction(authorization.ObjectBlogPost, authorization.ActionBlogPostDelete), s.AdminDeletePost)
	admin.POST("/blog/:id/publish", s.authorizeAction(authorization.ObjectBlogPost, authorization.ActionBlogPostPublish), s.AdminPublishPost)
	admin.POST("/blog/:id/archive", s.authorizeAction(authorization.ObjectBlogPost, authorization.ActionBlogPostUpdate), s.AdminArchivePost)

	admin.GET("/profiles", s.authorizeAction(authorization.ObjectProfile, authorization.ActionProfileView), s.AdminListProfiles)
	admin.PUT("/profiles/:id/role", s.authorizeAction(authorization.ObjectProfile, authorization.ActionProfileManageRoles), s.AdminAssignRole)

	admin.GET("/slack/notifications", s.authorizeAction(authorization.ObjectSlack, authorization.ActionSlackView), s.AdminSlackHistory)

	admin.GET("/analytics/events", s.authorizeAction(authorization.ObjectAnalytics, authorization.ActionAnalyticsView), s.AdminListEvents)
	admin.GET("/analytics/sponsors/:id/summary", s.authorizeAction(authorization.ObjectAnalytics, authorization.ActionAnalyticsView), s.AdminSponsorSummary)
}

func (s *Server) registerSponsorAdminRoutes() {
	sa := s.engine.Group("/api/sponsor-admin", s.AuthRequired(), s.SponsorContext())

	sa.GET("/sponsor", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorView), s.SponsorAdminGetSponsor)
	sa.PUT("/sponsor/profile", s.authorizeAction(authorization.ObjectSponsor, authorization.ActionSponsorUpdate), s.SponsorAdminUpdateProfile)
	sa.GET("/team", s.authorizeAction(authorization.ObjectProfile, authorization.ActionProfileView), s.SponsorAdminTeamMembers)
	sa.GET("/analytics/summary", s.authorizeAction(authorization.ObjectAnalytics, authorization.ActionAnalyticsView), s.SponsorAdminAnalyticsSummary)

	sa.GET("/promotions", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionView), s.SponsorAdminListPromotions)
	sa.POST("/promotions", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionCreate), s.SponsorAdminCreatePromotion)
	sa.PUT("/promotions/:id", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionUpdate), s.SponsorAdminUpdatePromotion)
	sa.POST("/promotions/:id/toggle-status", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionToggle), s.SponsorAdminTogglePromotion)
	sa.DELETE("/promotions/:id", s.authorizeAction(authorization.ObjectPromotion, authorization.ActionPromotionDelete), s.SponsorAdminDeletePromotion)
}

func (s *Server) registerInvitationRoutes() {
	inv := s.engine.Group("/api/invitations")

	inv.GET("/validate", s.PublicRateLimit(), s.ValidateInvitation)
	inv.POST("/accept", s.AuthRequired(), s.AcceptInvitation)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/api", s.PublicRateLimit())

	public.GET("/sponsors", s.PublicListSponsors)
	public.GET("/sponsors/:slug", s.PublicGetSponsor)
	public.GET("/promotions", s.PublicListPromotions)
	public.GET("/blog", s.PublicListPosts)
	public.GET("/blog/:slug", s.PublicGetPost)
	public.POST("/analytics/events", s.PublicRecordEvent)
}

func (s *Server) registerRelayRoutes() {
	cron := s.engine.Group("/api/cron", s.CronAuth())
	cron.POST("/expire-promotions", s.CronExpirePromotions)

	relay := s.engine.Group("/api/slack", s.SlackRelayAuth())
	relay.POST("/notify", s.SlackNotify)
	relay.POST("/post-promotion", s.SlackPostPromotion)
}
