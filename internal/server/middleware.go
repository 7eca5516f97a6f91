package server

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
)

const (
	contextProfileKey = "profile"
	contextSponsorKey = "sponsor"
)

// AuthRequired resolves the session cookie to a live session and loads the
// caller's profile into the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authSvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		profile, err := s.profileSvc.GetByID(c.Request.Context(), session.UserID)
		if err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(contextProfileKey, profile)
		c.Next()
	}
}

func (s *Server) RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if profile.Role != profiledomain.RoleSuperAdmin {
			AbortWithError(c, ErrForbidden)
			return
		}
		c.Next()
	}
}

// SponsorContext resolves the sponsor the caller administers. Callers without
// a sponsor link are rejected.
func (s *Server) SponsorContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		sponsor, err := s.sponsorSvc.SponsorForUser(c.Request.Context(), profile.ID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextSponsorKey, sponsor)
		c.Next()
	}
}

// authorizeAction checks the caller against the policy store. The scope is
// the sponsor resolved by SponsorContext when present, otherwise the portal
// domain.
func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, ok := currentProfile(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		scope := ""
		if sponsor, ok := currentSponsor(c); ok {
			scope = sponsor.ID
		}

		actor := fmt.Sprintf("user:%s", profile.ID.String())
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, scope, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// CronAuth gates the cron endpoints behind the shared cron secret.
func (s *Server) CronAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !bearerTokenMatches(c, s.cfg.CronSecret) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// SlackRelayAuth gates the Slack relay endpoints behind the webhook secret.
func (s *Server) SlackRelayAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !bearerTokenMatches(c, s.cfg.SlackWebhookSecret) {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// PublicRateLimit throttles unauthenticated endpoints per client IP. A nil
// limiter means rate limiting is disabled.
func (s *Server) PublicRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		res, err := s.limiter.AllowPublic(c.Request.Context(), c.ClientIP())
		if err != nil {
			// Redis being down must not take the public site with it.
			c.Next()
			return
		}
		if !res.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "public_api", "bucket_exhausted")
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), "public_api")
		}
		c.Next()
	}
}

func bearerTokenMatches(c *gin.Context, secret string) bool {
	if strings.TrimSpace(secret) == "" {
		return false
	}
	header := c.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(strings.TrimSpace(token)), []byte(secret)) == 1
}

func currentProfile(c *gin.Context) (*profiledomain.Profile, bool) {
	value, exists := c.Get(contextProfileKey)
	if !exists {
		return nil, false
	}
	profile, ok := value.(*profiledomain.Profile)
	return profile, ok && profile != nil
}

func currentSponsor(c *gin.Context) (*sponsordomain.SponsorResponse, bool) {
	value, exists := c.Get(contextSponsorKey)
	if !exists {
		return nil, false
	}
	sponsor, ok := value.(*sponsordomain.SponsorResponse)
	return sponsor, ok && sponsor != nil
}
