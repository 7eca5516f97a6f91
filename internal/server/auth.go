package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/sponsorhub/sponsorhub/internal/auth/domain"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
)

func (s *Server) RequestMagicLink(c *gin.Context) {
	var req authdomain.MagicLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if s.limiter.Enabled() {
		res, err := s.limiter.AllowMagicLink(c.Request.Context(), req.Email)
		if err == nil && !res.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "magic_link", "bucket_exhausted")
			}
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		if err == nil && s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(c.Request.Context(), "magic_link")
		}
	}

	result, err := s.authSvc.RequestMagicLink(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{"email_sent": result.EmailSent}
	if result.Warning != "" {
		body["warning"] = result.Warning
	}
	okJSON(c, http.StatusOK, body)
}

func (s *Server) AuthCallback(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		AbortWithError(c, authdomain.ErrInvalidToken)
		return
	}

	result, err := s.authSvc.Redeem(c.Request.Context(), authdomain.RedeemRequest{
		Token:     token,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.sessions.Set(c, result.RawToken, result.ExpiresAt)
	okJSON(c, http.StatusOK, gin.H{
		"profile":    result.Profile,
		"expires_at": result.ExpiresAt,
	})
}

func (s *Server) Me(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	okJSON(c, http.StatusOK, gin.H{"profile": profiledomain.ProfileResponse{
		ID:          profile.ID.String(),
		Email:       profile.Email,
		DisplayName: profile.DisplayName,
		AvatarURL:   profile.AvatarURL,
		Role:        profile.Role,
	}})
}

func (s *Server) Logout(c *gin.Context) {
	if token, ok := s.sessions.ReadToken(c); ok {
		// Revocation is best-effort; the cookie is cleared either way.
		_ = s.authSvc.Logout(c.Request.Context(), token)
	}
	s.sessions.Clear(c)
	okJSON(c, http.StatusOK, nil)
}
