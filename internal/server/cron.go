package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CronExpirePromotions is the HTTP entry point for hosted cron. The built-in
// scheduler runs the same sweep; both paths are idempotent.
func (s *Server) CronExpirePromotions(c *gin.Context) {
	expired, err := s.promotionSvc.ExpireDue(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"expired_count": expired})
}
