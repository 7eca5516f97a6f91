package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/sponsorhub/sponsorhub/internal/analytics/domain"
)

func (s *Server) AdminListEvents(c *gin.Context) {
	filter := analyticsdomain.ListFilter{
		EventType: c.Query("event_type"),
		Limit:     queryInt(c, "limit", 0),
	}
	if raw := strings.TrimSpace(c.Query("sponsor_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, analyticsdomain.ErrInvalidID)
			return
		}
		filter.SponsorID = id
	}
	if raw := strings.TrimSpace(c.Query("promotion_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, analyticsdomain.ErrInvalidID)
			return
		}
		filter.PromotionID = id
	}
	if since, ok := querySince(c); ok {
		filter.Since = since
	}

	events, err := s.analyticsSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"events": events})
}

func (s *Server) AdminSponsorSummary(c *gin.Context) {
	since, ok := querySince(c)
	if !ok {
		since = time.Now().AddDate(0, 0, -30)
	}

	summary, err := s.analyticsSvc.SponsorSummary(c.Request.Context(), c.Param("id"), since)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"summary": summary})
}

// SponsorAdminAnalyticsSummary aggregates events for the caller's own
// sponsor.
func (s *Server) SponsorAdminAnalyticsSummary(c *gin.Context) {
	sponsor, ok := currentSponsor(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	since, haveSince := querySince(c)
	if !haveSince {
		since = time.Now().AddDate(0, 0, -30)
	}

	summary, err := s.analyticsSvc.SponsorSummary(c.Request.Context(), sponsor.ID, since)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"summary": summary})
}

// PublicRecordEvent accepts fire-and-forget beacons from the public site.
func (s *Server) PublicRecordEvent(c *gin.Context) {
	var req analyticsdomain.RecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.analyticsSvc.Record(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusAccepted, nil)
}

func querySince(c *gin.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query("since"))
	if raw == "" {
		return time.Time{}, false
	}
	since, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return since, true
}
