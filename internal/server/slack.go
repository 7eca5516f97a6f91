package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	slackdomain "github.com/sponsorhub/sponsorhub/internal/slack/domain"
)

type slackNotifyRequest struct {
	EventType string         `json:"event_type" binding:"required"`
	Channel   string         `json:"channel"`
	Text      string         `json:"text" binding:"required"`
	Payload   map[string]any `json:"payload"`
}

type slackPostPromotionRequest struct {
	PromotionID string `json:"promotion_id" binding:"required"`
	Channel     string `json:"channel"`
}

func (s *Server) AdminSlackHistory(c *gin.Context) {
	notifications, err := s.notifier.History(c.Request.Context(), slackdomain.ListFilter{
		NotificationType: c.Query("notification_type"),
		Status:           c.Query("status"),
		Limit:            queryInt(c, "limit", 0),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"notifications": notifications})
}

// SlackNotify relays an arbitrary message from a trusted caller.
func (s *Server) SlackNotify(c *gin.Context) {
	var req slackNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	// Delivery failures are recorded on the notification row; the relay
	// itself answers success so the caller does not retry into a dead
	// channel.
	sent := true
	if err := s.notifier.Notify(c.Request.Context(), req.EventType, req.Channel, req.Text, req.Payload); err != nil {
		sent = false
	}
	okJSON(c, http.StatusOK, gin.H{"sent": sent})
}

// SlackPostPromotion announces a promotion by id, used by external automation
// after an approval.
func (s *Server) SlackPostPromotion(c *gin.Context) {
	var req slackPostPromotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	promotion, err := s.promotionSvc.GetByID(c.Request.Context(), req.PromotionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	eventType := slackdomain.EventNewPromotion
	if promotion.IsFeatured {
		eventType = slackdomain.EventFeaturedPromotion
	}
	text := ":tada: New promotion live: *" + promotion.Title + "*"
	if promotion.IsFeatured {
		text = ":star: Featured promotion live: *" + promotion.Title + "*"
	}

	sent := true
	if err := s.notifier.Notify(c.Request.Context(), eventType, req.Channel, text, map[string]string{
		"promotion_id": promotion.ID,
		"sponsor_id":   promotion.SponsorID,
		"title":        promotion.Title,
	}); err != nil {
		sent = false
	}
	okJSON(c, http.StatusOK, gin.H{"sent": sent})
}
