package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
)

func (s *Server) AdminListPromotions(c *gin.Context) {
	filter := promotiondomain.ListFilter{
		Status:         c.Query("status"),
		ApprovalStatus: c.Query("approval_status"),
		Limit:          queryInt(c, "limit", 0),
		Offset:         queryInt(c, "offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("sponsor_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, promotiondomain.ErrInvalidID)
			return
		}
		filter.SponsorID = id
	}

	promotions, err := s.promotionSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"promotions": promotions})
}

func (s *Server) AdminCreatePromotion(c *gin.Context) {
	var req promotiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	promotion, err := s.promotionSvc.Create(c.Request.Context(), s.actorFor(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusCreated, gin.H{"promotion": promotion})
}

func (s *Server) AdminGetPromotion(c *gin.Context) {
	promotion, err := s.promotionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"promotion": promotion})
}

func (s *Server) AdminUpdatePromotion(c *gin.Context) {
	var req promotiondomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	promotion, err := s.promotionSvc.Update(c.Request.Context(), s.actorFor(c), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"promotion": promotion})
}

func (s *Server) AdminDeletePromotion(c *gin.Context) {
	if err := s.promotionSvc.Delete(c.Request.Context(), s.actorFor(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, nil)
}

func (s *Server) AdminDecidePromotion(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req promotiondomain.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	promotion, err := s.promotionSvc.Decide(c.Request.Context(), profile.ID, c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"promotion": promotion})
}

func (s *Server) SponsorAdminListPromotions(c *gin.Context) {
	promotions, err := s.promotionSvc.ListForSponsor(c.Request.Context(), s.actorFor(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"promotions": promotions})
}

func (s *Server) SponsorAdminCreatePromotion(c *gin.Context) {
	var req promotiondomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	promotion, err := s.promotionSvc.Create(c.Request.Context(), s.actorFor(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusCreated, gin.H{"promotion": promotion})
}

func (s *Server) SponsorAdminUpdatePromotion(c *gin.Context) {
	var req promotiondomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	promotion, err := s.promotionSvc.Update(c.Request.Context(), s.actorFor(c), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"promotion": promotion})
}

func (s *Server) SponsorAdminTogglePromotion(c *gin.Context) {
	promotion, err := s.promotionSvc.ToggleStatus(c.Request.Context(), s.actorFor(c), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"promotion": promotion})
}

func (s *Server) SponsorAdminDeletePromotion(c *gin.Context) {
	if err := s.promotionSvc.Delete(c.Request.Context(), s.actorFor(c), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, nil)
}

func (s *Server) PublicListPromotions(c *gin.Context) {
	promotions, err := s.promotionSvc.ListPublic(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"promotions": promotions})
}

// actorFor assembles the promotion actor from the request context. SponsorID
// stays zero for super admins, which the service treats as unscoped.
func (s *Server) actorFor(c *gin.Context) promotiondomain.Actor {
	actor := promotiondomain.Actor{}
	if profile, ok := currentProfile(c); ok {
		actor.UserID = profile.ID
		actor.Role = profile.Role
	}
	if actor.Role != profiledomain.RoleSuperAdmin {
		if sponsor, ok := currentSponsor(c); ok {
			if id, err := snowflake.ParseString(sponsor.ID); err == nil {
				actor.SponsorID = id
			}
		}
	}
	return actor
}

func (s *Server) visiblePromotionsForSponsor(c *gin.Context, sponsorID string) ([]promotiondomain.PromotionResponse, error) {
	visible, err := s.promotionSvc.ListPublic(c.Request.Context(), 0)
	if err != nil {
		return nil, err
	}
	scoped := make([]promotiondomain.PromotionResponse, 0, len(visible))
	for _, promotion := range visible {
		if promotion.SponsorID == sponsorID {
			scoped = append(scoped, promotion)
		}
	}
	return scoped, nil
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
