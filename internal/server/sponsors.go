package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
)

type createSponsorRequest struct {
	Name         string   `json:"name" binding:"required"`
	Tagline      string   `json:"tagline"`
	Description  string   `json:"description"`
	LogoURL      string   `json:"logo_url"`
	BannerURL    string   `json:"banner_url"`
	Category     []string `json:"category"`
	WebsiteURL   string   `json:"website_url"`
	ContactEmail string   `json:"contact_email"`
	ContactPhone string   `json:"contact_phone"`
	Status       string   `json:"status"`
}

type updateSponsorRequest struct {
	Name         *string  `json:"name"`
	Tagline      *string  `json:"tagline"`
	Description  *string  `json:"description"`
	LogoURL      *string  `json:"logo_url"`
	BannerURL    *string  `json:"banner_url"`
	Category     []string `json:"category"`
	WebsiteURL   *string  `json:"website_url"`
	ContactEmail *string  `json:"contact_email"`
	ContactPhone *string  `json:"contact_phone"`
	Status       *string  `json:"status"`
}

type updateSponsorProfileRequest struct {
	Tagline         *string `json:"tagline"`
	Description     *string `json:"description"`
	LogoURL         *string `json:"logo_url"`
	BannerURL       *string `json:"banner_url"`
	WebsiteURL      *string `json:"website_url"`
	ContactEmail    *string `json:"contact_email"`
	ContactPhone    *string `json:"contact_phone"`
	AddressStreet   *string `json:"address_street"`
	AddressCity     *string `json:"address_city"`
	AddressState    *string `json:"address_state"`
	AddressZip      *string `json:"address_zip"`
	SocialInstagram *string `json:"social_instagram"`
	SocialFacebook  *string `json:"social_facebook"`
	SocialStrava    *string `json:"social_strava"`
	SocialTwitter   *string `json:"social_twitter"`
}

type linkAdminRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

func (s *Server) AdminListSponsors(c *gin.Context) {
	sponsors, err := s.sponsorSvc.List(c.Request.Context(), sponsordomain.ListFilter{
		Status:   c.Query("status"),
		Category: c.Query("category"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"sponsors": sponsors})
}

func (s *Server) AdminCreateSponsor(c *gin.Context) {
	var req createSponsorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sponsor, err := s.sponsorSvc.Create(c.Request.Context(), sponsordomain.CreateSponsorRequest{
		Name:         req.Name,
		Tagline:      req.Tagline,
		Description:  req.Description,
		LogoURL:      req.LogoURL,
		BannerURL:    req.BannerURL,
		Category:     req.Category,
		WebsiteURL:   req.WebsiteURL,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Status:       req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusCreated, gin.H{"sponsor": sponsor})
}

func (s *Server) AdminGetSponsor(c *gin.Context) {
	sponsor, err := s.sponsorSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"sponsor": sponsor})
}

func (s *Server) AdminUpdateSponsor(c *gin.Context) {
	var req updateSponsorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sponsor, err := s.sponsorSvc.Update(c.Request.Context(), c.Param("id"), sponsordomain.UpdateSponsorRequest{
		Name:         req.Name,
		Tagline:      req.Tagline,
		Description:  req.Description,
		LogoURL:      req.LogoURL,
		BannerURL:    req.BannerURL,
		Category:     req.Category,
		WebsiteURL:   req.WebsiteURL,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Status:       req.Status,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"sponsor": sponsor})
}

func (s *Server) AdminDeleteSponsor(c *gin.Context) {
	if err := s.sponsorSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, nil)
}

func (s *Server) AdminLinkSponsorAdmin(c *gin.Context) {
	var req linkAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sponsorID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, sponsordomain.ErrInvalidID)
		return
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(req.UserID))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.sponsorSvc.LinkAdmin(c.Request.Context(), sponsorID, userID); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, nil)
}

func (s *Server) AdminUnlinkSponsorAdmin(c *gin.Context) {
	sponsorID, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, sponsordomain.ErrInvalidID)
		return
	}
	userID, err := snowflake.ParseString(strings.TrimSpace(c.Param("userId")))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.sponsorSvc.UnlinkAdmin(c.Request.Context(), sponsorID, userID); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, nil)
}

func (s *Server) AdminListOrphanedAdmins(c *gin.Context) {
	orphans, err := s.sponsorSvc.FindOrphanedAdmins(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"orphaned_admins": orphans})
}

func (s *Server) SponsorAdminGetSponsor(c *gin.Context) {
	sponsor, ok := currentSponsor(c)
	if !ok {
		AbortWithError(c, sponsordomain.ErrNoSponsor)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"sponsor": sponsor})
}

func (s *Server) SponsorAdminUpdateProfile(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req updateSponsorProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sponsor, err := s.sponsorSvc.UpdateOwnProfile(c.Request.Context(), profile.ID, sponsordomain.UpdateSponsorProfileRequest{
		Tagline:         req.Tagline,
		Description:     req.Description,
		LogoURL:         req.LogoURL,
		BannerURL:       req.BannerURL,
		WebsiteURL:      req.WebsiteURL,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
		AddressStreet:   req.AddressStreet,
		AddressCity:     req.AddressCity,
		AddressState:    req.AddressState,
		AddressZip:      req.AddressZip,
		SocialInstagram: req.SocialInstagram,
		SocialFacebook:  req.SocialFacebook,
		SocialStrava:    req.SocialStrava,
		SocialTwitter:   req.SocialTwitter,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"sponsor": sponsor})
}

func (s *Server) SponsorAdminTeamMembers(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	members, err := s.sponsorSvc.TeamMembers(c.Request.Context(), profile.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"team_members": members})
}

func (s *Server) PublicListSponsors(c *gin.Context) {
	sponsors, err := s.sponsorSvc.ListActive(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"sponsors": sponsors})
}

// PublicGetSponsor returns one active sponsor with its currently visible
// promotions.
func (s *Server) PublicGetSponsor(c *gin.Context) {
	sponsor, err := s.sponsorSvc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if sponsor.Status != sponsordomain.StatusActive {
		AbortWithError(c, sponsordomain.ErrNotFound)
		return
	}

	promotions, err := s.visiblePromotionsForSponsor(c, sponsor.ID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{
		"sponsor":    sponsor,
		"promotions": promotions,
	})
}
