package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invitationdomain "github.com/sponsorhub/sponsorhub/internal/invitation/domain"
)

type issueInvitationRequest struct {
	Email       string `json:"email" binding:"required"`
	Role        string `json:"role" binding:"required"`
	SponsorID   string `json:"sponsor_id"`
	SponsorName string `json:"sponsor_name"`
}

type acceptInvitationRequest struct {
	Token string `json:"token" binding:"required"`
}

func (s *Server) AdminIssueInvitation(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req issueInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.invitationSvc.Issue(c.Request.Context(), invitationdomain.IssueRequest{
		Email:       req.Email,
		Role:        req.Role,
		SponsorID:   req.SponsorID,
		SponsorName: req.SponsorName,
		CreatedBy:   profile.ID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body := gin.H{
		"invitation_id":  result.InvitationID,
		"invitation_url": result.InvitationURL,
		"email_sent":     result.EmailSent,
	}
	if result.Warning != "" {
		body["warning"] = result.Warning
	}
	okJSON(c, http.StatusCreated, body)
}

func (s *Server) AdminInspectInvitations(c *gin.Context) {
	state, err := s.invitationSvc.Inspect(c.Request.Context(), c.Param("email"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"flow": state})
}

func (s *Server) AdminRevokeInvitation(c *gin.Context) {
	if err := s.invitationSvc.Revoke(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, nil)
}

func (s *Server) ValidateInvitation(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		AbortWithError(c, invitationdomain.ErrInvalidToken)
		return
	}

	invitation, err := s.invitationSvc.Validate(c.Request.Context(), token)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"invitation": invitation})
}

// AcceptInvitation binds the logged-in caller to the invitation's role and
// sponsor. The invitation must match the session email.
func (s *Server) AcceptInvitation(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req acceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	invitation, err := s.invitationSvc.Validate(c.Request.Context(), req.Token)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	err = s.invitationSvc.Accept(c.Request.Context(), invitationdomain.AcceptRequest{
		Token:     req.Token,
		UserID:    profile.ID,
		Email:     profile.Email,
		Role:      invitation.Role,
		SponsorID: invitation.SponsorID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{
		"role":       invitation.Role,
		"sponsor_id": invitation.SponsorID,
	})
}
