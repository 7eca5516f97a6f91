package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
)

type assignRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (s *Server) AdminListProfiles(c *gin.Context) {
	profiles, err := s.profileSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"profiles": profiles})
}

func (s *Server) AdminAssignRole(c *gin.Context) {
	var req assignRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, profiledomain.ErrNotFound)
		return
	}

	if err := s.profileSvc.AssignRole(c.Request.Context(), id, req.Role); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, nil)
}
