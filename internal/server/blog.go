package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	blogdomain "github.com/sponsorhub/sponsorhub/internal/blog/domain"
)

func (s *Server) AdminListPosts(c *gin.Context) {
	filter := blogdomain.ListFilter{
		Status: c.Query("status"),
		Limit:  queryInt(c, "limit", 0),
		Offset: queryInt(c, "offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("sponsor_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, blogdomain.ErrInvalidID)
			return
		}
		filter.SponsorID = id
	}

	posts, err := s.blogSvc.List(c.Request.Context(), filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"posts": posts})
}

func (s *Server) AdminCreatePost(c *gin.Context) {
	profile, ok := currentProfile(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req blogdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	post, err := s.blogSvc.Create(c.Request.Context(), profile.ID, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusCreated, gin.H{"post": post})
}

func (s *Server) AdminGetPost(c *gin.Context) {
	post, err := s.blogSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"post": post})
}

func (s *Server) AdminUpdatePost(c *gin.Context) {
	var req blogdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	post, err := s.blogSvc.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"post": post})
}

func (s *Server) AdminDeletePost(c *gin.Context) {
	if err := s.blogSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, nil)
}

func (s *Server) AdminPublishPost(c *gin.Context) {
	post, err := s.blogSvc.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"post": post})
}

func (s *Server) AdminArchivePost(c *gin.Context) {
	post, err := s.blogSvc.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"post": post})
}

func (s *Server) PublicListPosts(c *gin.Context) {
	posts, err := s.blogSvc.ListPublished(c.Request.Context(), queryInt(c, "limit", 0))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"posts": posts})
}

func (s *Server) PublicGetPost(c *gin.Context) {
	post, err := s.blogSvc.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if post.Status != blogdomain.StatusPublished {
		AbortWithError(c, blogdomain.ErrNotFound)
		return
	}
	okJSON(c, http.StatusOK, gin.H{"post": post})
}
