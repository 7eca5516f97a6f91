package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	analyticsdomain "github.com/sponsorhub/sponsorhub/internal/analytics/domain"
	authdomain "github.com/sponsorhub/sponsorhub/internal/auth/domain"
	"github.com/sponsorhub/sponsorhub/internal/authorization"
	blogdomain "github.com/sponsorhub/sponsorhub/internal/blog/domain"
	invitationdomain "github.com/sponsorhub/sponsorhub/internal/invitation/domain"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	"gorm.io/gorm"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal_error")
	ErrNotFound        = errors.New("not_found")
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("rate_limited")
)

// ErrorHandlingMiddleware turns the last error recorded on the context into
// the portal's JSON error envelope.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, code := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Success: false, Error: code})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// okJSON writes a success envelope. The body map is mutated in place.
func okJSON(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

func mapError(err error) (int, string) {
	if err == nil {
		return http.StatusInternalServerError, "internal_error"
	}

	switch {
	case isUnauthorizedError(err):
		return http.StatusUnauthorized, "unauthorized"
	case isForbiddenError(err):
		return http.StatusForbidden, "forbidden"
	case isNotFoundError(err):
		return http.StatusNotFound, err.Error()
	case isConflictError(err):
		return http.StatusConflict, err.Error()
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, "rate_limited"
	case isValidationError(err):
		return http.StatusBadRequest, validationErrorCode(err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func isUnauthorizedError(err error) bool {
	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked),
		errors.Is(err, authdomain.ErrSessionNotFound),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrTokenExpired):
		return true
	default:
		return false
	}
}

func isForbiddenError(err error) bool {
	switch {
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, sponsordomain.ErrNoSponsor),
		errors.Is(err, promotiondomain.ErrNoSponsor),
		errors.Is(err, invitationdomain.ErrUserMismatch):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, sponsordomain.ErrNotFound),
		errors.Is(err, promotiondomain.ErrNotFound),
		errors.Is(err, blogdomain.ErrNotFound),
		errors.Is(err, profiledomain.ErrNotFound),
		errors.Is(err, invitationdomain.ErrNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, sponsordomain.ErrSlugTaken),
		errors.Is(err, blogdomain.ErrSlugTaken),
		errors.Is(err, invitationdomain.ErrAlreadyAccepted),
		errors.Is(err, promotiondomain.ErrAlreadyDecided):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, sponsordomain.ErrInvalidName),
		errors.Is(err, sponsordomain.ErrInvalidStatus),
		errors.Is(err, sponsordomain.ErrInvalidID),
		errors.Is(err, promotiondomain.ErrInvalidID),
		errors.Is(err, promotiondomain.ErrInvalidType),
		errors.Is(err, promotiondomain.ErrInvalidStatus),
		errors.Is(err, promotiondomain.ErrInvalidTitle),
		errors.Is(err, promotiondomain.ErrEndDateMissing),
		errors.Is(err, promotiondomain.ErrEndBeforeStart),
		errors.Is(err, blogdomain.ErrInvalidTitle),
		errors.Is(err, blogdomain.ErrInvalidStatus),
		errors.Is(err, blogdomain.ErrInvalidID),
		errors.Is(err, profiledomain.ErrInvalidEmail),
		errors.Is(err, profiledomain.ErrInvalidRole),
		errors.Is(err, invitationdomain.ErrExpired),
		errors.Is(err, invitationdomain.ErrInvalidEmail),
		errors.Is(err, invitationdomain.ErrInvalidRole),
		errors.Is(err, invitationdomain.ErrInvalidToken),
		errors.Is(err, invitationdomain.ErrInvalidID),
		errors.Is(err, invitationdomain.ErrSponsorRequired),
		errors.Is(err, analyticsdomain.ErrInvalidEventType),
		errors.Is(err, analyticsdomain.ErrInvalidID),
		errors.Is(err, authdomain.ErrInvalidEmail):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

// classifyErrorForLog feeds the request logger's error fields.
func classifyErrorForLog(err error) (string, string) {
	status, code := mapError(err)
	if status >= http.StatusInternalServerError {
		return "server_error", code
	}
	return "client_error", code
}
