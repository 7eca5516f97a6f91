package session

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sponsorhub/sponsorhub/internal/config"
)

const DefaultCookieName = "_sid"

// Manager reads and writes the portal session cookie. The cookie carries
// the raw session token; the hashed counterpart lives in the sessions table.
type Manager struct {
	cookieName string
	secure     bool
}

func NewManager(cfg config.Config) *Manager {
	// An https portal URL forces Secure even if the env flag was left off.
	secure := cfg.AuthCookieSecure || strings.HasPrefix(cfg.BaseURL, "https://")
	return &Manager{
		cookieName: DefaultCookieName,
		secure:     secure,
	}
}

func (m *Manager) CookieName() string {
	return m.cookieName
}

func (m *Manager) ReadToken(c *gin.Context) (string, bool) {
	token, err := c.Cookie(m.cookieName)
	if err != nil {
		return "", false
	}
	if strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

// Set writes the session cookie with an expiry matching the session row.
// SameSite=Lax so the magic-link redirect from the mail client carries it.
func (m *Manager) Set(c *gin.Context, value string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, value, maxAge, "/", "", m.secure, true)
}

func (m *Manager) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, "", -1, "/", "", m.secure, true)
}
