package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"

	"github.com/sponsorhub/sponsorhub/internal/config"
)

const (
	keyMagicLink = "auth:magic_link:%s"
	keyPublicAPI = "public:api:%s"
)

// PortalLimiter throttles the unauthenticated surfaces: magic-link requests
// keyed by email and public reads keyed by client IP. A nil limiter allows
// everything, so the portal keeps working without redis.
type PortalLimiter struct {
	bucket *TokenBucket

	magicLinkRate  float64
	magicLinkBurst int
	publicRate     float64
	publicBurst    int
}

func NewPortalLimiter(cfg config.Config, client *redis.Client) (*PortalLimiter, error) {
	if !cfg.RateLimitEnabled {
		return nil, nil
	}
	if client == nil {
		return nil, errors.New("rate limit enabled but redis is not configured")
	}
	if cfg.MagicLinkRate <= 0 || cfg.MagicLinkBurst <= 0 {
		return nil, errors.New("magic link rate limit must be positive")
	}
	if cfg.PublicAPIRate <= 0 || cfg.PublicAPIBurst <= 0 {
		return nil, errors.New("public api rate limit must be positive")
	}

	return &PortalLimiter{
		bucket:         NewTokenBucket(client),
		magicLinkRate:  cfg.MagicLinkRate,
		magicLinkBurst: cfg.MagicLinkBurst,
		publicRate:     cfg.PublicAPIRate,
		publicBurst:    cfg.PublicAPIBurst,
	}, nil
}

func (l *PortalLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *PortalLimiter) AllowMagicLink(ctx context.Context, email string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyMagicLink, strings.ToLower(strings.TrimSpace(email)))
	return l.bucket.Allow(ctx, key, l.magicLinkRate, l.magicLinkBurst)
}

func (l *PortalLimiter) AllowPublic(ctx context.Context, clientIP string) (Result, error) {
	if !l.Enabled() {
		return Result{Allowed: true}, nil
	}
	key := fmt.Sprintf(keyPublicAPI, strings.TrimSpace(clientIP))
	return l.bucket.Allow(ctx, key, l.publicRate, l.publicBurst)
}
