package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sponsorhub/sponsorhub/internal/auth/domain"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/config"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	"github.com/sponsorhub/sponsorhub/internal/providers/email"
	"go.uber.org/zap"
)

const (
	sessionTokenBytes = 32
	magicLinkPurpose  = "magic_link"
)

type Service struct {
	log          *zap.Logger
	sessionRepo  domain.SessionRepository
	profiles     profiledomain.Service
	mailer       email.Provider
	clk          clock.Clock
	genID        *snowflake.Node
	tokenSecret  []byte
	sessionTTL   time.Duration
	magicLinkTTL time.Duration
	baseURL      string
}

func New(
	log *zap.Logger,
	sessionRepo domain.SessionRepository,
	profiles profiledomain.Service,
	mailer email.Provider,
	clk clock.Clock,
	genID *snowflake.Node,
	cfg config.Config,
) domain.Service {
	return &Service{
		log:          log.Named("auth.service"),
		sessionRepo:  sessionRepo,
		profiles:     profiles,
		mailer:       mailer,
		clk:          clk,
		genID:        genID,
		tokenSecret:  []byte(cfg.AuthTokenSecret),
		sessionTTL:   cfg.SessionTTL,
		magicLinkTTL: cfg.MagicLinkTTL,
		baseURL:      cfg.BaseURL,
	}
}

func (s *Service) RequestMagicLink(ctx context.Context, req domain.MagicLinkRequest) (*domain.MagicLinkResult, error) {
	emailAddr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}

	now := s.clk.Now()
	claims := jwt.MapClaims{
		"sub": emailAddr,
		"pur": magicLinkPurpose,
		"iat": now.Unix(),
		"exp": now.Add(s.magicLinkTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.tokenSecret)
	if err != nil {
		return nil, err
	}

	loginURL := fmt.Sprintf("%s/auth/callback?token=%s", s.baseURL, token)
	result := &domain.MagicLinkResult{EmailSent: true}

	sendErr := s.mailer.SendTemplate(ctx, []string{emailAddr}, "magic_link", map[string]interface{}{
		"login_url":   loginURL,
		"ttl_minutes": int(s.magicLinkTTL.Minutes()),
	})
	if sendErr != nil {
		s.log.Warn("magic link delivery failed", zap.Error(sendErr))
		result.EmailSent = false
		result.Warning = sendErr.Error()
	}
	return result, nil
}

func (s *Service) Redeem(ctx context.Context, req domain.RedeemRequest) (*domain.LoginResult, error) {
	emailAddr, err := s.parseMagicLink(req.Token)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.EnsureForLogin(ctx, emailAddr)
	if err != nil {
		return nil, err
	}

	rawToken, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	session := &domain.Session{
		ID:               s.genID.Generate(),
		UserID:           profile.ID,
		SessionTokenHash: hashToken(rawToken),
		UserAgent:        strings.TrimSpace(req.UserAgent),
		IPAddress:        strings.TrimSpace(req.IPAddress),
		ExpiresAt:        now.Add(s.sessionTTL),
		CreatedAt:        now,
		LastSeenAt:       now,
	}
	if err := s.sessionRepo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	return &domain.LoginResult{
		Profile: &profiledomain.ProfileResponse{
			ID:          profile.ID.String(),
			Email:       profile.Email,
			DisplayName: profile.DisplayName,
			AvatarURL:   profile.AvatarURL,
			Role:        profile.Role,
		},
		RawToken:  rawToken,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *Service) Logout(ctx context.Context, rawToken string) error {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrInvalidSession
		}
		return err
	}

	return s.sessionRepo.RevokeSession(ctx, session.ID, s.clk.Now())
}

func (s *Service) Authenticate(ctx context.Context, rawToken string) (*domain.Session, error) {
	token := strings.TrimSpace(rawToken)
	if token == "" {
		return nil, domain.ErrInvalidSession
	}

	session, err := s.sessionRepo.GetSessionByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, domain.ErrInvalidSession
		}
		return nil, err
	}

	now := s.clk.Now()
	if session.RevokedAt != nil {
		return nil, domain.ErrSessionRevoked
	}
	if now.After(session.ExpiresAt) {
		return nil, domain.ErrSessionExpired
	}

	if err := s.sessionRepo.UpdateLastSeen(ctx, session.ID, now); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) PruneSessions(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.clk.Now())
}

func (s *Service) parseMagicLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrInvalidToken
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return s.tokenSecret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.clk.Now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", domain.ErrTokenExpired
		}
		return "", domain.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrInvalidToken
	}
	if purpose, _ := claims["pur"].(string); purpose != magicLinkPurpose {
		return "", domain.ErrInvalidToken
	}
	emailAddr, _ := claims["sub"].(string)
	if emailAddr == "" {
		return "", domain.ErrInvalidToken
	}
	return emailAddr, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}

func newSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
