package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/golang-jwt/jwt/v5"
	authdomain "github.com/sponsorhub/sponsorhub/internal/auth/domain"
	"github.com/sponsorhub/sponsorhub/internal/auth/repository"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/config"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	profilerepository "github.com/sponsorhub/sponsorhub/internal/profile/repository"
	profileservice "github.com/sponsorhub/sponsorhub/internal/profile/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingMailer struct {
	sent []string
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	return m.SendTemplate(ctx, to, "", nil)
}

func (m *recordingMailer) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to...)
	return nil
}

func newTestService(t *testing.T) (authdomain.Service, *clock.FakeClock, *recordingMailer) {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&authdomain.Session{}, &profiledomain.Profile{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	mailer := &recordingMailer{}

	profiles := profileservice.NewService(profilerepository.NewRepository(dbConn), node)

	cfg := config.Config{
		BaseURL:         "https://portal.example.com",
		AuthTokenSecret: "test-secret",
		SessionTTL:      7 * 24 * time.Hour,
		MagicLinkTTL:    15 * time.Minute,
	}
	svc := New(zap.NewNop(), repository.NewSessionRepository(dbConn), profiles, mailer, clk, node, cfg)
	return svc, clk, mailer
}

func signMagicLink(t *testing.T, impl *Service, email string) string {
	t.Helper()

	now := impl.clk.Now()
	claims := jwt.MapClaims{
		"sub": email,
		"pur": magicLinkPurpose,
		"iat": now.Unix(),
		"exp": now.Add(impl.magicLinkTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(impl.tokenSecret)
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func TestRequestMagicLinkValidatesEmail(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.RequestMagicLink(context.Background(), authdomain.MagicLinkRequest{Email: "not-an-email"})
	if err != authdomain.ErrInvalidEmail {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestRequestMagicLinkDeliveryFailureIsSoft(t *testing.T) {
	svc, _, mailer := newTestService(t)
	mailer.err = context.DeadlineExceeded

	res, err := svc.RequestMagicLink(context.Background(), authdomain.MagicLinkRequest{Email: "rider@example.com"})
	if err != nil {
		t.Fatalf("expected soft failure, got %v", err)
	}
	if res.EmailSent {
		t.Fatal("expected email_sent=false")
	}
	if res.Warning == "" {
		t.Fatal("expected warning")
	}
}

func TestRedeemCreatesSessionAndProfile(t *testing.T) {
	svc, _, _ := newTestService(t)

	impl := svc.(*Service)
	token := signMagicLink(t, impl, "rider@example.com")

	login, err := svc.Redeem(context.Background(), authdomain.RedeemRequest{
		Token:     token,
		UserAgent: "go-test",
		IPAddress: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("failed to redeem: %v", err)
	}
	if login.Profile.Email != "rider@example.com" {
		t.Fatalf("unexpected profile email %s", login.Profile.Email)
	}
	if login.Profile.Role != profiledomain.RoleSponsorAdmin {
		t.Fatalf("expected default role sponsor_admin, got %s", login.Profile.Role)
	}
	if login.RawToken == "" {
		t.Fatal("expected raw session token")
	}

	session, err := svc.Authenticate(context.Background(), login.RawToken)
	if err != nil {
		t.Fatalf("failed to authenticate: %v", err)
	}
	if session.UserID.String() != login.Profile.ID {
		t.Fatalf("session user %s != profile %s", session.UserID, login.Profile.ID)
	}
}

func TestRedeemExpiredToken(t *testing.T) {
	svc, clk, _ := newTestService(t)

	impl := svc.(*Service)
	token := signMagicLink(t, impl, "late@example.com")

	clk.Advance(16 * time.Minute)

	if _, err := svc.Redeem(context.Background(), authdomain.RedeemRequest{Token: token}); err != authdomain.ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestRedeemGarbageToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Redeem(context.Background(), authdomain.RedeemRequest{Token: "garbage"})
	if err != authdomain.ErrInvalidToken {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestAuthenticateLifecycle(t *testing.T) {
	svc, clk, _ := newTestService(t)

	impl := svc.(*Service)
	token := signMagicLink(t, impl, "rider@example.com")
	login, err := svc.Redeem(context.Background(), authdomain.RedeemRequest{Token: token})
	if err != nil {
		t.Fatalf("failed to redeem: %v", err)
	}

	if err := svc.Logout(context.Background(), login.RawToken); err != nil {
		t.Fatalf("failed to logout: %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), login.RawToken); err != authdomain.ErrSessionRevoked {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}

	token = signMagicLink(t, impl, "rider@example.com")
	login, err = svc.Redeem(context.Background(), authdomain.RedeemRequest{Token: token})
	if err != nil {
		t.Fatalf("failed to redeem: %v", err)
	}

	clk.Advance(8 * 24 * time.Hour)
	if _, err := svc.Authenticate(context.Background(), login.RawToken); err != authdomain.ErrSessionExpired {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}

	pruned, err := svc.PruneSessions(context.Background())
	if err != nil {
		t.Fatalf("failed to prune: %v", err)
	}
	if pruned < 1 {
		t.Fatalf("expected pruned sessions, got %d", pruned)
	}
}
