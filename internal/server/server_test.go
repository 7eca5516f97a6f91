package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	analyticsdomain "github.com/sponsorhub/sponsorhub/internal/analytics/domain"
	analyticsrepository "github.com/sponsorhub/sponsorhub/internal/analytics/repository"
	analyticsservice "github.com/sponsorhub/sponsorhub/internal/analytics/service"
	authdomain "github.com/sponsorhub/sponsorhub/internal/auth/domain"
	authrepository "github.com/sponsorhub/sponsorhub/internal/auth/repository"
	authservice "github.com/sponsorhub/sponsorhub/internal/auth/service"
	"github.com/sponsorhub/sponsorhub/internal/auth/session"
	blogdomain "github.com/sponsorhub/sponsorhub/internal/blog/domain"
	blogrepository "github.com/sponsorhub/sponsorhub/internal/blog/repository"
	blogservice "github.com/sponsorhub/sponsorhub/internal/blog/service"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/config"
	invitationdomain "github.com/sponsorhub/sponsorhub/internal/invitation/domain"
	invitationrepository "github.com/sponsorhub/sponsorhub/internal/invitation/repository"
	invitationservice "github.com/sponsorhub/sponsorhub/internal/invitation/service"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	profilerepository "github.com/sponsorhub/sponsorhub/internal/profile/repository"
	profileservice "github.com/sponsorhub/sponsorhub/internal/profile/service"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	promotionrepository "github.com/sponsorhub/sponsorhub/internal/promotion/repository"
	promotionservice "github.com/sponsorhub/sponsorhub/internal/promotion/service"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	sponsorrepository "github.com/sponsorhub/sponsorhub/internal/sponsor/repository"
	sponsorservice "github.com/sponsorhub/sponsorhub/internal/sponsor/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// capturingMailer records the last magic-link URL so tests can redeem it.
type capturingMailer struct {
	lastLoginURL string
}

func (m *capturingMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	return nil
}

func (m *capturingMailer) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	if fields, ok := data.(map[string]interface{}); ok {
		if loginURL, ok := fields["login_url"].(string); ok {
			m.lastLoginURL = loginURL
		}
	}
	return nil
}

type allowAllAuthz struct{}

func (allowAllAuthz) Authorize(ctx context.Context, actor, scope, object, action string) error {
	return nil
}

type serverFixture struct {
	srv    *Server
	engine *gin.Engine
	db     *gorm.DB
	mailer *capturingMailer
	cfg    config.Config
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&profiledomain.Profile{},
		&authdomain.Session{},
		&sponsordomain.Sponsor{},
		&sponsordomain.SponsorAdmin{},
		&promotiondomain.Promotion{},
		&invitationdomain.Invitation{},
		&blogdomain.Post{},
		&blogdomain.PostSponsor{},
		&analyticsdomain.Event{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(9)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	log := zap.NewNop()
	clk := clock.NewSystemClock()
	mailer := &capturingMailer{}
	cfg := config.Config{
		BaseURL:            "http://portal.test",
		AuthTokenSecret:    "server-test-secret",
		SessionTTL:         24 * time.Hour,
		MagicLinkTTL:       15 * time.Minute,
		CronSecret:         "cron-test-secret",
		SlackWebhookSecret: "slack-test-secret",
	}

	profileRepo := profilerepository.NewRepository(db)
	profileSvc := profileservice.NewService(profileRepo, node)
	sponsorRepo := sponsorrepository.NewRepository(db)
	sponsorSvc := sponsorservice.NewService(db, sponsorRepo, node, nil, log)
	promotionRepo := promotionrepository.NewRepository(db)
	promotionSvc := promotionservice.NewService(promotionRepo, nil, clk, node, nil, log)
	invitationRepo := invitationrepository.NewRepository(db)
	invitationSvc := invitationservice.NewService(invitationRepo, profileRepo, sponsorRepo, mailer, clk, node, nil, cfg, log)
	blogSvc := blogservice.NewService(blogrepository.NewRepository(db), nil, clk, node, log)
	analyticsSvc := analyticsservice.NewService(analyticsrepository.NewRepository(db), clk, node)
	authSvc := authservice.New(log, authrepository.NewSessionRepository(db), profileSvc, mailer, clk, node, cfg)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	srv := NewServer(ServerParams{
		Gin:           engine,
		Cfg:           cfg,
		DB:            db,
		GenID:         node,
		Sessions:      session.NewManager(cfg),
		AuthSvc:       authSvc,
		AuthzSvc:      allowAllAuthz{},
		ProfileSvc:    profileSvc,
		SponsorSvc:    sponsorSvc,
		PromotionSvc:  promotionSvc,
		InvitationSvc: invitationSvc,
		BlogSvc:       blogSvc,
		AnalyticsSvc:  analyticsSvc,
	})

	return &serverFixture{srv: srv, engine: engine, db: db, mailer: mailer, cfg: cfg}
}

func (f *serverFixture) do(t *testing.T, method, path, body, cookie string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBufferString("")
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp := httptest.NewRecorder()
	f.engine.ServeHTTP(resp, req)
	return resp
}

// loginAs runs the full magic-link flow for an email and returns the session
// cookie. The profile is created beforehand so the role sticks.
func (f *serverFixture) loginAs(t *testing.T, emailAddr, role string) string {
	t.Helper()

	var existing profiledomain.Profile
	err := f.db.Where("email = ?", emailAddr).First(&existing).Error
	if err == gorm.ErrRecordNotFound {
		node, _ := snowflake.NewNode(10)
		existing = profiledomain.Profile{ID: node.Generate(), Email: emailAddr, Role: role}
		if err := f.db.Create(&existing).Error; err != nil {
			t.Fatalf("seed profile: %v", err)
		}
	} else if err != nil {
		t.Fatalf("lookup profile: %v", err)
	}

	resp := f.do(t, http.MethodPost, "/auth/magic-link", fmt.Sprintf(`{"email":%q}`, emailAddr), "")
	if resp.Code != http.StatusOK {
		t.Fatalf("magic-link request: status %d body %s", resp.Code, resp.Body.String())
	}
	if f.mailer.lastLoginURL == "" {
		t.Fatal("no magic link captured")
	}

	parsed, err := url.Parse(f.mailer.lastLoginURL)
	if err != nil {
		t.Fatalf("parse login url: %v", err)
	}
	token := parsed.Query().Get("token")

	resp = f.do(t, http.MethodGet, "/auth/callback?token="+url.QueryEscape(token), "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("callback: status %d body %s", resp.Code, resp.Body.String())
	}

	for _, raw := range resp.Header().Values("Set-Cookie") {
		if strings.HasPrefix(raw, session.DefaultCookieName+"=") {
			return strings.SplitN(raw, ";", 2)[0]
		}
	}
	t.Fatal("no session cookie set by callback")
	return ""
}

func decodeBody(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", resp.Body.String(), err)
	}
	return body
}

func TestAuthMeRequiresSession(t *testing.T) {
	f := newServerFixture(t)

	resp := f.do(t, http.MethodGet, "/auth/me", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Fatalf("expected success=false, got %v", body["success"])
	}
	if body["error"] != "unauthorized" {
		t.Fatalf("expected error=unauthorized, got %v", body["error"])
	}
}

func TestMagicLinkLoginFlow(t *testing.T) {
	f := newServerFixture(t)

	cookie := f.loginAs(t, "rider@example.com", profiledomain.RoleSponsorAdmin)

	resp := f.do(t, http.MethodGet, "/auth/me", "", cookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("me: status %d body %s", resp.Code, resp.Body.String())
	}
	body := decodeBody(t, resp)
	profile, ok := body["profile"].(map[string]any)
	if !ok {
		t.Fatalf("expected profile object, got %v", body)
	}
	if profile["email"] != "rider@example.com" {
		t.Fatalf("unexpected email %v", profile["email"])
	}
	if profile["role"] != profiledomain.RoleSponsorAdmin {
		t.Fatalf("unexpected role %v", profile["role"])
	}
}

func TestLogoutClearsSession(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.loginAs(t, "rider@example.com", profiledomain.RoleSponsorAdmin)

	resp := f.do(t, http.MethodPost, "/auth/logout", "", cookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("logout: status %d", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/auth/me", "", cookie)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.Code)
	}
}

func TestAdminRoutesRequireSuperAdmin(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.loginAs(t, "rider@example.com", profiledomain.RoleSponsorAdmin)

	resp := f.do(t, http.MethodGet, "/api/admin/sponsors", "", cookie)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
	body := decodeBody(t, resp)
	if body["error"] != "forbidden" {
		t.Fatalf("expected error=forbidden, got %v", body["error"])
	}
}

func TestAdminSponsorCRUD(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.loginAs(t, "admin@example.com", profiledomain.RoleSuperAdmin)

	resp := f.do(t, http.MethodPost, "/api/admin/sponsors", `{"name":"Trail Coffee","status":"active"}`, cookie)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create: status %d body %s", resp.Code, resp.Body.String())
	}
	created := decodeBody(t, resp)["sponsor"].(map[string]any)
	sponsorID := created["id"].(string)
	if created["slug"] != "trail-coffee" {
		t.Fatalf("unexpected slug %v", created["slug"])
	}

	resp = f.do(t, http.MethodPut, "/api/admin/sponsors/"+sponsorID, `{"tagline":"Fuel for the ride"}`, cookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("update: status %d body %s", resp.Code, resp.Body.String())
	}
	updated := decodeBody(t, resp)["sponsor"].(map[string]any)
	if updated["tagline"] != "Fuel for the ride" {
		t.Fatalf("unexpected tagline %v", updated["tagline"])
	}

	resp = f.do(t, http.MethodDelete, "/api/admin/sponsors/"+sponsorID, "", cookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("delete: status %d", resp.Code)
	}

	resp = f.do(t, http.MethodGet, "/api/admin/sponsors/"+sponsorID, "", cookie)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", resp.Code)
	}
}

func TestPublicSponsorListOnlyActive(t *testing.T) {
	f := newServerFixture(t)
	cookie := f.loginAs(t, "admin@example.com", profiledomain.RoleSuperAdmin)

	f.do(t, http.MethodPost, "/api/admin/sponsors", `{"name":"Active Sponsor","status":"active"}`, cookie)
	f.do(t, http.MethodPost, "/api/admin/sponsors", `{"name":"Pending Sponsor","status":"pending"}`, cookie)

	resp := f.do(t, http.MethodGet, "/api/sponsors", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("public list: status %d", resp.Code)
	}
	sponsors := decodeBody(t, resp)["sponsors"].([]any)
	if len(sponsors) != 1 {
		t.Fatalf("expected 1 active sponsor, got %d", len(sponsors))
	}

	resp = f.do(t, http.MethodGet, "/api/sponsors/pending-sponsor", "", "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for pending sponsor, got %d", resp.Code)
	}
}

func TestPromotionApprovalFlow(t *testing.T) {
	f := newServerFixture(t)
	adminCookie := f.loginAs(t, "admin@example.com", profiledomain.RoleSuperAdmin)

	resp := f.do(t, http.MethodPost, "/api/admin/sponsors", `{"name":"Gear Shop","status":"active"}`, adminCookie)
	sponsorID := decodeBody(t, resp)["sponsor"].(map[string]any)["id"].(string)

	sponsorCookie := f.loginAs(t, "owner@gearshop.com", profiledomain.RoleSponsorAdmin)
	var owner profiledomain.Profile
	if err := f.db.Where("email = ?", "owner@gearshop.com").First(&owner).Error; err != nil {
		t.Fatalf("load owner: %v", err)
	}
	sid, _ := snowflake.ParseString(sponsorID)
	if err := f.db.Create(&sponsordomain.SponsorAdmin{ID: owner.ID + 1, SponsorID: sid, UserID: owner.ID}).Error; err != nil {
		t.Fatalf("link admin: %v", err)
	}

	resp = f.do(t, http.MethodPost, "/api/sponsor-admin/promotions", `{"title":"20% off tune-ups","promotion_type":"evergreen"}`, sponsorCookie)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create promotion: status %d body %s", resp.Code, resp.Body.String())
	}
	promotion := decodeBody(t, resp)["promotion"].(map[string]any)
	if promotion["approval_status"] != promotiondomain.ApprovalPending {
		t.Fatalf("expected pending approval, got %v", promotion["approval_status"])
	}
	promotionID := promotion["id"].(string)

	resp = f.do(t, http.MethodPost, "/api/admin/promotions/"+promotionID+"/decision", `{"approve":true,"publish_to_site":true}`, adminCookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("decide: status %d body %s", resp.Code, resp.Body.String())
	}
	decided := decodeBody(t, resp)["promotion"].(map[string]any)
	if decided["approval_status"] != promotiondomain.ApprovalApproved {
		t.Fatalf("expected approved, got %v", decided["approval_status"])
	}
	if decided["status"] != promotiondomain.StatusActive {
		t.Fatalf("expected active, got %v", decided["status"])
	}

	// A second decision on the same promotion conflicts.
	resp = f.do(t, http.MethodPost, "/api/admin/promotions/"+promotionID+"/decision", `{"approve":false}`, adminCookie)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body %s", resp.Code, resp.Body.String())
	}

	// The approved promotion is now publicly visible.
	resp = f.do(t, http.MethodGet, "/api/promotions", "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("public promotions: status %d", resp.Code)
	}
	visible := decodeBody(t, resp)["promotions"].([]any)
	if len(visible) != 1 {
		t.Fatalf("expected 1 visible promotion, got %d", len(visible))
	}
}

func TestCronExpirePromotionsAuth(t *testing.T) {
	f := newServerFixture(t)

	resp := f.do(t, http.MethodPost, "/api/cron/expire-promotions", "", "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without secret, got %d", resp.Code)
	}

	node, _ := snowflake.NewNode(11)
	past := time.Now().Add(-48 * time.Hour)
	ended := time.Now().Add(-1 * time.Hour)
	promotion := promotiondomain.Promotion{
		ID:             node.Generate(),
		SponsorID:      node.Generate(),
		Title:          "Expired deal",
		PromotionType:  promotiondomain.TypeTimeLimited,
		StartDate:      past,
		EndDate:        &ended,
		Status:         promotiondomain.StatusActive,
		ApprovalStatus: promotiondomain.ApprovalApproved,
	}
	if err := f.db.Create(&promotion).Error; err != nil {
		t.Fatalf("seed promotion: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/cron/expire-promotions", bytes.NewBufferString(""))
	req.Header.Set("Authorization", "Bearer cron-test-secret")
	resp = httptest.NewRecorder()
	f.engine.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("cron: status %d body %s", resp.Code, resp.Body.String())
	}
	if count := decodeBody(t, resp)["expired_count"].(float64); count != 1 {
		t.Fatalf("expected 1 expired, got %v", count)
	}

	var reloaded promotiondomain.Promotion
	if err := f.db.First(&reloaded, "id = ?", promotion.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != promotiondomain.StatusExpired {
		t.Fatalf("expected expired status, got %s", reloaded.Status)
	}
}

func TestInvitationAcceptFlow(t *testing.T) {
	f := newServerFixture(t)
	adminCookie := f.loginAs(t, "admin@example.com", profiledomain.RoleSuperAdmin)

	resp := f.do(t, http.MethodPost, "/api/admin/sponsors", `{"name":"Ride Cafe","status":"active"}`, adminCookie)
	sponsorID := decodeBody(t, resp)["sponsor"].(map[string]any)["id"].(string)

	body := fmt.Sprintf(`{"email":"newbie@example.com","role":"sponsor_admin","sponsor_id":%q,"sponsor_name":"Ride Cafe"}`, sponsorID)
	resp = f.do(t, http.MethodPost, "/api/admin/invitations", body, adminCookie)
	if resp.Code != http.StatusCreated {
		t.Fatalf("issue: status %d body %s", resp.Code, resp.Body.String())
	}
	invitationURL := decodeBody(t, resp)["invitation_url"].(string)
	parsed, err := url.Parse(invitationURL)
	if err != nil {
		t.Fatalf("parse invitation url: %v", err)
	}
	token := parsed.Query().Get("token")
	if token == "" {
		t.Fatalf("no token in invitation url %q", invitationURL)
	}

	resp = f.do(t, http.MethodGet, "/api/invitations/validate?token="+url.QueryEscape(token), "", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("validate: status %d body %s", resp.Code, resp.Body.String())
	}

	inviteeCookie := f.loginAs(t, "newbie@example.com", profiledomain.RoleSponsorAdmin)
	resp = f.do(t, http.MethodPost, "/api/invitations/accept", fmt.Sprintf(`{"token":%q}`, token), inviteeCookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("accept: status %d body %s", resp.Code, resp.Body.String())
	}

	// The invitee now resolves their sponsor.
	resp = f.do(t, http.MethodGet, "/api/sponsor-admin/sponsor", "", inviteeCookie)
	if resp.Code != http.StatusOK {
		t.Fatalf("own sponsor: status %d body %s", resp.Code, resp.Body.String())
	}
	sponsor := decodeBody(t, resp)["sponsor"].(map[string]any)
	if sponsor["id"] != sponsorID {
		t.Fatalf("expected sponsor %s, got %v", sponsorID, sponsor["id"])
	}

	// Accepting the same invitation again conflicts.
	resp = f.do(t, http.MethodPost, "/api/invitations/accept", fmt.Sprintf(`{"token":%q}`, token), inviteeCookie)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 on reuse, got %d body %s", resp.Code, resp.Body.String())
	}
}

func TestPublicRecordEvent(t *testing.T) {
	f := newServerFixture(t)

	resp := f.do(t, http.MethodPost, "/api/analytics/events", `{"event_type":"sponsor_view"}`, "")
	if resp.Code != http.StatusAccepted {
		t.Fatalf("record: status %d body %s", resp.Code, resp.Body.String())
	}

	var count int64
	if err := f.db.Model(&analyticsdomain.Event{}).Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 event, got %d", count)
	}
}
