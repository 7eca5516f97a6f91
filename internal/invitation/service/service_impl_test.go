package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/config"
	"github.com/sponsorhub/sponsorhub/internal/invitation/domain"
	"github.com/sponsorhub/sponsorhub/internal/invitation/repository"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	profilerepository "github.com/sponsorhub/sponsorhub/internal/profile/repository"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	sponsorrepository "github.com/sponsorhub/sponsorhub/internal/sponsor/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeMailer struct {
	sent []string
	err  error
}

func (f *fakeMailer) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to...)
	return nil
}

func (f *fakeMailer) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to...)
	return nil
}

type fixture struct {
	svc      domain.Service
	repo     domain.Repository
	profiles profiledomain.Repository
	sponsors sponsordomain.Repository
	mailer   *fakeMailer
	clk      *clock.FakeClock
	genID    *snowflake.Node
	db       *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(
		&domain.Invitation{},
		&profiledomain.Profile{},
		&sponsordomain.Sponsor{},
		&sponsordomain.SponsorAdmin{},
	); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	repo := repository.NewRepository(dbConn)
	profiles := profilerepository.NewRepository(dbConn)
	sponsors := sponsorrepository.NewRepository(dbConn)
	mailer := &fakeMailer{}
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	svc := NewService(repo, profiles, sponsors, mailer, clk, node, nil, config.Config{
		BaseURL: "https://portal.example.com",
	}, zap.NewNop())

	return &fixture{
		svc:      svc,
		repo:     repo,
		profiles: profiles,
		sponsors: sponsors,
		mailer:   mailer,
		clk:      clk,
		genID:    node,
		db:       dbConn,
	}
}

func (f *fixture) createSponsor(t *testing.T) snowflake.ID {
	t.Helper()
	id := f.genID.Generate()
	err := f.sponsors.Create(context.Background(), sponsordomain.Sponsor{
		ID:        id,
		Name:      "Trail Coffee",
		Slug:      "trail-coffee-" + id.String(),
		Status:    sponsordomain.StatusActive,
		CreatedAt: f.clk.Now(),
		UpdatedAt: f.clk.Now(),
	})
	require.NoError(t, err)
	return id
}

func tokenFromURL(t *testing.T, invitationURL string) string {
	t.Helper()
	idx := strings.Index(invitationURL, "token=")
	if idx < 0 {
		t.Fatalf("no token in url %q", invitationURL)
	}
	return invitationURL[idx+len("token="):]
}

func TestIssueSendsEmailWithLink(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.createSponsor(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email:       "Owner@Example.com",
		Role:        profiledomain.RoleSponsorAdmin,
		SponsorID:   sponsorID.String(),
		SponsorName: "Trail Coffee",
	})
	require.NoError(t, err)

	assert.True(t, result.EmailSent)
	assert.Empty(t, result.Warning)
	assert.Equal(t, []string{"owner@example.com"}, f.mailer.sent)
	assert.Contains(t, result.InvitationURL, "https://portal.example.com/auth/accept-invitation?token=")

	token := tokenFromURL(t, result.InvitationURL)
	assert.Len(t, token, 64)

	resp, err := f.svc.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", resp.Email)
	assert.Equal(t, profiledomain.RoleSponsorAdmin, resp.Role)
	assert.Equal(t, sponsorID.String(), resp.SponsorID)
	assert.Equal(t, f.clk.Now().Add(domain.TokenTTL), resp.ExpiresAt.UTC())
}

func TestIssueEmailFailureStillCreatesInvitation(t *testing.T) {
	f := newFixture(t)
	f.mailer.err = errors.New("smtp unreachable")

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "admin@example.com",
		Role:  profiledomain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	assert.False(t, result.EmailSent)
	assert.Equal(t, "smtp unreachable", result.Warning)

	token := tokenFromURL(t, result.InvitationURL)
	resp, err := f.svc.Validate(context.Background(), token)
	require.NoError(t, err)
	assert.False(t, resp.EmailSent)
}

func TestIssueSponsorAdminRequiresSponsor(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "owner@example.com",
		Role:  profiledomain.RoleSponsorAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrSponsorRequired)
}

func TestIssueRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.createSponsor(t)

	_, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "not-an-email", Role: profiledomain.RoleSuperAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidEmail)

	_, err = f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "owner@example.com", Role: "editor", SponsorID: sponsorID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	_, err = f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "owner@example.com", Role: profiledomain.RoleSponsorAdmin,
		SponsorID: f.genID.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrSponsorRequired)
}

func TestValidateUnknownToken(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Validate(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestValidateExpiredToken(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "admin@example.com",
		Role:  profiledomain.RoleSuperAdmin,
	})
	require.NoError(t, err)
	token := tokenFromURL(t, result.InvitationURL)

	f.clk.Advance(domain.TokenTTL + time.Second)

	_, err = f.svc.Validate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrExpired)
}

func TestAcceptCreatesProfileAndLink(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.createSponsor(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email:     "owner@example.com",
		Role:      profiledomain.RoleSponsorAdmin,
		SponsorID: sponsorID.String(),
	})
	require.NoError(t, err)
	token := tokenFromURL(t, result.InvitationURL)

	userID := f.genID.Generate()
	err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		Token:  token,
		UserID: userID,
		Email:  "owner@example.com",
		Role:   profiledomain.RoleSponsorAdmin,
	})
	require.NoError(t, err)

	profile, err := f.profiles.FindByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, profiledomain.RoleSponsorAdmin, profile.Role)
	assert.Equal(t, "owner", profile.DisplayName)

	link, err := f.sponsors.FindLinkByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, sponsorID, link.SponsorID)

	// The token is single-use.
	err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		Token:  token,
		UserID: userID,
		Email:  "owner@example.com",
		Role:   profiledomain.RoleSponsorAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyAccepted)

	_, err = f.svc.Validate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAlreadyAccepted)
}

func TestAcceptRetryKeepsSingleLink(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.createSponsor(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email:     "owner@example.com",
		Role:      profiledomain.RoleSponsorAdmin,
		SponsorID: sponsorID.String(),
	})
	require.NoError(t, err)
	token := tokenFromURL(t, result.InvitationURL)

	userID := f.genID.Generate()
	accept := domain.AcceptRequest{
		Token:  token,
		UserID: userID,
		Email:  "owner@example.com",
		Role:   profiledomain.RoleSponsorAdmin,
	}
	require.NoError(t, f.svc.Accept(context.Background(), accept))

	// Rewind the invitation to what a concurrent accept would have seen
	// before the accepted mark landed: both calls then run the full link
	// path against an already-present link.
	err = f.db.Model(&domain.Invitation{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{
			"status":      domain.StatusPending,
			"accepted_at": nil,
		}).Error
	require.NoError(t, err)

	require.NoError(t, f.svc.Accept(context.Background(), accept))

	var count int64
	err = f.db.Model(&sponsordomain.SponsorAdmin{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	require.NoError(t, err)
	require.EqualValues(t, 1, count)

	link, err := f.sponsors.FindLinkByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, sponsorID, link.SponsorID)
}

func TestAcceptInvitationSponsorWinsOverRequest(t *testing.T) {
	f := newFixture(t)
	invitedSponsor := f.createSponsor(t)
	otherSponsor := f.createSponsor(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email:     "owner@example.com",
		Role:      profiledomain.RoleSponsorAdmin,
		SponsorID: invitedSponsor.String(),
	})
	require.NoError(t, err)

	userID := f.genID.Generate()
	err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		Token:     tokenFromURL(t, result.InvitationURL),
		UserID:    userID,
		Email:     "owner@example.com",
		Role:      profiledomain.RoleSponsorAdmin,
		SponsorID: otherSponsor.String(),
	})
	require.NoError(t, err)

	link, err := f.sponsors.FindLinkByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, invitedSponsor, link.SponsorID)
}

func TestAcceptRejectsDifferentEmail(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.createSponsor(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email:     "owner@example.com",
		Role:      profiledomain.RoleSponsorAdmin,
		SponsorID: sponsorID.String(),
	})
	require.NoError(t, err)

	userID := f.genID.Generate()
	err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		Token:  tokenFromURL(t, result.InvitationURL),
		UserID: userID,
		Email:  "intruder@example.com",
		Role:   profiledomain.RoleSponsorAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrUserMismatch)

	_, err = f.sponsors.FindLinkByUser(context.Background(), userID)
	assert.Error(t, err)
}

func TestAcceptSponsorAdminWithoutSponsorFails(t *testing.T) {
	f := newFixture(t)

	// Seed an invitation with no sponsor binding directly; Issue refuses to
	// create one for the sponsor_admin role.
	token := strings.Repeat("ab", 32)
	err := f.repo.Create(context.Background(), domain.Invitation{
		ID:        f.genID.Generate(),
		Email:     "owner@example.com",
		Role:      profiledomain.RoleSponsorAdmin,
		Token:     token,
		Status:    domain.StatusPending,
		ExpiresAt: f.clk.Now().Add(domain.TokenTTL),
		CreatedAt: f.clk.Now(),
	})
	require.NoError(t, err)

	// The client offering a sponsor id does not rescue a malformed invitation.
	err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		Token:     token,
		UserID:    f.genID.Generate(),
		Email:     "owner@example.com",
		Role:      profiledomain.RoleSponsorAdmin,
		SponsorID: f.createSponsor(t).String(),
	})
	assert.ErrorIs(t, err, domain.ErrSponsorRequired)
}

func TestAcceptExpiredToken(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "admin@example.com",
		Role:  profiledomain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	f.clk.Advance(domain.TokenTTL + time.Minute)

	err = f.svc.Accept(context.Background(), domain.AcceptRequest{
		Token:  tokenFromURL(t, result.InvitationURL),
		UserID: f.genID.Generate(),
		Email:  "admin@example.com",
		Role:   profiledomain.RoleSuperAdmin,
	})
	assert.ErrorIs(t, err, domain.ErrExpired)
}

func TestRevokeBlocksValidation(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "admin@example.com",
		Role:  profiledomain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.Revoke(context.Background(), result.InvitationID))

	_, err = f.svc.Validate(context.Background(), tokenFromURL(t, result.InvitationURL))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpireSweep(t *testing.T) {
	f := newFixture(t)

	stale, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "stale@example.com",
		Role:  profiledomain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	f.clk.Advance(3 * 24 * time.Hour)

	fresh, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email: "fresh@example.com",
		Role:  profiledomain.RoleSuperAdmin,
	})
	require.NoError(t, err)

	f.clk.Advance(5 * 24 * time.Hour)

	count, err := f.svc.ExpireSweep(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	staleID, err := snowflake.ParseString(stale.InvitationID)
	require.NoError(t, err)
	row, err := f.repo.FindByID(context.Background(), staleID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, row.Status)

	freshID, err := snowflake.ParseString(fresh.InvitationID)
	require.NoError(t, err)
	row, err = f.repo.FindByID(context.Background(), freshID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, row.Status)
}

func TestInspectAssemblesFlowState(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.createSponsor(t)

	result, err := f.svc.Issue(context.Background(), domain.IssueRequest{
		Email:     "owner@example.com",
		Role:      profiledomain.RoleSponsorAdmin,
		SponsorID: sponsorID.String(),
	})
	require.NoError(t, err)

	state, err := f.svc.Inspect(context.Background(), "owner@example.com")
	require.NoError(t, err)
	assert.Len(t, state.Invitations, 1)
	assert.False(t, state.HasProfile)
	assert.False(t, state.HasLink)

	userID := f.genID.Generate()
	require.NoError(t, f.svc.Accept(context.Background(), domain.AcceptRequest{
		Token:  tokenFromURL(t, result.InvitationURL),
		UserID: userID,
		Email:  "owner@example.com",
		Role:   profiledomain.RoleSponsorAdmin,
	}))

	state, err = f.svc.Inspect(context.Background(), "owner@example.com")
	require.NoError(t, err)
	assert.True(t, state.HasProfile)
	assert.Equal(t, profiledomain.RoleSponsorAdmin, state.ProfileRole)
	assert.True(t, state.HasLink)
	assert.Equal(t, sponsorID.String(), state.SponsorID)
}
