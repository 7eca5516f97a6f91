package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	"github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	"github.com/sponsorhub/sponsorhub/internal/promotion/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakePublisher struct {
	mu        sync.Mutex
	posted    []snowflake.ID
	pending   []snowflake.ID
	notified  chan struct{}
	submitted chan struct{}
	err       error
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		notified:  make(chan struct{}, 8),
		submitted: make(chan struct{}, 8),
	}
}

func (f *fakePublisher) PromotionApproved(ctx context.Context, promotion *domain.Promotion) error {
	f.mu.Lock()
	f.posted = append(f.posted, promotion.ID)
	f.mu.Unlock()
	f.notified <- struct{}{}
	return f.err
}

func (f *fakePublisher) PromotionSubmitted(ctx context.Context, promotion *domain.Promotion) error {
	f.mu.Lock()
	f.pending = append(f.pending, promotion.ID)
	f.mu.Unlock()
	f.submitted <- struct{}{}
	return f.err
}

func (f *fakePublisher) postedIDs() []snowflake.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]snowflake.ID(nil), f.posted...)
}

func (f *fakePublisher) pendingIDs() []snowflake.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]snowflake.ID(nil), f.pending...)
}

type fixture struct {
	svc       domain.Service
	repo      domain.Repository
	publisher *fakePublisher
	clk       *clock.FakeClock
	genID     *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Promotion{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	repo := repository.NewRepository(dbConn)
	publisher := newFakePublisher()
	clk := clock.NewFakeClock(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC))

	return &fixture{
		svc:       NewService(repo, publisher, clk, node, nil, zap.NewNop()),
		repo:      repo,
		publisher: publisher,
		clk:       clk,
		genID:     node,
	}
}

func superAdmin(f *fixture) domain.Actor {
	return domain.Actor{UserID: f.genID.Generate(), Role: profiledomain.RoleSuperAdmin}
}

func sponsorAdmin(f *fixture, sponsorID snowflake.ID) domain.Actor {
	return domain.Actor{UserID: f.genID.Generate(), Role: profiledomain.RoleSponsorAdmin, SponsorID: sponsorID}
}

func TestSponsorAdminCreateEntersApprovalQueue(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.genID.Generate()

	resp, err := f.svc.Create(context.Background(), sponsorAdmin(f, sponsorID), domain.CreateRequest{
		SponsorID:     f.genID.Generate().String(), // ignored, own sponsor wins
		Title:         "Free trail map",
		PromotionType: domain.TypeEvergreen,
		IsFeatured:    true, // must not stick
		Status:        domain.StatusActive,
	})
	require.NoError(t, err)

	assert.Equal(t, sponsorID.String(), resp.SponsorID)
	assert.Equal(t, domain.StatusPendingApproval, resp.Status)
	assert.Equal(t, domain.ApprovalPending, resp.ApprovalStatus)
	assert.False(t, resp.IsFeatured)

	select {
	case <-f.publisher.submitted:
	case <-time.After(time.Second):
		t.Fatal("expected pending-review announcement")
	}
	require.Len(t, f.publisher.pendingIDs(), 1)
}

func TestSuperAdminCreateSkipsPendingAnnouncement(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), superAdmin(f), domain.CreateRequest{
		SponsorID:     f.genID.Generate().String(),
		Title:         "Direct draft",
		PromotionType: domain.TypeEvergreen,
	})
	require.NoError(t, err)

	select {
	case <-f.publisher.submitted:
		t.Fatal("super admin create must not announce a pending review")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSponsorAdminWithoutLinkCannotCreateOrList(t *testing.T) {
	f := newFixture(t)
	actor := sponsorAdmin(f, 0)

	_, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		Title:         "Orphan promo",
		PromotionType: domain.TypeEvergreen,
	})
	assert.ErrorIs(t, err, domain.ErrNoSponsor)

	_, err = f.svc.ListForSponsor(context.Background(), actor)
	assert.ErrorIs(t, err, domain.ErrNoSponsor)
}

func TestSuperAdminCreateDirectToActive(t *testing.T) {
	f := newFixture(t)
	actor := superAdmin(f)

	resp, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID:     f.genID.Generate().String(),
		Title:         "Launch special",
		PromotionType: domain.TypeCouponCode,
		CouponCode:    "LAUNCH20",
		Status:        domain.StatusActive,
		IsFeatured:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusActive, resp.Status)
	assert.Equal(t, domain.ApprovalApproved, resp.ApprovalStatus)
	assert.Equal(t, actor.UserID.String(), resp.ApprovedBy)
	assert.True(t, resp.IsFeatured)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	actor := superAdmin(f)
	sponsorID := f.genID.Generate().String()

	_, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "  ", PromotionType: domain.TypeEvergreen,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "x", PromotionType: "flash_sale",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidType)

	_, err = f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "x", PromotionType: domain.TypeTimeLimited,
	})
	assert.ErrorIs(t, err, domain.ErrEndDateMissing)

	past := f.clk.Now().Add(-time.Hour)
	_, err = f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "x", PromotionType: domain.TypeTimeLimited,
		StartDate: f.clk.Now(), EndDate: &past,
	})
	assert.ErrorIs(t, err, domain.ErrEndBeforeStart)
}

func TestSponsorAdminCannotSmuggleFeatureFlag(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.genID.Generate()
	actor := sponsorAdmin(f, sponsorID)

	created, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		Title:         "Member discount",
		PromotionType: domain.TypeEvergreen,
	})
	require.NoError(t, err)

	featured := true
	activated := domain.StatusActive
	updated, err := f.svc.Update(context.Background(), actor, created.ID, domain.UpdateRequest{
		IsFeatured: &featured,
		Status:     &activated,
	})
	require.NoError(t, err)

	assert.False(t, updated.IsFeatured)
	assert.Equal(t, domain.StatusPendingApproval, updated.Status)
}

func TestSuperAdminUpdateSetsFeatureFlag(t *testing.T) {
	f := newFixture(t)
	actor := superAdmin(f)

	created, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID:     f.genID.Generate().String(),
		Title:         "Season opener",
		PromotionType: domain.TypeEvergreen,
	})
	require.NoError(t, err)

	featured := true
	updated, err := f.svc.Update(context.Background(), actor, created.ID, domain.UpdateRequest{
		IsFeatured: &featured,
	})
	require.NoError(t, err)
	assert.True(t, updated.IsFeatured)
}

func TestSponsorAdminCannotTouchOtherSponsorsPromotion(t *testing.T) {
	f := newFixture(t)

	owner := sponsorAdmin(f, f.genID.Generate())
	created, err := f.svc.Create(context.Background(), owner, domain.CreateRequest{
		Title:         "Owner only",
		PromotionType: domain.TypeEvergreen,
	})
	require.NoError(t, err)

	intruder := sponsorAdmin(f, f.genID.Generate())
	title := "hijacked"
	_, err = f.svc.Update(context.Background(), intruder, created.ID, domain.UpdateRequest{Title: &title})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = f.svc.Delete(context.Background(), intruder, created.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestVisibilityPredicate(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	earlier := now.Add(-time.Hour)

	p := domain.Promotion{Status: domain.StatusActive, StartDate: past}
	assert.True(t, p.Visible(now))

	p.EndDate = &earlier
	assert.False(t, p.Visible(now))

	p.EndDate = nil
	p.Status = domain.StatusDraft
	assert.False(t, p.Visible(now))

	p.Status = domain.StatusActive
	p.StartDate = now.Add(time.Hour)
	assert.False(t, p.Visible(now))
}

func TestListPublicMatchesPredicate(t *testing.T) {
	f := newFixture(t)
	actor := superAdmin(f)
	sponsorID := f.genID.Generate().String()
	now := f.clk.Now()

	visible, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "visible", PromotionType: domain.TypeEvergreen,
		StartDate: now.Add(-time.Hour), Status: domain.StatusActive,
	})
	require.NoError(t, err)

	notStarted := now.Add(48 * time.Hour)
	_, err = f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "not started", PromotionType: domain.TypeEvergreen,
		StartDate: notStarted, Status: domain.StatusActive,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "draft", PromotionType: domain.TypeEvergreen,
		StartDate: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	public, err := f.svc.ListPublic(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, visible.ID, public[0].ID)
}

func TestApprovePublishesToSiteAndSlack(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.genID.Generate()

	created, err := f.svc.Create(context.Background(), sponsorAdmin(f, sponsorID), domain.CreateRequest{
		Title:         "Pending promo",
		PromotionType: domain.TypeEvergreen,
	})
	require.NoError(t, err)

	approver := f.genID.Generate()
	decided, err := f.svc.Decide(context.Background(), approver, created.ID, domain.DecisionRequest{
		Approve:        true,
		Notes:          "looks good",
		PublishToSite:  true,
		PublishToSlack: true,
		SlackChannel:   "#deals",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ApprovalApproved, decided.ApprovalStatus)
	assert.Equal(t, domain.StatusActive, decided.Status)
	assert.Equal(t, approver.String(), decided.ApprovedBy)
	assert.Equal(t, "looks good", decided.ApprovalNotes)
	assert.Equal(t, "#deals", decided.SlackChannel)

	select {
	case <-f.publisher.notified:
	case <-time.After(time.Second):
		t.Fatal("expected slack publish")
	}
	require.Len(t, f.publisher.postedIDs(), 1)
}

func TestApproveWithoutSitePublishLeavesStatus(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), sponsorAdmin(f, f.genID.Generate()), domain.CreateRequest{
		Title:         "Hold for launch",
		PromotionType: domain.TypeEvergreen,
	})
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), f.genID.Generate(), created.ID, domain.DecisionRequest{
		Approve: true,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ApprovalApproved, decided.ApprovalStatus)
	assert.Equal(t, domain.StatusPendingApproval, decided.Status)
	assert.Empty(t, f.publisher.postedIDs())
}

func TestRejectLeavesStatusUntouched(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(context.Background(), sponsorAdmin(f, f.genID.Generate()), domain.CreateRequest{
		Title:         "Needs work",
		PromotionType: domain.TypeEvergreen,
	})
	require.NoError(t, err)

	decided, err := f.svc.Decide(context.Background(), f.genID.Generate(), created.ID, domain.DecisionRequest{
		Approve: false,
		Notes:   "image missing",
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ApprovalRejected, decided.ApprovalStatus)
	assert.Equal(t, domain.StatusPendingApproval, decided.Status)
	assert.Equal(t, "image missing", decided.ApprovalNotes)

	// A decision is final.
	_, err = f.svc.Decide(context.Background(), f.genID.Generate(), created.ID, domain.DecisionRequest{Approve: true})
	assert.ErrorIs(t, err, domain.ErrAlreadyDecided)
}

func TestToggleStatusRequiresApproval(t *testing.T) {
	f := newFixture(t)
	sponsorID := f.genID.Generate()
	actor := sponsorAdmin(f, sponsorID)

	created, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		Title:         "Toggle me",
		PromotionType: domain.TypeEvergreen,
	})
	require.NoError(t, err)

	_, err = f.svc.ToggleStatus(context.Background(), actor, created.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = f.svc.Decide(context.Background(), f.genID.Generate(), created.ID, domain.DecisionRequest{
		Approve: true,
	})
	require.NoError(t, err)

	toggled, err := f.svc.ToggleStatus(context.Background(), actor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, toggled.Status)

	toggled, err = f.svc.ToggleStatus(context.Background(), actor, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, toggled.Status)
}

func TestExpireDue(t *testing.T) {
	f := newFixture(t)
	actor := superAdmin(f)
	sponsorID := f.genID.Generate().String()
	now := f.clk.Now()

	ending := now.Add(24 * time.Hour)
	_, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "ends soon", PromotionType: domain.TypeTimeLimited,
		StartDate: now.Add(-time.Hour), EndDate: &ending, Status: domain.StatusActive,
	})
	require.NoError(t, err)

	open, err := f.svc.Create(context.Background(), actor, domain.CreateRequest{
		SponsorID: sponsorID, Title: "open ended", PromotionType: domain.TypeEvergreen,
		StartDate: now.Add(-time.Hour), Status: domain.StatusActive,
	})
	require.NoError(t, err)

	f.clk.Advance(48 * time.Hour)

	affected, err := f.svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	// Idempotent: a second sweep finds nothing.
	affected, err = f.svc.ExpireDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	remaining, err := f.svc.ListPublic(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, open.ID, remaining[0].ID)
}
