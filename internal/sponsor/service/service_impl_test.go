package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	"github.com/sponsorhub/sponsorhub/internal/sponsor/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakePublisher struct {
	mu        sync.Mutex
	announced []string
	notified  chan struct{}
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{notified: make(chan struct{}, 8)}
}

func (f *fakePublisher) SponsorCreated(ctx context.Context, sponsor *domain.Sponsor) error {
	f.mu.Lock()
	f.announced = append(f.announced, sponsor.Slug)
	f.mu.Unlock()
	f.notified <- struct{}{}
	return nil
}

func (f *fakePublisher) announcedSlugs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.announced...)
}

type fixture struct {
	svc       domain.Service
	publisher *fakePublisher
	db        *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Sponsor{}, &domain.SponsorAdmin{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	publisher := newFakePublisher()
	svc := NewService(dbConn, repository.NewRepository(dbConn), node, publisher, zap.NewNop())
	return &fixture{svc: svc, publisher: publisher, db: dbConn}
}

func TestCreateAnnouncesSponsor(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Create(context.Background(), domain.CreateSponsorRequest{
		Name:   "Trail Coffee",
		Status: domain.StatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, "trail-coffee", resp.Slug)

	select {
	case <-f.publisher.notified:
	case <-time.After(time.Second):
		t.Fatal("expected sponsor announcement")
	}
	assert.Equal(t, []string{"trail-coffee"}, f.publisher.announcedSlugs())
}

func TestCreateWithoutPublisherStillSucceeds(t *testing.T) {
	f := newFixture(t)

	dbConn := f.db
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	svc := NewService(dbConn, repository.NewRepository(dbConn), node, nil, zap.NewNop())

	_, err = svc.Create(context.Background(), domain.CreateSponsorRequest{Name: "Solo Shop"})
	require.NoError(t, err)
}

func TestCreateRejectsBlankName(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateSponsorRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidName)

	select {
	case <-f.publisher.notified:
		t.Fatal("rejected create must not announce")
	case <-time.After(50 * time.Millisecond):
	}
}
