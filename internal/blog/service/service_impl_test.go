package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/sponsorhub/sponsorhub/internal/blog/domain"
	"github.com/sponsorhub/sponsorhub/internal/blog/repository"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	svc   domain.Service
	clk   *clock.FakeClock
	genID *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dbConn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := dbConn.AutoMigrate(&domain.Post{}, &domain.PostSponsor{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("failed to create snowflake node: %v", err)
	}

	clk := clock.NewFakeClock(time.Date(2026, 5, 10, 8, 0, 0, 0, time.UTC))
	repo := repository.NewRepository(dbConn)

	return &fixture{
		svc:   NewService(repo, nil, clk, node, zap.NewNop()),
		clk:   clk,
		genID: node,
	}
}

func TestCreateSlugsTitle(t *testing.T) {
	f := newFixture(t)

	post, err := f.svc.Create(context.Background(), f.genID.Generate(), domain.CreateRequest{
		Title:   "Meet Our Newest Sponsor!",
		Content: "body",
	})
	require.NoError(t, err)

	assert.Equal(t, "meet-our-newest-sponsor", post.Slug)
	assert.Equal(t, domain.StatusDraft, post.Status)
	assert.Nil(t, post.PublishedAt)
}

func TestCreateDuplicateSlug(t *testing.T) {
	f := newFixture(t)
	author := f.genID.Generate()

	_, err := f.svc.Create(context.Background(), author, domain.CreateRequest{Title: "Race Day"})
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), author, domain.CreateRequest{Title: "Race Day"})
	assert.ErrorIs(t, err, domain.ErrSlugTaken)
}

func TestPublishStampsTimestampOnce(t *testing.T) {
	f := newFixture(t)

	post, err := f.svc.Create(context.Background(), f.genID.Generate(), domain.CreateRequest{Title: "Draft first"})
	require.NoError(t, err)

	published, err := f.svc.Publish(context.Background(), post.ID)
	require.NoError(t, err)
	require.NotNil(t, published.PublishedAt)
	firstPublish := *published.PublishedAt

	archived, err := f.svc.Archive(context.Background(), post.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusArchived, archived.Status)

	f.clk.Advance(time.Hour)
	republished, err := f.svc.Publish(context.Background(), post.ID)
	require.NoError(t, err)
	require.NotNil(t, republished.PublishedAt)
	assert.Equal(t, firstPublish, *republished.PublishedAt)
}

func TestSponsorTagsReplaced(t *testing.T) {
	f := newFixture(t)
	sponsorA := f.genID.Generate().String()
	sponsorB := f.genID.Generate().String()

	post, err := f.svc.Create(context.Background(), f.genID.Generate(), domain.CreateRequest{
		Title:      "Sponsor roundup",
		SponsorIDs: []string{sponsorA, sponsorB},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{sponsorA, sponsorB}, post.SponsorIDs)

	newTags := []string{sponsorB}
	updated, err := f.svc.Update(context.Background(), post.ID, domain.UpdateRequest{SponsorIDs: &newTags})
	require.NoError(t, err)
	assert.Equal(t, []string{sponsorB}, updated.SponsorIDs)
}

func TestListPublishedExcludesDrafts(t *testing.T) {
	f := newFixture(t)
	author := f.genID.Generate()

	_, err := f.svc.Create(context.Background(), author, domain.CreateRequest{Title: "Draft post"})
	require.NoError(t, err)

	live, err := f.svc.Create(context.Background(), author, domain.CreateRequest{
		Title:  "Live post",
		Status: domain.StatusPublished,
	})
	require.NoError(t, err)

	posts, err := f.svc.ListPublished(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, live.ID, posts[0].ID)
}

func TestGetBySlug(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), f.genID.Generate(), domain.CreateRequest{Title: "Findable"})
	require.NoError(t, err)

	found, err := f.svc.GetBySlug(context.Background(), created.Slug)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = f.svc.GetBySlug(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
