package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/analytics/domain"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"gorm.io/datatypes"
)

type service struct {
	repo  domain.Repository
	clk   clock.Clock
	genID *snowflake.Node
}

func NewService(repo domain.Repository, clk clock.Clock, genID *snowflake.Node) domain.Service {
	return &service{repo: repo, clk: clk, genID: genID}
}

func (s *service) Record(ctx context.Context, req domain.RecordRequest) error {
	eventType := strings.TrimSpace(req.EventType)
	if eventType == "" {
		return domain.ErrInvalidEventType
	}

	event := domain.Event{
		ID:        s.genID.Generate(),
		EventType: eventType,
		CreatedAt: s.clk.Now(),
	}
	if id, err := snowflake.ParseString(strings.TrimSpace(req.SponsorID)); err == nil {
		event.SponsorID = &id
	}
	if id, err := snowflake.ParseString(strings.TrimSpace(req.PromotionID)); err == nil {
		event.PromotionID = &id
	}
	if len(req.Metadata) > 0 {
		event.Metadata = datatypes.JSONMap(req.Metadata)
	}

	return s.repo.Create(ctx, event)
}

func (s *service) List(ctx context.Context, filter domain.ListFilter) ([]domain.EventResponse, error) {
	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	out := make([]domain.EventResponse, 0, len(events))
	for i := range events {
		out = append(out, toResponse(&events[i]))
	}
	return out, nil
}

func (s *service) SponsorSummary(ctx context.Context, sponsorID string, since time.Time) ([]domain.TypeCount, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(sponsorID))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	return s.repo.CountByType(ctx, id, since)
}

func toResponse(event *domain.Event) domain.EventResponse {
	resp := domain.EventResponse{
		ID:        event.ID.String(),
		EventType: event.EventType,
		Metadata:  map[string]any(event.Metadata),
		CreatedAt: event.CreatedAt,
	}
	if event.SponsorID != nil {
		resp.SponsorID = event.SponsorID.String()
	}
	if event.PromotionID != nil {
		resp.PromotionID = event.PromotionID.String()
	}
	return resp
}
