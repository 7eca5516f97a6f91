package domain

import (
	"context"
	"errors"
	"time"
)

type Service interface {
	// Record persists one tracking event. Invalid sponsor/promotion ids are
	// dropped silently so a malformed beacon never errors the public site.
	Record(ctx context.Context, req RecordRequest) error
	List(ctx context.Context, filter ListFilter) ([]EventResponse, error)
	// SponsorSummary aggregates event counts for one sponsor's dashboard.
	SponsorSummary(ctx context.Context, sponsorID string, since time.Time) ([]TypeCount, error)
}

type RecordRequest struct {
	EventType   string         `json:"event_type" binding:"required"`
	SponsorID   string         `json:"sponsor_id"`
	PromotionID string         `json:"promotion_id"`
	Metadata    map[string]any `json:"metadata"`
}

type EventResponse struct {
	ID          string         `json:"id"`
	EventType   string         `json:"event_type"`
	SponsorID   string         `json:"sponsor_id,omitempty"`
	PromotionID string         `json:"promotion_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

var (
	ErrInvalidEventType = errors.New("invalid_event_type")
	ErrInvalidID        = errors.New("invalid_analytics_id")
)
