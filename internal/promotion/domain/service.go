package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Actor identifies who is performing an operation. SponsorID is the sponsor
// the actor administers and is zero for super admins and for sponsor admins
// without a link.
type Actor struct {
	UserID    snowflake.ID
	Role      string
	SponsorID snowflake.ID
}

type Service interface {
	Create(ctx context.Context, actor Actor, req CreateRequest) (*PromotionResponse, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateRequest) (*PromotionResponse, error)
	ToggleStatus(ctx context.Context, actor Actor, id string) (*PromotionResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	GetByID(ctx context.Context, id string) (*PromotionResponse, error)
	List(ctx context.Context, filter ListFilter) ([]PromotionResponse, error)
	// ListForSponsor scopes the listing to the actor's own sponsor.
	ListForSponsor(ctx context.Context, actor Actor) ([]PromotionResponse, error)
	// ListPublic returns promotions visible on the public site right now.
	ListPublic(ctx context.Context, limit int) ([]PromotionResponse, error)
	Decide(ctx context.Context, approver snowflake.ID, id string, req DecisionRequest) (*PromotionResponse, error)
	// ExpireDue transitions active promotions past their end date to expired.
	ExpireDue(ctx context.Context) (int64, error)
}

// Publisher posts promotion lifecycle events to an outbound channel.
// Failures are logged by the caller and never fail the triggering write.
type Publisher interface {
	PromotionApproved(ctx context.Context, promotion *Promotion) error
	// PromotionSubmitted fires when a sponsor admin's promotion enters the
	// approval queue, so reviewers hear about it without polling.
	PromotionSubmitted(ctx context.Context, promotion *Promotion) error
}

type CreateRequest struct {
	SponsorID      string     `json:"sponsor_id"`
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	PromotionType  string     `json:"promotion_type" binding:"required"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	CouponCode     string     `json:"coupon_code"`
	ExternalLink   string     `json:"external_link"`
	Terms          string     `json:"terms"`
	IsFeatured     bool       `json:"is_featured"`
	Status         string     `json:"status"`
	PublishToSite  *bool      `json:"publish_to_site"`
	PublishToSlack bool       `json:"publish_to_slack"`
	SlackChannel   string     `json:"slack_channel"`
}

type UpdateRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	PromotionType  *string    `json:"promotion_type"`
	StartDate      *time.Time `json:"start_date"`
	EndDate        *time.Time `json:"end_date"`
	ClearEndDate   bool       `json:"clear_end_date"`
	CouponCode     *string    `json:"coupon_code"`
	ExternalLink   *string    `json:"external_link"`
	Terms          *string    `json:"terms"`
	IsFeatured     *bool      `json:"is_featured"`
	Status         *string    `json:"status"`
	PublishToSite  *bool      `json:"publish_to_site"`
	PublishToSlack *bool      `json:"publish_to_slack"`
	SlackChannel   *string    `json:"slack_channel"`
}

// DecisionRequest records an approval or rejection.
type DecisionRequest struct {
	Approve        bool   `json:"approve"`
	Notes          string `json:"notes"`
	PublishToSite  bool   `json:"publish_to_site"`
	PublishToSlack bool   `json:"publish_to_slack"`
	SlackChannel   string `json:"slack_channel"`
}

type PromotionResponse struct {
	ID             string     `json:"id"`
	SponsorID      string     `json:"sponsor_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	PromotionType  string     `json:"promotion_type"`
	StartDate      time.Time  `json:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	CouponCode     string     `json:"coupon_code,omitempty"`
	ExternalLink   string     `json:"external_link,omitempty"`
	Terms          string     `json:"terms,omitempty"`
	IsFeatured     bool       `json:"is_featured"`
	Status         string     `json:"status"`
	ApprovalStatus string     `json:"approval_status"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ApprovalNotes  string     `json:"approval_notes,omitempty"`
	PublishToSite  bool       `json:"publish_to_site"`
	PublishToSlack bool       `json:"publish_to_slack"`
	SlackChannel   string     `json:"slack_channel,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

var (
	ErrNotFound       = errors.New("promotion_not_found")
	ErrNoSponsor      = errors.New("no_sponsor_for_user")
	ErrInvalidID      = errors.New("invalid_promotion_id")
	ErrInvalidType    = errors.New("invalid_promotion_type")
	ErrInvalidStatus  = errors.New("invalid_promotion_status")
	ErrInvalidTitle   = errors.New("title_required")
	ErrEndDateMissing = errors.New("end_date_required_for_time_limited")
	ErrEndBeforeStart = errors.New("end_date_before_start_date")
	ErrAlreadyDecided = errors.New("promotion_already_decided")
)
