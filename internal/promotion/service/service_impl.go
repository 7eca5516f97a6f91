package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/observability/metrics"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	"github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	repo      domain.Repository
	publisher domain.Publisher
	clk       clock.Clock
	genID     *snowflake.Node
	metrics   *metrics.Metrics
	log       *zap.Logger
}

func NewService(
	repo domain.Repository,
	publisher domain.Publisher,
	clk clock.Clock,
	genID *snowflake.Node,
	m *metrics.Metrics,
	log *zap.Logger,
) domain.Service {
	return &service{
		repo:      repo,
		publisher: publisher,
		clk:       clk,
		genID:     genID,
		metrics:   m,
		log:       log,
	}
}

func (s *service) Create(ctx context.Context, actor domain.Actor, req domain.CreateRequest) (*domain.PromotionResponse, error) {
	now := s.clk.Now()

	promotion := domain.Promotion{
		ID:             s.genID.Generate(),
		Title:          strings.TrimSpace(req.Title),
		Description:    req.Description,
		PromotionType:  req.PromotionType,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		CouponCode:     req.CouponCode,
		ExternalLink:   req.ExternalLink,
		Terms:          req.Terms,
		PublishToSite:  true,
		PublishToSlack: req.PublishToSlack,
		SlackChannel:   req.SlackChannel,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.PublishToSite != nil {
		promotion.PublishToSite = *req.PublishToSite
	}
	if promotion.StartDate.IsZero() {
		promotion.StartDate = now
	}
	if actor.UserID != 0 {
		createdBy := actor.UserID
		promotion.CreatedBy = &createdBy
	}

	switch actor.Role {
	case profiledomain.RoleSponsorAdmin:
		// Sponsor admins always create against their own sponsor and enter
		// the approval queue; the feature flag stays super-admin-only.
		if actor.SponsorID == 0 {
			return nil, domain.ErrNoSponsor
		}
		promotion.SponsorID = actor.SponsorID
		promotion.Status = domain.StatusPendingApproval
		promotion.ApprovalStatus = domain.ApprovalPending
		promotion.IsFeatured = false
	case profiledomain.RoleSuperAdmin:
		sponsorID, err := snowflake.ParseString(strings.TrimSpace(req.SponsorID))
		if err != nil {
			return nil, domain.ErrNoSponsor
		}
		promotion.SponsorID = sponsorID
		promotion.IsFeatured = req.IsFeatured
		promotion.Status = req.Status
		if promotion.Status == "" {
			promotion.Status = domain.StatusDraft
		}
		if !domain.ValidStatus(promotion.Status) {
			return nil, domain.ErrInvalidStatus
		}
		if promotion.Status == domain.StatusActive {
			// Direct-to-active creation skips the approval queue.
			promotion.ApprovalStatus = domain.ApprovalApproved
			approver := actor.UserID
			promotion.ApprovedBy = &approver
			approvedAt := now
			promotion.ApprovedAt = &approvedAt
		} else {
			promotion.ApprovalStatus = domain.ApprovalPending
		}
	default:
		return nil, domain.ErrNoSponsor
	}

	if err := validatePromotion(&promotion); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, promotion); err != nil {
		return nil, err
	}

	if actor.Role == profiledomain.RoleSponsorAdmin && s.publisher != nil {
		// Announce the queue entry; delivery must never fail the create.
		announce := promotion
		go func() {
			ctx := context.WithoutCancel(ctx)
			if err := s.publisher.PromotionSubmitted(ctx, &announce); err != nil {
				s.log.Warn("failed to announce pending promotion",
					zap.String("promotion_id", announce.ID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	return toResponse(&promotion), nil
}

func (s *service) Update(ctx context.Context, actor domain.Actor, id string, req domain.UpdateRequest) (*domain.PromotionResponse, error) {
	promotion, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, promotion); err != nil {
		return nil, err
	}

	if req.Title != nil {
		promotion.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		promotion.Description = *req.Description
	}
	if req.PromotionType != nil {
		promotion.PromotionType = *req.PromotionType
	}
	if req.StartDate != nil {
		promotion.StartDate = *req.StartDate
	}
	if req.ClearEndDate {
		promotion.EndDate = nil
	} else if req.EndDate != nil {
		promotion.EndDate = req.EndDate
	}
	if req.CouponCode != nil {
		promotion.CouponCode = *req.CouponCode
	}
	if req.ExternalLink != nil {
		promotion.ExternalLink = *req.ExternalLink
	}
	if req.Terms != nil {
		promotion.Terms = *req.Terms
	}
	if req.PublishToSite != nil {
		promotion.PublishToSite = *req.PublishToSite
	}
	if req.PublishToSlack != nil {
		promotion.PublishToSlack = *req.PublishToSlack
	}
	if req.SlackChannel != nil {
		promotion.SlackChannel = *req.SlackChannel
	}

	// is_featured and status are super-admin-only writes. For sponsor admins
	// the stored values survive no matter what the request carried.
	if actor.Role == profiledomain.RoleSuperAdmin {
		if req.IsFeatured != nil {
			promotion.IsFeatured = *req.IsFeatured
		}
		if req.Status != nil {
			if !domain.ValidStatus(*req.Status) {
				return nil, domain.ErrInvalidStatus
			}
			promotion.Status = *req.Status
		}
	}

	if err := validatePromotion(promotion); err != nil {
		return nil, err
	}

	promotion.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, *promotion); err != nil {
		return nil, err
	}
	return toResponse(promotion), nil
}

func (s *service) ToggleStatus(ctx context.Context, actor domain.Actor, id string) (*domain.PromotionResponse, error) {
	promotion, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(actor, promotion); err != nil {
		return nil, err
	}

	switch {
	case promotion.Status == domain.StatusActive:
		promotion.Status = domain.StatusDraft
	case promotion.ApprovalStatus == domain.ApprovalApproved:
		promotion.Status = domain.StatusActive
	case actor.Role == profiledomain.RoleSuperAdmin:
		// A super admin activating an undecided promotion approves it.
		now := s.clk.Now()
		approver := actor.UserID
		promotion.Status = domain.StatusActive
		promotion.ApprovalStatus = domain.ApprovalApproved
		promotion.ApprovedBy = &approver
		promotion.ApprovedAt = &now
	default:
		return nil, domain.ErrInvalidStatus
	}

	promotion.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, *promotion); err != nil {
		return nil, err
	}
	return toResponse(promotion), nil
}

func (s *service) Delete(ctx context.Context, actor domain.Actor, id string) error {
	promotion, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(actor, promotion); err != nil {
		return err
	}
	return s.repo.Delete(ctx, promotion.ID)
}

func (s *service) GetByID(ctx context.Context, id string) (*domain.PromotionResponse, error) {
	promotion, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return toResponse(promotion), nil
}

func (s *service) List(ctx context.Context, filter domain.ListFilter) ([]domain.PromotionResponse, error) {
	promotions, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return toResponses(promotions), nil
}

func (s *service) ListForSponsor(ctx context.Context, actor domain.Actor) ([]domain.PromotionResponse, error) {
	if actor.SponsorID == 0 {
		return nil, domain.ErrNoSponsor
	}
	promotions, err := s.repo.List(ctx, domain.ListFilter{SponsorID: actor.SponsorID})
	if err != nil {
		return nil, err
	}
	return toResponses(promotions), nil
}

func (s *service) ListPublic(ctx context.Context, limit int) ([]domain.PromotionResponse, error) {
	promotions, err := s.repo.ListVisible(ctx, s.clk.Now(), limit)
	if err != nil {
		return nil, err
	}
	return toResponses(promotions), nil
}

func (s *service) Decide(ctx context.Context, approver snowflake.ID, id string, req domain.DecisionRequest) (*domain.PromotionResponse, error) {
	promotion, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if promotion.ApprovalStatus != domain.ApprovalPending {
		return nil, domain.ErrAlreadyDecided
	}

	now := s.clk.Now()
	promotion.ApprovedBy = &approver
	promotion.ApprovedAt = &now
	promotion.ApprovalNotes = req.Notes
	promotion.UpdatedAt = now

	if !req.Approve {
		// Rejection leaves status untouched so the author can revise and
		// resubmit without losing the draft.
		promotion.ApprovalStatus = domain.ApprovalRejected
		if err := s.repo.Update(ctx, *promotion); err != nil {
			return nil, err
		}
		s.metrics.RecordPromotionDecision(ctx, "rejected")
		return toResponse(promotion), nil
	}

	promotion.ApprovalStatus = domain.ApprovalApproved
	promotion.PublishToSite = req.PublishToSite
	promotion.PublishToSlack = req.PublishToSlack
	if req.SlackChannel != "" {
		promotion.SlackChannel = req.SlackChannel
	}
	if req.PublishToSite {
		promotion.Status = domain.StatusActive
	}

	if err := s.repo.Update(ctx, *promotion); err != nil {
		return nil, err
	}
	s.metrics.RecordPromotionDecision(ctx, "approved")

	if req.PublishToSlack && s.publisher != nil {
		// Outbound delivery must never fail the approval that triggered it.
		announce := *promotion
		go func() {
			ctx := context.WithoutCancel(ctx)
			if err := s.publisher.PromotionApproved(ctx, &announce); err != nil {
				s.log.Warn("failed to announce approved promotion",
					zap.String("promotion_id", announce.ID.String()),
					zap.Error(err),
				)
			}
		}()
	}

	return toResponse(promotion), nil
}

func (s *service) ExpireDue(ctx context.Context) (int64, error) {
	return s.repo.ExpireDue(ctx, s.clk.Now())
}

func (s *service) load(ctx context.Context, id string) (*domain.Promotion, error) {
	promotionID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	promotion, err := s.repo.FindByID(ctx, promotionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return promotion, nil
}

// authorize hides other sponsors' promotions from sponsor admins instead of
// revealing their existence with a 403.
func (s *service) authorize(actor domain.Actor, promotion *domain.Promotion) error {
	if actor.Role == profiledomain.RoleSuperAdmin {
		return nil
	}
	if actor.SponsorID == 0 {
		return domain.ErrNoSponsor
	}
	if promotion.SponsorID != actor.SponsorID {
		return domain.ErrNotFound
	}
	return nil
}

func validatePromotion(p *domain.Promotion) error {
	if p.Title == "" {
		return domain.ErrInvalidTitle
	}
	if !domain.ValidType(p.PromotionType) {
		return domain.ErrInvalidType
	}
	if p.PromotionType == domain.TypeTimeLimited && p.EndDate == nil {
		return domain.ErrEndDateMissing
	}
	if p.EndDate != nil && p.EndDate.Before(p.StartDate) {
		return domain.ErrEndBeforeStart
	}
	return nil
}

func toResponse(p *domain.Promotion) *domain.PromotionResponse {
	resp := &domain.PromotionResponse{
		ID:             p.ID.String(),
		SponsorID:      p.SponsorID.String(),
		Title:          p.Title,
		Description:    p.Description,
		PromotionType:  p.PromotionType,
		StartDate:      p.StartDate,
		EndDate:        p.EndDate,
		CouponCode:     p.CouponCode,
		ExternalLink:   p.ExternalLink,
		Terms:          p.Terms,
		IsFeatured:     p.IsFeatured,
		Status:         p.Status,
		ApprovalStatus: p.ApprovalStatus,
		ApprovedAt:     p.ApprovedAt,
		ApprovalNotes:  p.ApprovalNotes,
		PublishToSite:  p.PublishToSite,
		PublishToSlack: p.PublishToSlack,
		SlackChannel:   p.SlackChannel,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.ApprovedBy != nil {
		resp.ApprovedBy = p.ApprovedBy.String()
	}
	return resp
}

func toResponses(promotions []domain.Promotion) []domain.PromotionResponse {
	out := make([]domain.PromotionResponse, 0, len(promotions))
	for i := range promotions {
		out = append(out, *toResponse(&promotions[i]))
	}
	return out
}
