package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/config"
	"github.com/sponsorhub/sponsorhub/internal/invitation/domain"
	"github.com/sponsorhub/sponsorhub/internal/observability/metrics"
	profiledomain "github.com/sponsorhub/sponsorhub/internal/profile/domain"
	"github.com/sponsorhub/sponsorhub/internal/providers/email"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	repo     domain.Repository
	profiles profiledomain.Repository
	sponsors sponsordomain.Repository
	mailer   email.Provider
	clk      clock.Clock
	genID    *snowflake.Node
	metrics  *metrics.Metrics
	baseURL  string
	log      *zap.Logger
}

func NewService(
	repo domain.Repository,
	profiles profiledomain.Repository,
	sponsors sponsordomain.Repository,
	mailer email.Provider,
	clk clock.Clock,
	genID *snowflake.Node,
	m *metrics.Metrics,
	cfg config.Config,
	log *zap.Logger,
) domain.Service {
	return &service{
		repo:     repo,
		profiles: profiles,
		sponsors: sponsors,
		mailer:   mailer,
		clk:      clk,
		genID:    genID,
		metrics:  m,
		baseURL:  cfg.BaseURL,
		log:      log,
	}
}

func (s *service) Issue(ctx context.Context, req domain.IssueRequest) (*domain.IssueResult, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if emailAddr == "" || !strings.Contains(emailAddr, "@") {
		return nil, domain.ErrInvalidEmail
	}
	if !profiledomain.ValidRole(req.Role) {
		return nil, domain.ErrInvalidRole
	}

	var sponsorID *snowflake.ID
	if raw := strings.TrimSpace(req.SponsorID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrSponsorRequired
		}
		if _, err := s.sponsors.FindByID(ctx, parsed); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrSponsorRequired
			}
			return nil, err
		}
		sponsorID = &parsed
	}
	if req.Role == profiledomain.RoleSponsorAdmin && sponsorID == nil {
		return nil, domain.ErrSponsorRequired
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.clk.Now()
	invitation := domain.Invitation{
		ID:        s.genID.Generate(),
		Email:     emailAddr,
		Role:      req.Role,
		SponsorID: sponsorID,
		Token:     token,
		Status:    domain.StatusPending,
		ExpiresAt: now.Add(domain.TokenTTL),
		CreatedAt: now,
	}
	if req.CreatedBy != 0 {
		createdBy := req.CreatedBy
		invitation.CreatedBy = &createdBy
	}

	if err := s.repo.Create(ctx, invitation); err != nil {
		return nil, err
	}
	s.metrics.RecordInvitationIssued(ctx, req.Role)

	invitationURL := fmt.Sprintf("%s/auth/accept-invitation?token=%s", s.baseURL, token)
	result := &domain.IssueResult{
		InvitationID:  invitation.ID.String(),
		InvitationURL: invitationURL,
		EmailSent:     true,
	}

	sendErr := s.mailer.SendTemplate(ctx, []string{emailAddr}, "invitation", map[string]interface{}{
		"sponsor_name":   req.SponsorName,
		"invitation_url": invitationURL,
		"expires_at":     invitation.ExpiresAt.Format("January 2, 2006"),
	})
	if sendErr != nil {
		// The invitation row exists; the admin can copy the link manually.
		s.log.Warn("invitation email delivery failed",
			zap.String("invitation_id", invitation.ID.String()),
			zap.Error(sendErr),
		)
		result.EmailSent = false
		result.Warning = sendErr.Error()
	}
	if err := s.repo.MarkEmailSent(ctx, invitation.ID, result.EmailSent); err != nil {
		s.log.Warn("failed to record email delivery state",
			zap.String("invitation_id", invitation.ID.String()),
			zap.Error(err),
		)
	}

	return result, nil
}

func (s *service) Validate(ctx context.Context, token string) (*domain.InvitationResponse, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrInvalidToken
	}

	invitation, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if invitation.Expired(s.clk.Now()) {
		return nil, domain.ErrExpired
	}
	if invitation.Accepted() {
		return nil, domain.ErrAlreadyAccepted
	}
	if invitation.Status == domain.StatusRevoked {
		return nil, domain.ErrNotFound
	}

	return toResponse(invitation), nil
}

func (s *service) Accept(ctx context.Context, req domain.AcceptRequest) error {
	token := strings.TrimSpace(req.Token)
	emailAddr := strings.ToLower(strings.TrimSpace(req.Email))
	if token == "" || req.UserID == 0 || emailAddr == "" || req.Role == "" {
		return domain.ErrInvalidToken
	}

	// Re-validate the token even when the caller already did: the invitation
	// can expire or be redeemed between the validate and accept calls.
	invitation, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if invitation.Accepted() {
		return domain.ErrAlreadyAccepted
	}
	if invitation.Expired(s.clk.Now()) {
		return domain.ErrExpired
	}
	if invitation.Status == domain.StatusRevoked {
		return domain.ErrNotFound
	}
	// The token alone is not enough: the session must belong to the address
	// the invitation was issued for.
	if !strings.EqualFold(invitation.Email, emailAddr) {
		return domain.ErrUserMismatch
	}

	role := invitation.Role

	if err := s.profiles.Upsert(ctx, profiledomain.Profile{
		ID:          req.UserID,
		Email:       emailAddr,
		DisplayName: displayNameFromEmail(emailAddr),
		Role:        role,
		CreatedAt:   s.clk.Now(),
		UpdatedAt:   s.clk.Now(),
	}); err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	if role == profiledomain.RoleSponsorAdmin {
		// The sponsor binding comes from the invitation row only. The request
		// may carry a sponsor id too, but an accepting user must not be able
		// to pick which sponsor they get linked to.
		sponsorID := invitation.SponsorID
		if sponsorID == nil {
			return domain.ErrSponsorRequired
		}

		if err := s.sponsors.UpsertAdminLink(ctx, sponsordomain.SponsorAdmin{
			ID:        s.genID.Generate(),
			SponsorID: *sponsorID,
			UserID:    req.UserID,
			CreatedAt: s.clk.Now(),
		}); err != nil {
			return fmt.Errorf("failed to link sponsor admin: %w", err)
		}

		// Re-read to verify the link actually landed. The upsert is
		// DO NOTHING on conflict, so a silent miss would otherwise leave an
		// orphaned sponsor_admin profile.
		link, err := s.sponsors.FindLinkByUser(ctx, req.UserID)
		if err != nil || link.SponsorID != *sponsorID {
			return domain.ErrLinkUnverified
		}
	}

	// Marking accepted is best-effort: the profile and link are already in
	// place, so a failure here must not fail the whole acceptance. A later
	// retry then hits ErrAlreadyAccepted only if this write succeeded.
	if err := s.repo.MarkAccepted(ctx, invitation.ID, s.clk.Now()); err != nil {
		s.log.Warn("failed to mark invitation accepted",
			zap.String("invitation_id", invitation.ID.String()),
			zap.Error(err),
		)
	}

	s.metrics.RecordInvitationAccepted(ctx, role)
	return nil
}

func (s *service) Revoke(ctx context.Context, id string) error {
	invitationID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return domain.ErrInvalidID
	}

	invitation, err := s.repo.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}
	if invitation.Accepted() {
		return domain.ErrAlreadyAccepted
	}

	return s.repo.Revoke(ctx, invitationID)
}

func (s *service) Inspect(ctx context.Context, emailAddr string) (*domain.FlowState, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if emailAddr == "" {
		return nil, domain.ErrInvalidEmail
	}

	invitations, err := s.repo.ListByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}

	state := &domain.FlowState{Email: emailAddr}
	for i := range invitations {
		state.Invitations = append(state.Invitations, *toResponse(&invitations[i]))
	}

	profile, err := s.profiles.FindByEmail(ctx, emailAddr)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if profile != nil {
		state.HasProfile = true
		state.ProfileRole = profile.Role

		link, err := s.sponsors.FindLinkByUser(ctx, profile.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		if link != nil {
			state.HasLink = true
			state.SponsorID = link.SponsorID.String()
		}
	}

	return state, nil
}

func (s *service) ExpireSweep(ctx context.Context, limit int) (int, error) {
	affected, err := s.repo.ExpirePending(ctx, s.clk.Now(), limit)
	return int(affected), err
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func displayNameFromEmail(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}

func toResponse(invitation *domain.Invitation) *domain.InvitationResponse {
	resp := &domain.InvitationResponse{
		ID:         invitation.ID.String(),
		Email:      invitation.Email,
		Role:       invitation.Role,
		Status:     invitation.Status,
		EmailSent:  invitation.EmailSent,
		ExpiresAt:  invitation.ExpiresAt,
		AcceptedAt: invitation.AcceptedAt,
		CreatedAt:  invitation.CreatedAt,
	}
	if invitation.SponsorID != nil {
		resp.SponsorID = invitation.SponsorID.String()
	}
	return resp
}
