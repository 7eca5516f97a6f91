package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	blogdomain "github.com/sponsorhub/sponsorhub/internal/blog/domain"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	"github.com/sponsorhub/sponsorhub/internal/config"
	"github.com/sponsorhub/sponsorhub/internal/observability/metrics"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	"github.com/sponsorhub/sponsorhub/internal/slack/domain"
	sponsordomain "github.com/sponsorhub/sponsorhub/internal/sponsor/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Notifier fans portal events out to Slack. Every attempt is recorded in
// slack_notifications regardless of outcome; delivery failures are returned
// to the caller for logging but the record already exists.
type Notifier struct {
	client         Client
	repo           domain.Repository
	holder         *config.NotificationConfigHolder
	clk            clock.Clock
	genID          *snowflake.Node
	metrics        *metrics.Metrics
	defaultChannel string
	log            *zap.Logger
}

func NewNotifier(
	client Client,
	repo domain.Repository,
	holder *config.NotificationConfigHolder,
	clk clock.Clock,
	genID *snowflake.Node,
	m *metrics.Metrics,
	cfg config.Config,
	log *zap.Logger,
) *Notifier {
	return &Notifier{
		client:         client,
		repo:           repo,
		holder:         holder,
		clk:            clk,
		genID:          genID,
		metrics:        m,
		defaultChannel: cfg.SlackChannel,
		log:            log,
	}
}

// Notify records and delivers a single message. Used directly by the relay
// endpoint; the typed event methods below route through it.
func (n *Notifier) Notify(ctx context.Context, eventType, channel, text string, payload any) error {
	if channel == "" {
		channel = n.defaultChannelFor()
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}

	notification := domain.Notification{
		ID:               n.genID.Generate(),
		NotificationType: eventType,
		Channel:          channel,
		Payload:          datatypes.JSON(raw),
		Status:           domain.StatusPending,
		CreatedAt:        n.clk.Now(),
	}
	if err := n.repo.Create(ctx, notification); err != nil {
		return err
	}

	if err := n.client.PostMessage(ctx, channel, text); err != nil {
		n.metrics.RecordSlackNotification(ctx, eventType, "failed")
		if markErr := n.repo.MarkFailed(ctx, notification.ID, err.Error()); markErr != nil {
			n.log.Warn("failed to record slack delivery failure",
				zap.String("notification_id", notification.ID.String()),
				zap.Error(markErr),
			)
		}
		return err
	}

	n.metrics.RecordSlackNotification(ctx, eventType, "sent")
	if err := n.repo.MarkSent(ctx, notification.ID, n.clk.Now()); err != nil {
		n.log.Warn("failed to record slack delivery",
			zap.String("notification_id", notification.ID.String()),
			zap.Error(err),
		)
	}
	return nil
}

// PromotionApproved implements the promotion publisher hook.
func (n *Notifier) PromotionApproved(ctx context.Context, promotion *promotiondomain.Promotion) error {
	cfg := n.holder.Get()
	eventType := domain.EventNewPromotion
	if promotion.IsFeatured {
		eventType = domain.EventFeaturedPromotion
		if !cfg.Enabled || !cfg.FeaturedPromotion {
			return nil
		}
	} else if !cfg.Enabled || !cfg.NewPromotion {
		return nil
	}

	text := fmt.Sprintf(":tada: New promotion live: *%s*", promotion.Title)
	if promotion.IsFeatured {
		text = fmt.Sprintf(":star: Featured promotion live: *%s*", promotion.Title)
	}
	if promotion.EndDate != nil {
		text += fmt.Sprintf(" (ends %s)", promotion.EndDate.Format("Jan 2"))
	}

	return n.Notify(ctx, eventType, promotion.SlackChannel, text, map[string]string{
		"promotion_id": promotion.ID.String(),
		"sponsor_id":   promotion.SponsorID.String(),
		"title":        promotion.Title,
	})
}

// PromotionSubmitted tells reviewers a sponsor admin's promotion is waiting
// in the approval queue.
func (n *Notifier) PromotionSubmitted(ctx context.Context, promotion *promotiondomain.Promotion) error {
	cfg := n.holder.Get()
	if !cfg.Enabled || !cfg.PromotionPending {
		return nil
	}

	text := fmt.Sprintf(":hourglass: Promotion awaiting review: *%s*", promotion.Title)
	return n.Notify(ctx, domain.EventPromotionPending, "", text, map[string]string{
		"promotion_id": promotion.ID.String(),
		"sponsor_id":   promotion.SponsorID.String(),
		"title":        promotion.Title,
	})
}

// PostPublished implements the blog publisher hook.
func (n *Notifier) PostPublished(ctx context.Context, post *blogdomain.Post) error {
	cfg := n.holder.Get()
	if !cfg.Enabled || !cfg.BlogPost {
		return nil
	}

	text := fmt.Sprintf(":newspaper: New blog post: *%s*", post.Title)
	return n.Notify(ctx, domain.EventBlogPost, "", text, map[string]string{
		"post_id": post.ID.String(),
		"slug":    post.Slug,
	})
}

// SponsorCreated announces a newly onboarded sponsor.
func (n *Notifier) SponsorCreated(ctx context.Context, sponsor *sponsordomain.Sponsor) error {
	cfg := n.holder.Get()
	if !cfg.Enabled || !cfg.NewSponsor {
		return nil
	}

	text := fmt.Sprintf(":handshake: New sponsor onboarded: *%s*", sponsor.Name)
	return n.Notify(ctx, domain.EventNewSponsor, "", text, map[string]string{
		"sponsor_id": sponsor.ID.String(),
		"slug":       sponsor.Slug,
	})
}

// History lists recent delivery records for the admin surface.
func (n *Notifier) History(ctx context.Context, filter domain.ListFilter) ([]domain.Notification, error) {
	return n.repo.List(ctx, filter)
}

func (n *Notifier) defaultChannelFor() string {
	if channel := n.holder.Get().Channel; channel != "" {
		return channel
	}
	return n.defaultChannel
}

var _ promotiondomain.Publisher = (*Notifier)(nil)
var _ blogdomain.Publisher = (*Notifier)(nil)
var _ sponsordomain.Publisher = (*Notifier)(nil)
