package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"

	authdomain "github.com/sponsorhub/sponsorhub/internal/auth/domain"
	"github.com/sponsorhub/sponsorhub/internal/authorization"
	"github.com/sponsorhub/sponsorhub/internal/clock"
	invitationdomain "github.com/sponsorhub/sponsorhub/internal/invitation/domain"
	obsmetrics "github.com/sponsorhub/sponsorhub/internal/observability/metrics"
	promotiondomain "github.com/sponsorhub/sponsorhub/internal/promotion/domain"
	"github.com/sponsorhub/sponsorhub/internal/ratelimit"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

const runLockKey = "scheduler_run"

type Params struct {
	fx.In

	Log           *zap.Logger
	PromotionSvc  promotiondomain.Service
	InvitationSvc invitationdomain.Service
	AuthSvc       authdomain.Service
	AuthzSvc      authorization.Service
	Locker        *ratelimit.Locker `optional:"true"`
	GenID         *snowflake.Node
	Clock         clock.Clock
	Config        Config `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	promotionSvc  promotiondomain.Service
	invitationSvc invitationdomain.Service
	authSvc       authdomain.Service
	authzSvc      authorization.Service
	locker        *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.PromotionSvc == nil || p.InvitationSvc == nil || p.AuthSvc == nil || p.AuthzSvc == nil || p.GenID == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		promotionSvc:  p.PromotionSvc,
		invitationSvc: p.InvitationSvc,
		authSvc:       p.AuthSvc,
		authzSvc:      p.AuthzSvc,
		locker:        p.Locker,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if owner {
		if err != nil && run != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	release, acquired, err := s.acquireRunLock(parent)
	if err != nil {
		s.log.Warn("scheduler lock check failed", zap.Error(err))
		return nil
	}
	if !acquired {
		s.log.Debug("scheduler run skipped, another instance holds the lock")
		return nil
	}
	defer release()

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"expire_promotions", s.ExpirePromotionsJob},
		{"invitation_sweep", s.InvitationSweepJob},
		{"session_prune", s.SessionPruneJob},
	}

	var errs error
	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		name, run := job.Name, job.Run
		errs = errors.Join(errs, s.runJob(parent, name, run))
	}
	return errs
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// acquireRunLock takes the shared redis lock so overlapping deployments do
// not double-run the sweeps. Without redis the lock degrades to a no-op.
func (s *Scheduler) acquireRunLock(ctx context.Context) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	token, ok, err := s.locker.TryLock(ctx, runLockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), runLockKey, token); err != nil {
			s.log.Warn("scheduler lock release failed", zap.Error(err))
		}
	}, true, nil
}

func (s *Scheduler) ExpirePromotionsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, "expire_promotions")
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	if err := s.authorizeSystem(ctx, authorization.ObjectPromotion, authorization.ActionPromotionExpire); err != nil {
		return err
	}

	count, err := s.promotionSvc.ExpireDue(ctx)
	if err != nil {
		s.logSchedulerError(ctx, run, "expire promotions failed", "expire_promotions", err)
		return err
	}
	run.AddProcessed(int(count))
	obsmetrics.Scheduler().AddBatchProcessed("expire_promotions", int(count))
	if count > 0 {
		s.logger(ctx).Info("promotions expired", zap.Int64("count", count))
	}
	return nil
}

func (s *Scheduler) InvitationSweepJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, "invitation_sweep")
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	if err := s.authorizeSystem(ctx, authorization.ObjectInvitation, authorization.ActionInvitationExpire); err != nil {
		return err
	}

	count, err := s.invitationSvc.ExpireSweep(ctx, s.cfg.SweepBatchSize)
	if err != nil {
		s.logSchedulerError(ctx, run, "invitation sweep failed", "invitation_sweep", err)
		return err
	}
	run.AddProcessed(count)
	obsmetrics.Scheduler().AddBatchProcessed("invitation_sweep", count)
	if count > 0 {
		s.logger(ctx).Info("invitations expired", zap.Int("count", count))
	}
	return nil
}

func (s *Scheduler) SessionPruneJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, "session_prune")
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	count, err := s.authSvc.PruneSessions(ctx)
	if err != nil {
		s.logSchedulerError(ctx, run, "session prune failed", "session_prune", err)
		return err
	}
	run.AddProcessed(int(count))
	obsmetrics.Scheduler().AddBatchProcessed("session_prune", int(count))
	return nil
}

func (s *Scheduler) authorizeSystem(ctx context.Context, object string, action string) error {
	return s.authzSvc.Authorize(ctx, "system", "", object, action)
}
