package scheduler

import (
	"strings"
	"time"

	"github.com/sponsorhub/sponsorhub/internal/config"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	RunInterval    time.Duration
	JobTimeout     time.Duration
	SweepBatchSize int
	LockTTL        time.Duration

	// EnabledJobs filters which jobs run; empty means all.
	EnabledJobs []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:    time.Minute,
		JobTimeout:     30 * time.Second,
		SweepBatchSize: 200,
		LockTTL:        5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	if c.SweepBatchSize <= 0 {
		c.SweepBatchSize = defaults.SweepBatchSize
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	out := DefaultConfig()
	if cfg.CronLockTTL > 0 {
		out.LockTTL = cfg.CronLockTTL
	}
	if jobs := strings.TrimSpace(cfg.SchedulerJobs); jobs != "" {
		for _, job := range strings.Split(jobs, ",") {
			if job = strings.TrimSpace(job); job != "" {
				out.EnabledJobs = append(out.EnabledJobs, job)
			}
		}
	}
	return out
}
