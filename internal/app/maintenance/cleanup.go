package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/medconnecthq/medconnect/internal/services"
	"github.com/medconnecthq/medconnect/pkg/logger"
)

const defaultTokenSpec = "@hourly"

// Cleaner runs background maintenance, currently limited to purging expired
// and consumed password reset tokens.
type Cleaner struct {
	resets *services.PasswordResetService
	cron   *cron.Cron
	log    *zap.Logger

	tokenSchedule string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithTokenSchedule overrides the cron specification for token cleanup.
func WithTokenSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.tokenSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults.
func NewCleaner(resets *services.PasswordResetService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		resets:        resets,
		tokenSchedule: defaultTokenSpec,
		log:           logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers the cleanup job with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.resets == nil {
		return nil
	}

	if _, err := c.cron.AddFunc(c.tokenSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		removed, err := c.resets.PurgeExpired(ctx)
		if err != nil {
			c.log.Warn("reset token cleanup failed", zap.Error(err))
			return
		}
		if removed > 0 {
			c.log.Info("purged reset tokens", zap.Int64("count", removed))
		}
	}); err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all cleanup routines sequentially. Primarily used in tests
// and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.resets != nil {
		if _, err := c.resets.PurgeExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
