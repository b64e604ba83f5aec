package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RetentionConfig controls the periodic purge of expired audit rows.
type RetentionConfig struct {
	// MaxAge is how long execution records are kept.
	MaxAge time.Duration
	// Schedule is a cron expression; defaults to hourly.
	Schedule string
}

// Retention periodically deletes execution records older than the
// configured age.
type Retention struct {
	store  *Store
	config RetentionConfig
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewRetention creates the retention job. MaxAge must be positive.
func NewRetention(store *Store, config RetentionConfig, logger zerolog.Logger) (*Retention, error) {
	if config.MaxAge <= 0 {
		return nil, fmt.Errorf("retention max age must be positive")
	}
	if config.Schedule == "" {
		config.Schedule = "@hourly"
	}
	return &Retention{
		store:  store,
		config: config,
		cron:   cron.New(),
		logger: logger,
	}, nil
}

// Start schedules the purge and runs the cron loop in the background.
func (r *Retention) Start() error {
	if _, err := r.cron.AddFunc(r.config.Schedule, r.purge); err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	r.cron.Start()
	r.logger.Info().
		Str("schedule", r.config.Schedule).
		Dur("max_age", r.config.MaxAge).
		Msg("Execution retention job started")
	return nil
}

// Stop stops the cron loop and waits for a running purge to finish.
func (r *Retention) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Retention) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-r.config.MaxAge)
	removed, err := r.store.PurgeExecutionsBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error().Err(err).Msg("Execution retention purge failed")
		return
	}
	if removed > 0 {
		r.logger.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Purged expired execution records")
	}
}
