package observability

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultStatsSchedule refreshes the gauges twice a minute
const DefaultStatsSchedule = "@every 30s"

const collectTimeout = 10 * time.Second

// RowCounter reports the number of stored records
type RowCounter interface {
	Count(ctx context.Context) (int64, error)
}

// StatsCollector periodically copies connection pool statistics and the
// stored quote count into Prometheus gauges.
type StatsCollector struct {
	db      *sql.DB
	counter RowCounter
	metrics *Metrics
	logger  *Logger
	cron    *cron.Cron
}

// NewStatsCollector creates a collector. db and counter may be nil.
func NewStatsCollector(db *sql.DB, counter RowCounter, metrics *Metrics, logger *Logger) *StatsCollector {
	return &StatsCollector{
		db:      db,
		counter: counter,
		metrics: metrics,
		logger:  logger,
		cron:    cron.New(),
	}
}

// Collect refreshes the gauges once
func (c *StatsCollector) Collect(ctx context.Context) error {
	if c.db != nil {
		c.metrics.RecordDBStats(c.db.Stats())
	}
	if c.counter == nil || c.metrics == nil {
		return nil
	}

	n, err := c.counter.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count quotes: %w", err)
	}
	c.metrics.QuotesTotal.Set(float64(n))
	c.logger.Debugf("Collected stats: %d quotes", n)
	return nil
}

// Start collects immediately and then on schedule
func (c *StatsCollector) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultStatsSchedule
	}

	run := func() {
		defer RecoverPanic(c.logger, "stats collector")
		runCtx, cancel := context.WithTimeout(ctx, collectTimeout)
		defer cancel()
		if err := c.Collect(runCtx); err != nil {
			c.logger.WithError(err).Warn("Stats collection failed")
		}
	}

	if _, err := c.cron.AddFunc(schedule, run); err != nil {
		return fmt.Errorf("failed to schedule stats collector: %w", err)
	}

	run()
	c.cron.Start()
	c.logger.WithField("schedule", schedule).Info("Stats collector started")
	return nil
}

// Stop halts the schedule and waits for a running collection to finish
func (c *StatsCollector) Stop(ctx context.Context) error {
	done := c.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
