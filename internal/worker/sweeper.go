// Package worker hosts the long-lived background loops of the service.
package worker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jmehdipour/event-stream/internal/config"
	"github.com/jmehdipour/event-stream/internal/metrics"
	"github.com/jmehdipour/event-stream/internal/repository"
)

const defaultBatchSize = 5000

// Sweeper periodically deletes stale events. One sweeper runs per process
// with no cross-process coordination: every predicate it fires is
// idempotent and batch-bounded, so concurrent sweepers waste work but
// cannot corrupt anything.
type Sweeper struct {
	Store   repository.SweepRepository
	Archive repository.LogArchive // optional; nil disables the log archive

	Grace    time.Duration
	Interval time.Duration

	// RetentionDays <= 0 disables the general retention sweep. Retention is
	// strictly opt-in.
	RetentionDays      int
	StaleActionTimeout time.Duration
	LogRetentionDays   int
	ActionTopics       []string
	LogTopics          []string
	BatchSize          int

	// Now is the sweeper's clock. Overridden in tests.
	Now func() time.Time

	Log *zap.Logger
}

func NewSweeper(cfg config.SweeperConfig, store repository.SweepRepository, archive repository.LogArchive, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Sweeper{
		Store:              store,
		Archive:            archive,
		Grace:              cfg.Grace,
		Interval:           cfg.Interval,
		RetentionDays:      cfg.EventRetentionDays,
		StaleActionTimeout: cfg.StaleActionTimeout,
		LogRetentionDays:   cfg.LogRetentionDays,
		ActionTopics:       cfg.ActionTopics,
		LogTopics:          cfg.LogTopics,
		BatchSize:          defaultBatchSize,
		Now:                time.Now,
		Log:                log,
	}
	if s.Interval <= 0 {
		s.Interval = time.Hour
	}
	return s
}

// Run blocks until ctx is cancelled. The first sweep waits out the grace
// delay so it does not compete with startup work. Cancellation never
// interrupts an in-flight delete statement; the loop checks ctx only
// between statements.
func (s *Sweeper) Run(ctx context.Context) error {
	s.Log.Debug("sweeper starting",
		zap.Duration("grace", s.Grace),
		zap.Duration("interval", s.Interval))

	if s.Grace > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Grace):
		}
	}

	for {
		s.Sweep(ctx)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.Interval):
		}
	}
}

type subSweep struct {
	name string
	run  func(ctx context.Context) (int64, error)
}

// Sweep performs one full cycle. Each sub-sweep is guarded on its own: a
// failing one is logged and counted, and the remaining sweeps still run.
func (s *Sweeper) Sweep(ctx context.Context) {
	sweeps := []subSweep{
		{"actions", s.sweepStaleActions},
		{"logs", s.sweepLogs},
		{"retention", s.sweepRetention},
	}

	for _, sw := range sweeps {
		n, err := sw.run(ctx)
		if err != nil {
			metrics.SweepErrorsTotal.WithLabelValues(sw.name).Inc()
			s.Log.Error("sweep failed", zap.String("sweep", sw.name), zap.Error(err))
			continue
		}
		if n > 0 {
			metrics.SweepDeletedTotal.WithLabelValues(sw.name).Add(float64(n))
			s.Log.Debug("sweep deleted events",
				zap.String("sweep", sw.name), zap.Int64("deleted", n))
		}
	}
}

// sweepStaleActions drops action events stuck in pending past the timeout.
// These are fire-and-forget external actions that were never acknowledged;
// a healthy consumer reacts within seconds.
func (s *Sweeper) sweepStaleActions(ctx context.Context) (int64, error) {
	if s.StaleActionTimeout <= 0 || len(s.ActionTopics) == 0 {
		return 0, nil
	}
	cutoff := s.Now().Add(-s.StaleActionTimeout)
	return s.Store.DeleteStaleActions(ctx, s.ActionTopics, cutoff)
}

// sweepLogs deletes log events whose age falls in the trailing band
// (retention, 2*retention). Anything older than the band survives: rows
// can only age past it when deletion kept failing, and keeping them is a
// diagnostic signal worth more than the disk.
func (s *Sweeper) sweepLogs(ctx context.Context) (int64, error) {
	if s.LogRetentionDays <= 0 || len(s.LogTopics) == 0 {
		return 0, nil
	}
	retention := time.Duration(s.LogRetentionDays) * 24 * time.Hour
	now := s.Now()
	to := now.Add(-retention)
	from := now.Add(-2 * retention)

	if s.Archive != nil {
		rows, err := s.Store.SelectLogWindow(ctx, s.LogTopics, from, to)
		if err != nil {
			s.Log.Warn("log archive select failed", zap.Error(err))
		} else if err := s.Archive.InsertEvents(ctx, rows); err != nil {
			// Archive is best effort and never blocks the sweep.
			s.Log.Warn("log archive insert failed",
				zap.Int("rows", len(rows)), zap.Error(err))
		}
	}

	return s.Store.DeleteLogWindow(ctx, s.LogTopics, from, to)
}

// sweepRetention deletes expired events in bounded batches until a batch
// comes back empty. Each batch excludes every event that another event
// still depends on, which is what keeps dependencies intact even while new
// dependent events are being created concurrently: a prerequisite only
// becomes deletable after its last dependent is gone.
func (s *Sweeper) sweepRetention(ctx context.Context) (int64, error) {
	if s.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.Now().AddDate(0, 0, -s.RetentionDays)

	limit := s.BatchSize
	if limit <= 0 {
		limit = defaultBatchSize
	}

	var total int64
	for {
		start := time.Now()
		n, err := s.Store.DeleteRetentionBatch(ctx, cutoff, limit)
		if err != nil {
			return total, fmt.Errorf("retention batch: %w", err)
		}
		total += n
		if n == 0 {
			return total, nil
		}
		s.Log.Debug("retention batch deleted",
			zap.Int64("deleted", n),
			zap.Duration("took", time.Since(start)))

		// Finish the in-flight batch, then honor shutdown.
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}
