// sweeper.go: background removal of expired snippets.
//
// Each pass finds rows whose expiry is before now, then for every id deletes
// the payload followed by the row. A failure on one id is logged and skipped;
// the id is picked up again on the next pass.
package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/ports"
)

var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippetbin_sweep_runs_total",
		Help: "Sweeper passes started.",
	})
	sweepDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippetbin_sweep_deleted_total",
		Help: "Expired snippets fully removed by the sweeper.",
	})
	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snippetbin_sweep_errors_total",
		Help: "Expired snippets the sweeper failed to remove.",
	})
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "snippetbin_sweep_duration_seconds",
		Help:    "Duration of a sweeper pass in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// SweepResult summarises one pass.
type SweepResult struct {
	Deleted  int
	Errors   int
	Duration time.Duration
}

type Sweeper struct {
	meta     ports.MetadataStore
	content  ports.ContentStore
	clock    domain.Clock
	interval time.Duration
	logger   *slog.Logger

	mu sync.Mutex // serialises RunOnce

	lifecycle sync.Mutex // guards cancel and done
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewSweeper(
	meta ports.MetadataStore,
	content ports.ContentStore,
	clock domain.Clock,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		meta:     meta,
		content:  content,
		clock:    clock,
		interval: interval,
		logger:   logger.With(slog.String("component", "sweeper")),
	}
}

// Sweep removes every snippet whose expiry is before now and returns how many
// were fully removed. Only a failed lookup of expired ids is returned as an
// error.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := s.sweep(ctx, now)
	return res.Deleted, err
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var res SweepResult

	ids, err := s.meta.FindExpiredBefore(ctx, now)
	if err != nil {
		return res, err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			// Remaining ids are left for the next pass
			s.logger.Warn("sweep interrupted", slog.Int("remaining", len(ids)-res.Deleted-res.Errors))
			break
		}

		// Payload first: a row without payload reads as not found, never the reverse
		if err := s.content.Delete(ctx, domain.ContentKey(id)); err != nil {
			s.logger.Error("failed to delete payload",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			res.Errors++
			continue
		}
		if err := s.meta.Delete(ctx, id); err != nil {
			s.logger.Error("failed to delete metadata",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			res.Errors++
			continue
		}

		s.logger.Debug("snippet expired", slog.String("id", id))
		res.Deleted++
	}

	if c, ok := s.content.(ports.Compactor); ok && res.Deleted > 0 {
		if err := c.Compact(ctx); err != nil {
			s.logger.Warn("content compaction failed", slog.String("error", err.Error()))
		}
	}
	return res, nil
}

// Stats reports how many rows exist and how many of them are expired at now.
// Active is derived so Active + Expired == Total holds even while writes race
// with the two counts.
func (s *Sweeper) Stats(ctx context.Context, now time.Time) (domain.Stats, error) {
	total, err := s.meta.Count(ctx)
	if err != nil {
		return domain.Stats{}, err
	}
	expired, err := s.meta.CountExpiredBefore(ctx, now)
	if err != nil {
		return domain.Stats{}, err
	}
	expired = min(expired, total)
	return domain.Stats{Total: total, Active: total - expired, Expired: expired}, nil
}

// RunOnce performs one pass at the clock's current time. Concurrent calls
// wait for each other.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	s.logger.Debug("sweep started")

	res, err := s.sweep(ctx, s.clock.Now())
	res.Duration = time.Since(start)

	sweepRunsTotal.Inc()
	sweepDeletedTotal.Add(float64(res.Deleted))
	sweepErrorsTotal.Add(float64(res.Errors))
	sweepDurationSeconds.Observe(res.Duration.Seconds())

	if err != nil {
		s.logger.Error("sweep failed", slog.String("error", err.Error()))
		return res, err
	}
	s.logger.Info("sweep finished",
		slog.Int("deleted", res.Deleted),
		slog.Int("errors", res.Errors),
		slog.Duration("duration", res.Duration),
	)
	return res, nil
}

// Start runs a pass immediately and then every interval until Stop or ctx ends.
// Calling Start on a running sweeper does nothing.
func (s *Sweeper) Start(ctx context.Context) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.cancel != nil {
		s.logger.Warn("sweeper already started")
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx, s.done)

	s.logger.Info("sweeper started", slog.String("interval", s.interval.String()))
}

// Stop cancels the background loop and waits for an in-flight pass to end.
func (s *Sweeper) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.cancel, s.done = nil, nil
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	// First pass right after start
	_, _ = s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RunOnce(ctx)
		}
	}
}

// Ensure interface compliance
var _ ports.SweepService = (*Sweeper)(nil)
