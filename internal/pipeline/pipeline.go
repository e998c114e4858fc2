package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/observability"
)

// Transformer turns a page into wide rows and wide rows into readings.
type Transformer interface {
	Extract(ctx context.Context, page domain.Page) ([]domain.TableRow, domain.ExtractStats, error)
	Reshape(ctx context.Context, rows []domain.TableRow) ([]domain.Reading, domain.ReshapeStats, error)
}

// RowSaver persists extracted wide rows.
type RowSaver interface {
	SaveRows(ctx context.Context, rows []domain.TableRow) error
}

// BatchLoader writes a batch of readings to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, batch domain.ReadingBatch) error
	Name() string
}

// Stages groups the pipeline's collaborators. Wide may be nil.
type Stages struct {
	Fetcher     domain.PageFetcher
	Transformer Transformer
	Wide        RowSaver
	Loaders     []BatchLoader
}

const (
	initialRetryBackoff = 5 * time.Second
	maxRetryBackoff     = 5 * time.Minute
)

// Pipeline orchestrates the fetch-extract-reshape-load run.
type Pipeline struct {
	stages   Stages
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
	interval time.Duration
	newRunID func() string

	ready   atomic.Bool
	trigger chan struct{}

	mu     sync.Mutex
	last   domain.RunStatus
	hasRun bool
}

// New creates a Pipeline. An interval of zero disables periodic refresh;
// runs then happen once at start and on Trigger.
func New(stages Stages, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, interval time.Duration) *Pipeline {
	return &Pipeline{
		stages:   stages,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
		interval: interval,
		newRunID: uuid.NewString,
		trigger:  make(chan struct{}, 1),
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a successful run yet")
	}
	return nil
}

// LastRun returns the status of the most recent run, if any.
func (p *Pipeline) LastRun() (domain.RunStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasRun
}

// Trigger requests an immediate run from Run. It returns false when a
// request is already pending.
func (p *Pipeline) Trigger() bool {
	select {
	case p.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Run executes one run immediately, then repeats on every interval tick and
// Trigger call until the context is cancelled. Failed runs are retried with
// exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "refresh_interval", p.interval)
	p.metrics.PipelineActive.Set(1)
	defer p.metrics.PipelineActive.Set(0)

	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := p.clock.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.Chan()
	}

	backoff := initialRetryBackoff
	var retryC <-chan time.Time

	for {
		if _, err := p.RunOnce(ctx); err != nil && !errors.Is(err, domain.ErrNoData) {
			if ctx.Err() != nil {
				p.logger.Info("pipeline stopping", "reason", ctx.Err())
				return nil
			}
			p.logger.Info("scheduling retry", "backoff", backoff)
			retryC = p.clock.After(backoff)
			backoff = retry.NextBackoff(backoff, maxRetryBackoff)
		} else {
			retryC = nil
			backoff = initialRetryBackoff
		}

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		case <-tick:
		case <-p.trigger:
			p.logger.Info("refresh triggered")
		case <-retryC:
		}
	}
}

// RunOnce performs a single run and records its status. It returns
// domain.ErrNoData when extraction or reshape produced nothing; no output
// is written past the stage that came up empty.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.RunStatus, error) {
	status := domain.RunStatus{
		RunID:     p.newRunID(),
		StartedAt: p.clock.Now(),
	}
	logger := p.logger.With("run_id", status.RunID)

	err := p.run(ctx, logger, &status)

	status.FinishedAt = p.clock.Now()
	switch {
	case err == nil:
		status.Outcome = domain.RunSuccess
		p.ready.Store(true)
		p.metrics.LastSuccess.Set(float64(status.FinishedAt.Unix()))
		logger.Info("run complete",
			"rows", status.Rows,
			"readings", status.Readings,
			"page_source", status.PageSource,
			"duration", status.FinishedAt.Sub(status.StartedAt),
		)
	case errors.Is(err, domain.ErrNoData):
		status.Outcome = domain.RunNoData
		status.Error = err.Error()
		logger.Warn("run produced no data, nothing written", "reason", err)
	default:
		status.Outcome = domain.RunError
		status.Error = err.Error()
		logger.Error("run failed", "error", err)
	}

	p.metrics.RunsTotal.WithLabelValues(status.Outcome).Inc()
	p.metrics.RunDuration.Observe(status.FinishedAt.Sub(status.StartedAt).Seconds())

	p.mu.Lock()
	p.last = status
	p.hasRun = true
	p.mu.Unlock()

	return status, err
}

func (p *Pipeline) run(ctx context.Context, logger *slog.Logger, status *domain.RunStatus) error {
	page, err := p.stages.Fetcher.FetchPage(ctx)
	if err != nil {
		return fmt.Errorf("fetch page: %w", err)
	}
	status.PageSource = page.Source

	rows, xstats, err := p.stages.Transformer.Extract(ctx, page)
	status.RowsSkipped = xstats.Skipped
	for reason, n := range xstats.Skipped {
		p.metrics.RowsSkipped.WithLabelValues(reason).Add(float64(n))
	}
	if err != nil {
		return fmt.Errorf("extract rows from %s: %w", page.URL, err)
	}
	status.Rows = len(rows)
	p.metrics.RowsExtracted.Add(float64(len(rows)))
	logger.Debug("extracted rows", "rows", len(rows), "tables", xstats.Tables)

	if p.stages.Wide != nil {
		if err := p.stages.Wide.SaveRows(ctx, rows); err != nil {
			return fmt.Errorf("save wide rows: %w", err)
		}
	}

	readings, rstats, err := p.stages.Transformer.Reshape(ctx, rows)
	status.SlotSkipped = rstats.Skipped
	for reason, n := range rstats.Skipped {
		p.metrics.SlotsSkipped.WithLabelValues(reason).Add(float64(n))
	}
	if err != nil {
		return fmt.Errorf("reshape %d rows: %w", len(rows), err)
	}
	status.Readings = len(readings)
	p.metrics.ReadingsProduced.Add(float64(len(readings)))

	batch := domain.ReadingBatch{
		RunID:      status.RunID,
		ReshapedAt: p.clock.Now(),
		Readings:   readings,
	}
	var loadErrs []error
	for _, l := range p.stages.Loaders {
		if err := l.LoadBatch(ctx, batch); err != nil {
			logger.Error("load batch failed", "loader", l.Name(), "error", err, "batch_size", len(readings))
			loadErrs = append(loadErrs, fmt.Errorf("load %s: %w", l.Name(), err))
		}
	}
	return errors.Join(loadErrs...)
}
