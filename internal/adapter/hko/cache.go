package hko

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/fsutil"
	"github.com/couchcryptid/tide-data-etl/internal/observability"
)

// CachedFetcher wraps a PageFetcher with a local copy of the page on disk.
// The local copy is preferred while fresh; a maxAge of zero never expires it.
// With a nil inner fetcher only the local copy is used.
type CachedFetcher struct {
	inner   domain.PageFetcher
	path    string
	maxAge  time.Duration
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator that stores pages at path.
func NewCachedFetcher(inner domain.PageFetcher, path string, maxAge time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		path:    path,
		maxAge:  maxAge,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

var errNotRegular = errors.New("not a regular file")

// FetchPage returns the local copy when it is fresh, otherwise fetches a new
// page and saves it. If the fetch fails and a stale copy exists, the stale
// copy is returned.
func (c *CachedFetcher) FetchPage(ctx context.Context) (domain.Page, error) {
	info, statErr := os.Stat(c.path)
	haveLocal := statErr == nil && info.Mode().IsRegular()

	if haveLocal && (c.inner == nil || c.fresh(info.ModTime())) {
		return c.readLocal(info.ModTime())
	}
	if c.inner == nil {
		if statErr == nil {
			statErr = errNotRegular
		}
		return domain.Page{}, fmt.Errorf("read local page %s: %w", c.path, statErr)
	}

	page, err := c.fetchAndSave(ctx)
	if err != nil {
		if haveLocal && ctx.Err() == nil {
			c.logger.Warn("page fetch failed, using stale local copy",
				"path", c.path,
				"age", c.clock.Since(info.ModTime()),
				"error", err,
			)
			return c.readLocal(info.ModTime())
		}
		return domain.Page{}, err
	}
	return page, nil
}

// Refresh fetches a new copy regardless of the local copy's age and saves
// it. Unlike FetchPage it never falls back to a stale copy.
func (c *CachedFetcher) Refresh(ctx context.Context) (domain.Page, error) {
	if c.inner == nil {
		return domain.Page{}, errors.New("refresh local page: no source configured")
	}
	return c.fetchAndSave(ctx)
}

func (c *CachedFetcher) fetchAndSave(ctx context.Context) (domain.Page, error) {
	page, err := c.inner.FetchPage(ctx)
	if err != nil {
		return domain.Page{}, err
	}
	if err := c.save(page.Body); err != nil {
		// The fetched page is still usable for this run.
		c.logger.Warn("save local page failed", "path", c.path, "error", err)
	} else {
		c.logger.Info("saved local page", "path", c.path, "bytes", len(page.Body))
	}
	return page, nil
}

// Invalidate removes the local copy so the next FetchPage goes to the network.
func (c *CachedFetcher) Invalidate() error {
	if err := os.Remove(c.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove local page: %w", err)
	}
	return nil
}

func (c *CachedFetcher) fresh(modTime time.Time) bool {
	return c.maxAge == 0 || c.clock.Since(modTime) <= c.maxAge
}

func (c *CachedFetcher) readLocal(modTime time.Time) (domain.Page, error) {
	body, err := os.ReadFile(c.path)
	if err != nil {
		return domain.Page{}, fmt.Errorf("read local page: %w", err)
	}
	c.metrics.PagesFetched.WithLabelValues(domain.PageFromCache).Inc()
	c.logger.Debug("using local page", "path", c.path, "modified", modTime)
	return domain.Page{
		URL:       c.path,
		Body:      body,
		Source:    domain.PageFromCache,
		FetchedAt: modTime,
	}, nil
}

func (c *CachedFetcher) save(body []byte) error {
	return fsutil.WriteAtomic(c.path, func(w io.Writer) error {
		_, err := w.Write(body)
		return err
	})
}
