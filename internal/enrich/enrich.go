// Package enrich upgrades basic job records to their detailed form on first
// use, at most once per job per run.
package enrich

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/placementwire/ingest/internal/model"
)

// Fetcher retrieves the detailed form of a job from the feed.
type Fetcher interface {
	JobDetail(ctx context.Context, jobID string) (*model.JobRecord, error)
}

// Persister stores the enriched record so later runs skip the fetch.
type Persister interface {
	UpsertJob(ctx context.Context, job *model.JobRecord) error
}

// Enricher resolves a job ID to a fully-detailed record.
type Enricher interface {
	Enrich(ctx context.Context, jobID string) (*model.JobRecord, error)
}

// Cache memoizes enrichment per run. Concurrent requests for the same job
// share one in-flight fetch.
type Cache struct {
	fetcher Fetcher
	store   Persister

	mu    sync.RWMutex
	jobs  map[string]*model.JobRecord
	group singleflight.Group
}

// NewCache seeds the cache with the known job records, basic or enriched.
func NewCache(fetcher Fetcher, store Persister, seed []*model.JobRecord) *Cache {
	jobs := make(map[string]*model.JobRecord, len(seed))
	for _, j := range seed {
		jobs[j.ID] = j
	}
	return &Cache{fetcher: fetcher, store: store, jobs: jobs}
}

// Enrich returns the detailed record for jobID, fetching it if the cached
// copy is still basic. The detail fetch happens at most once per job per
// run regardless of concurrency. Unknown job IDs are an error.
func (c *Cache) Enrich(ctx context.Context, jobID string) (*model.JobRecord, error) {
	c.mu.RLock()
	job, ok := c.jobs[jobID]
	c.mu.RUnlock()
	if !ok {
		return nil, eris.Errorf("unknown job %q", jobID)
	}
	if job.Enriched() {
		return job, nil
	}

	v, err, _ := c.group.Do(jobID, func() (any, error) {
		// Re-check under the group: a concurrent caller may have
		// completed the upgrade while this one waited.
		c.mu.RLock()
		cur := c.jobs[jobID]
		c.mu.RUnlock()
		if cur.Enriched() {
			return cur, nil
		}

		detail, err := c.fetcher.JobDetail(ctx, jobID)
		if err != nil {
			return nil, eris.Wrapf(err, "fetching detail for job %q", jobID)
		}
		detail.Enrichment = model.EnrichmentEnriched

		c.mu.Lock()
		c.jobs[jobID] = detail
		c.mu.Unlock()

		if c.store != nil {
			if err := c.store.UpsertJob(ctx, detail); err != nil {
				zap.L().Warn("persisting enriched job failed, keeping in-memory copy",
					zap.String("job_id", jobID), zap.Error(err))
			}
		}
		return detail, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.JobRecord), nil
}

// Jobs returns a snapshot of all cached records.
func (c *Cache) Jobs() []*model.JobRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.JobRecord, 0, len(c.jobs))
	for _, j := range c.jobs {
		out = append(out, j)
	}
	return out
}
