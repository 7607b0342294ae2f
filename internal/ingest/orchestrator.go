// Package ingest wires the feed clients, identity store, extraction machine,
// and merge engine into one run of the pipeline.
package ingest

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/placementwire/ingest/internal/enrich"
	"github.com/placementwire/ingest/internal/extract"
	"github.com/placementwire/ingest/internal/identity"
	"github.com/placementwire/ingest/internal/linker"
	"github.com/placementwire/ingest/internal/merge"
	"github.com/placementwire/ingest/internal/model"
	"github.com/placementwire/ingest/internal/store"
)

// NoticeFeed lists notices and the cheap job listing from the portal.
type NoticeFeed interface {
	Notices(ctx context.Context) ([]model.Notice, error)
	Jobs(ctx context.Context) ([]*model.JobRecord, error)
	JobDetail(ctx context.Context, jobID string) (*model.JobRecord, error)
}

// MailFeed reads offer mail. Optional; runs without one skip the mail leg.
type MailFeed interface {
	Unread(ctx context.Context) ([]model.MailMessage, error)
	MarkRead(ctx context.Context, ids []string) error
}

// Options configures an Orchestrator.
type Options struct {
	Store store.Store
	Feed  NoticeFeed
	Mail  MailFeed
	Pool  *extract.CredentialPool

	Extract         extract.Config
	LinkerThreshold int
	Concurrency     int
}

// Result summarizes one pipeline run.
type Result struct {
	NoticesFetched int
	NoticesSkipped int
	NoticesStored  int
	Rejected       int
	Failed         int

	MailProcessed int
	OffersMerged  int

	Events []*model.ChangeEvent
}

// Orchestrator drives one end-to-end ingestion run.
type Orchestrator struct {
	store store.Store
	feed  NoticeFeed
	mail  MailFeed
	pool  *extract.CredentialPool

	extractCfg  extract.Config
	threshold   int
	concurrency int
}

func New(opts Options) *Orchestrator {
	threshold := opts.LinkerThreshold
	if threshold <= 0 {
		threshold = linker.DefaultThreshold
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Orchestrator{
		store:       opts.Store,
		feed:        opts.Feed,
		mail:        opts.Mail,
		pool:        opts.Pool,
		extractCfg:  opts.Extract,
		threshold:   threshold,
		concurrency: concurrency,
	}
}

// Run executes one full pipeline pass: load identity, refresh the job
// catalog, extract new notices, then merge offer mail. Credential pool
// exhaustion aborts the run; any other per-item failure is logged and
// skipped.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	ids, err := identity.Load(ctx, o.store)
	if err != nil {
		// Fail closed. Running with a partial identity set would
		// re-notify everything already delivered.
		return nil, eris.Wrap(err, "ingest: load identity")
	}

	jobs, err := o.refreshJobs(ctx)
	if err != nil {
		return nil, err
	}

	machine := extract.NewMachine(
		o.pool,
		linker.New(jobCandidates(jobs), o.threshold),
		enrich.NewCache(o.feed, o.store, jobs),
		o.extractCfg,
	)

	res := &Result{}
	if err := o.runNotices(ctx, machine, ids, res); err != nil {
		return res, err
	}
	if o.mail != nil {
		if err := o.runMail(ctx, machine, res); err != nil {
			return res, err
		}
	}

	zap.L().Info("pipeline run complete",
		zap.Int("notices_fetched", res.NoticesFetched),
		zap.Int("notices_skipped", res.NoticesSkipped),
		zap.Int("notices_stored", res.NoticesStored),
		zap.Int("rejected", res.Rejected),
		zap.Int("failed", res.Failed),
		zap.Int("mail_processed", res.MailProcessed),
		zap.Int("offers_merged", res.OffersMerged),
		zap.Int("events", len(res.Events)))
	return res, nil
}

// RunMail executes only the mail leg: fetch unread offer mail, extract,
// merge, and emit change events. Used by the mailbox command when the
// portal leg is not wanted.
func (o *Orchestrator) RunMail(ctx context.Context) (*Result, error) {
	if o.mail == nil {
		return nil, eris.New("ingest: no mail feed configured")
	}

	machine := extract.NewMachine(
		o.pool,
		linker.New(nil, o.threshold),
		enrich.NewCache(o.feed, o.store, nil),
		o.extractCfg,
	)

	res := &Result{}
	if err := o.runMail(ctx, machine, res); err != nil {
		return res, err
	}

	zap.L().Info("mail run complete",
		zap.Int("mail_processed", res.MailProcessed),
		zap.Int("offers_merged", res.OffersMerged),
		zap.Int("rejected", res.Rejected),
		zap.Int("failed", res.Failed),
		zap.Int("events", len(res.Events)))
	return res, nil
}

// refreshJobs loads the persisted job catalog, overlays the portal's cheap
// listing, and persists listings we had not seen. Persisted enrichment is
// never downgraded.
func (o *Orchestrator) refreshJobs(ctx context.Context) ([]*model.JobRecord, error) {
	known, err := o.store.ListJobs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: list jobs")
	}
	byID := make(map[string]*model.JobRecord, len(known))
	for _, j := range known {
		byID[j.ID] = j
	}

	listed, err := o.feed.Jobs(ctx)
	if err != nil {
		// The stored catalog still allows linking, so a listing outage
		// degrades rather than aborts.
		zap.L().Warn("job listing fetch failed, using stored catalog",
			zap.Int("stored", len(known)), zap.Error(err))
		return known, nil
	}

	merged := known
	for _, j := range listed {
		if _, ok := byID[j.ID]; ok {
			continue
		}
		if err := o.store.UpsertJob(ctx, j); err != nil {
			return nil, eris.Wrapf(err, "ingest: persist job %s", j.ID)
		}
		byID[j.ID] = j
		merged = append(merged, j)
	}
	return merged, nil
}

func jobCandidates(jobs []*model.JobRecord) []linker.Candidate {
	out := make([]linker.Candidate, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, linker.Candidate{Key: j.ID, DisplayName: j.Company})
	}
	return out
}

func (o *Orchestrator) runNotices(ctx context.Context, machine *extract.Machine, ids *identity.Store, res *Result) error {
	notices, err := o.feed.Notices(ctx)
	if err != nil {
		return eris.Wrap(err, "ingest: fetch notices")
	}
	res.NoticesFetched = len(notices)

	// Dedup before any model call. Seen notices never reach the machine.
	fresh := make([]model.Notice, 0, len(notices))
	for _, n := range notices {
		if ids.Seen(n) {
			res.NoticesSkipped++
			continue
		}
		ids.Record(n)
		fresh = append(fresh, n)
	}
	if len(fresh) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	for _, n := range fresh {
		g.Go(func() error {
			r := machine.ProcessNotice(gctx, n)

			mu.Lock()
			defer mu.Unlock()
			switch r.State {
			case extract.StateFormatted:
				if err := o.store.InsertNotice(gctx, r.Formatted); err != nil {
					return eris.Wrapf(err, "ingest: persist notice %s", n.ID)
				}
				res.NoticesStored++
			case extract.StateRejected:
				res.Rejected++
				zap.L().Debug("notice rejected",
					zap.String("notice_id", n.ID), zap.String("reason", r.RejectReason))
			case extract.StateFailed:
				if eris.Is(r.Err, extract.ErrPoolExhausted) {
					return eris.Wrap(r.Err, "ingest: aborting run")
				}
				res.Failed++
				zap.L().Warn("notice extraction failed",
					zap.String("notice_id", n.ID), zap.Error(r.Err))
			}
			return nil
		})
	}
	return g.Wait()
}

func (o *Orchestrator) runMail(ctx context.Context, machine *extract.Machine, res *Result) error {
	engine := merge.NewEngine(o.store)

	msgs, err := o.mail.Unread(ctx)
	if err != nil {
		return eris.Wrap(err, "ingest: fetch mail")
	}

	// Marked read only after the outcome is durable, so a crash mid-run
	// leaves the message to be retried.
	var done []string
	for _, msg := range msgs {
		r := machine.ProcessMail(ctx, msg)
		res.MailProcessed++

		switch r.State {
		case extract.StateFormatted:
			ev, err := engine.MergeOffer(ctx, r.Offer)
			if err != nil {
				res.Failed++
				zap.L().Warn("offer merge failed",
					zap.String("mail_id", msg.ID), zap.Error(err))
				continue
			}
			res.OffersMerged++
			// The engine persisted the event before the record, so by the
			// time ev is non-nil the fact is durable.
			if ev != nil {
				res.Events = append(res.Events, ev)
			}
			done = append(done, msg.ID)
		case extract.StateRejected:
			res.Rejected++
			done = append(done, msg.ID)
			zap.L().Debug("mail rejected",
				zap.String("mail_id", msg.ID), zap.String("reason", r.RejectReason))
		case extract.StateFailed:
			if eris.Is(r.Err, extract.ErrPoolExhausted) {
				if len(done) > 0 {
					if merr := o.mail.MarkRead(ctx, done); merr != nil {
						zap.L().Warn("mark read failed", zap.Error(merr))
					}
				}
				return eris.Wrap(r.Err, "ingest: aborting run")
			}
			res.Failed++
			zap.L().Warn("mail extraction failed",
				zap.String("mail_id", msg.ID), zap.Error(r.Err))
		}
	}

	if len(done) > 0 {
		if err := o.mail.MarkRead(ctx, done); err != nil {
			// Reprocessing a marked-unread message is idempotent at the
			// merge layer, so this is not fatal.
			zap.L().Warn("mark read failed", zap.Error(err))
		}
	}
	return nil
}
