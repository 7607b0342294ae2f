package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/placementwire/ingest/internal/extract"
	"github.com/placementwire/ingest/internal/ingest"
	"github.com/placementwire/ingest/internal/store"
	"github.com/placementwire/ingest/pkg/mailbox"
	"github.com/placementwire/ingest/pkg/superset"
)

// pipelineEnv holds the initialized store, clients, and orchestrator needed
// by the run and serve commands.
type pipelineEnv struct {
	Store        store.Store
	Orchestrator *ingest.Orchestrator
	Mailbox      *mailbox.Mailbox // nil when mail fetch is disabled
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Mailbox != nil {
		_ = pe.Mailbox.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store and clients and builds the orchestrator.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	pool, err := extract.NewCredentialPool(cfg.Anthropic.Keys, nil)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	feed := superset.New(cfg.Feed)

	var mbox *mailbox.Mailbox
	if cfg.Pipeline.MailFetchEnabled {
		mbox, err = mailbox.Connect(ctx, cfg.Mailbox)
		if err != nil {
			// The notice leg still runs; offers resume next run.
			zap.L().Warn("mailbox connect failed, skipping mail leg", zap.Error(err))
		}
	}

	opts := ingest.Options{
		Store: st,
		Feed:  feed,
		Pool:  pool,
		Extract: extract.Config{
			Model:         cfg.Anthropic.Model,
			MaxTokens:     cfg.Anthropic.MaxTokens,
			CallTimeout:   cfg.Pipeline.CallTimeout(),
			MailThreshold: cfg.Pipeline.MailThreshold,
		},
		LinkerThreshold: cfg.Pipeline.LinkerThreshold,
		Concurrency:     cfg.Pipeline.Concurrency,
	}
	if mbox != nil {
		opts.Mail = mbox
	}

	return &pipelineEnv{
		Store:        st,
		Orchestrator: ingest.New(opts),
		Mailbox:      mbox,
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "placement.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &cfg.Store.Pool)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
