// Package store persists notices, job records, company offer records, and
// change events behind one interface with SQLite and Postgres drivers.
package store

import (
	"context"

	"github.com/placementwire/ingest/internal/model"
)

// Store defines the persistence interface for the ingestion pipeline.
// InsertNotice is insert-if-absent; PutOffer and UpsertJob are upserts so
// replayed batches stay idempotent.
type Store interface {
	// Identity sets, loaded once per run.
	NoticeIDs(ctx context.Context) ([]string, error)
	NoticeFingerprints(ctx context.Context) ([]string, error)

	// Notices
	InsertNotice(ctx context.Context, n *model.FormattedNotice) error

	// Job records
	UpsertJob(ctx context.Context, job *model.JobRecord) error
	GetJob(ctx context.Context, id string) (*model.JobRecord, error)
	ListJobs(ctx context.Context) ([]*model.JobRecord, error)

	// Company offer aggregates
	GetOffer(ctx context.Context, company string) (*model.CompanyOfferRecord, error)
	PutOffer(ctx context.Context, rec *model.CompanyOfferRecord) error
	ListOffers(ctx context.Context) ([]*model.CompanyOfferRecord, error)

	// Change events
	InsertEvent(ctx context.Context, ev *model.ChangeEvent) error
	ListEvents(ctx context.Context, limit int) ([]*model.ChangeEvent, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
