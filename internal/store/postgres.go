package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/placementwire/ingest/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock implements it
// for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, mainly for tests.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS notices (
	id          TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	category    TEXT NOT NULL,
	title       TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	enrichment TEXT NOT NULL DEFAULT 'basic',
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS offers (
	company_key TEXT PRIMARY KEY,
	record      JSONB NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	company    TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notices_fingerprint ON notices(fingerprint);
CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) NoticeIDs(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT id FROM notices`)
}

func (s *PostgresStore) NoticeFingerprints(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT fingerprint FROM notices`)
}

func (s *PostgresStore) stringColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: query %s", query)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "postgres: scan")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate")
}

func (s *PostgresStore) InsertNotice(ctx context.Context, n *model.FormattedNotice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal notice")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO notices (id, fingerprint, category, title, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		n.ID, n.Fingerprint(), string(n.Category), n.Title, payload, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert notice %s", n.ID)
}

func (s *PostgresStore) UpsertJob(ctx context.Context, job *model.JobRecord) error {
	record, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal job")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO jobs (id, company, enrichment, record, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
			company = EXCLUDED.company,
			enrichment = EXCLUDED.enrichment,
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at`,
		job.ID, job.Company, string(job.Enrichment), record, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: upsert job %s", job.ID)
}

func (s *PostgresStore) GetJob(ctx context.Context, id string) (*model.JobRecord, error) {
	var record []byte
	err := s.pool.QueryRow(ctx, `SELECT record FROM jobs WHERE id = $1`, id).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get job %s", id)
	}
	var job model.JobRecord
	if err := json.Unmarshal(record, &job); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal job")
	}
	return &job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context) ([]*model.JobRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM jobs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list jobs")
	}
	defer rows.Close()

	var jobs []*model.JobRecord
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan job")
		}
		var job model.JobRecord
		if err := json.Unmarshal(record, &job); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal job")
		}
		jobs = append(jobs, &job)
	}
	return jobs, eris.Wrap(rows.Err(), "postgres: list jobs iterate")
}

func (s *PostgresStore) GetOffer(ctx context.Context, company string) (*model.CompanyOfferRecord, error) {
	var record []byte
	err := s.pool.QueryRow(ctx,
		`SELECT record FROM offers WHERE company_key = $1`, offerKey(company)).Scan(&record)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get offer %s", company)
	}
	var rec model.CompanyOfferRecord
	if err := json.Unmarshal(record, &rec); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal offer")
	}
	return &rec, nil
}

func (s *PostgresStore) PutOffer(ctx context.Context, rec *model.CompanyOfferRecord) error {
	record, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal offer")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO offers (company_key, record, updated_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (company_key) DO UPDATE SET
			record = EXCLUDED.record,
			updated_at = EXCLUDED.updated_at`,
		offerKey(rec.Company), record, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: put offer %s", rec.Company)
}

func (s *PostgresStore) ListOffers(ctx context.Context) ([]*model.CompanyOfferRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT record FROM offers ORDER BY updated_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list offers")
	}
	defer rows.Close()

	var recs []*model.CompanyOfferRecord
	for rows.Next() {
		var record []byte
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "postgres: scan offer")
		}
		var rec model.CompanyOfferRecord
		if err := json.Unmarshal(record, &rec); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal offer")
		}
		recs = append(recs, &rec)
	}
	return recs, eris.Wrap(rows.Err(), "postgres: list offers iterate")
}

func (s *PostgresStore) InsertEvent(ctx context.Context, ev *model.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal event")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO events (id, type, company, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, string(ev.Type), ev.Company, payload, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: insert event %s", ev.ID)
}

func (s *PostgresStore) ListEvents(ctx context.Context, limit int) ([]*model.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM events ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list events")
	}
	defer rows.Close()

	var events []*model.ChangeEvent
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan event")
		}
		var ev model.ChangeEvent
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal event")
		}
		events = append(events, &ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: list events iterate")
}
