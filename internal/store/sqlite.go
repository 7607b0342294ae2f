package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/placementwire/ingest/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS notices (
	id          TEXT PRIMARY KEY,
	fingerprint TEXT NOT NULL,
	category    TEXT NOT NULL,
	title       TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	company    TEXT NOT NULL,
	enrichment TEXT NOT NULL DEFAULT 'basic',
	record     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS offers (
	company_key TEXT PRIMARY KEY,
	record      TEXT NOT NULL,
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS events (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	company    TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_notices_fingerprint ON notices(fingerprint);
CREATE INDEX IF NOT EXISTS idx_jobs_company ON jobs(company);
CREATE INDEX IF NOT EXISTS idx_events_created_at ON events(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) NoticeIDs(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT id FROM notices`)
}

func (s *SQLiteStore) NoticeFingerprints(ctx context.Context) ([]string, error) {
	return s.stringColumn(ctx, `SELECT fingerprint FROM notices`)
}

func (s *SQLiteStore) stringColumn(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query %s", query)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate")
}

func (s *SQLiteStore) InsertNotice(ctx context.Context, n *model.FormattedNotice) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal notice")
	}
	// Insert-if-absent keeps replays idempotent.
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO notices (id, fingerprint, category, title, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		n.ID, n.Fingerprint(), string(n.Category), n.Title, string(payload), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert notice %s", n.ID)
}

func (s *SQLiteStore) UpsertJob(ctx context.Context, job *model.JobRecord) error {
	record, err := json.Marshal(job)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal job")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (id, company, enrichment, record, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			company = excluded.company,
			enrichment = excluded.enrichment,
			record = excluded.record,
			updated_at = excluded.updated_at`,
		job.ID, job.Company, string(job.Enrichment), string(record), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: upsert job %s", job.ID)
}

func (s *SQLiteStore) GetJob(ctx context.Context, id string) (*model.JobRecord, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM jobs WHERE id = ?`, id).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get job %s", id)
	}
	var job model.JobRecord
	if err := json.Unmarshal([]byte(record), &job); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal job")
	}
	return &job, nil
}

func (s *SQLiteStore) ListJobs(ctx context.Context) ([]*model.JobRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM jobs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list jobs")
	}
	defer rows.Close()

	var jobs []*model.JobRecord
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan job")
		}
		var job model.JobRecord
		if err := json.Unmarshal([]byte(record), &job); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal job")
		}
		jobs = append(jobs, &job)
	}
	return jobs, eris.Wrap(rows.Err(), "sqlite: list jobs iterate")
}

func (s *SQLiteStore) GetOffer(ctx context.Context, company string) (*model.CompanyOfferRecord, error) {
	var record string
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM offers WHERE company_key = ?`, offerKey(company)).Scan(&record)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get offer %s", company)
	}
	var rec model.CompanyOfferRecord
	if err := json.Unmarshal([]byte(record), &rec); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal offer")
	}
	return &rec, nil
}

func (s *SQLiteStore) PutOffer(ctx context.Context, rec *model.CompanyOfferRecord) error {
	record, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal offer")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO offers (company_key, record, updated_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (company_key) DO UPDATE SET
			record = excluded.record,
			updated_at = excluded.updated_at`,
		offerKey(rec.Company), string(record), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: put offer %s", rec.Company)
}

func (s *SQLiteStore) ListOffers(ctx context.Context) ([]*model.CompanyOfferRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM offers ORDER BY updated_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list offers")
	}
	defer rows.Close()

	var recs []*model.CompanyOfferRecord
	for rows.Next() {
		var record string
		if err := rows.Scan(&record); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan offer")
		}
		var rec model.CompanyOfferRecord
		if err := json.Unmarshal([]byte(record), &rec); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal offer")
		}
		recs = append(recs, &rec)
	}
	return recs, eris.Wrap(rows.Err(), "sqlite: list offers iterate")
}

func (s *SQLiteStore) InsertEvent(ctx context.Context, ev *model.ChangeEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal event")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (id, type, company, payload, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		ev.ID, string(ev.Type), ev.Company, string(payload), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert event %s", ev.ID)
}

func (s *SQLiteStore) ListEvents(ctx context.Context, limit int) ([]*model.ChangeEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM events ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list events")
	}
	defer rows.Close()

	var events []*model.ChangeEvent
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan event")
		}
		var ev model.ChangeEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal event")
		}
		events = append(events, &ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: list events iterate")
}

// offerKey normalizes a company name to the aggregate's unique key.
func offerKey(company string) string {
	return strings.ToLower(strings.TrimSpace(company))
}
