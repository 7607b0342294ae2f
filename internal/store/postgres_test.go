package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementwire/ingest/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresInsertNotice(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO notices`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n := &model.FormattedNotice{
		Notice:   model.Notice{ID: "n-1", Title: "Acme Shortlist"},
		Category: model.CategoryShortlisting,
	}
	require.NoError(t, s.InsertNotice(context.Background(), n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetOfferMissing(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT record FROM offers`).
		WithArgs("acme corp").
		WillReturnError(pgx.ErrNoRows)

	rec, err := s.GetOffer(context.Background(), "Acme Corp")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetOffer(t *testing.T) {
	s, mock := newMockStore(t)

	stored := &model.CompanyOfferRecord{Company: "Acme Corp", TotalOffers: 2}
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT record FROM offers`).
		WithArgs("acme corp").
		WillReturnRows(pgxmock.NewRows([]string{"record"}).AddRow(payload))

	rec, err := s.GetOffer(context.Background(), "Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.TotalOffers)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutOffer(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO offers`).
		WithArgs("acme corp", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.PutOffer(context.Background(),
		&model.CompanyOfferRecord{Company: "Acme Corp"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresNoticeIDs(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT id FROM notices`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("n-1").AddRow("n-2"))

	ids, err := s.NoticeIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"n-1", "n-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsertJob(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO jobs`).
		WithArgs("job-1", "Acme", "enriched", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.UpsertJob(context.Background(), &model.JobRecord{
		ID: "job-1", Company: "Acme", Enrichment: model.EnrichmentEnriched,
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListEvents(t *testing.T) {
	s, mock := newMockStore(t)

	ev := &model.ChangeEvent{ID: "ev-1", Type: model.EventNewOffer, Company: "Acme"}
	payload, err := json.Marshal(ev)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT payload FROM events`).
		WithArgs(50).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	events, err := s.ListEvents(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "ev-1", events[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
