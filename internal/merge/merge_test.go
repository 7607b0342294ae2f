package merge

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placementwire/ingest/internal/model"
)

type memStore struct {
	mu     sync.Mutex
	recs   map[string]*model.CompanyOfferRecord
	events map[string]*model.ChangeEvent
}

func newMemStore() *memStore {
	return &memStore{
		recs:   make(map[string]*model.CompanyOfferRecord),
		events: make(map[string]*model.ChangeEvent),
	}
}

func (m *memStore) GetOffer(_ context.Context, company string) (*model.CompanyOfferRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[strings.ToLower(company)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.Roles = append([]model.RolePackage(nil), rec.Roles...)
	cp.Students = append([]model.Student(nil), rec.Students...)
	return &cp, nil
}

func (m *memStore) PutOffer(_ context.Context, rec *model.CompanyOfferRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[strings.ToLower(rec.Company)] = rec
	return nil
}

func (m *memStore) InsertEvent(_ context.Context, ev *model.ChangeEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Insert-if-absent on ID, matching the SQL stores.
	if _, ok := m.events[ev.ID]; ok {
		return nil
	}
	cp := *ev
	m.events[ev.ID] = &cp
	return nil
}

func (m *memStore) eventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// flakyStore fails a configurable number of writes before behaving normally.
type flakyStore struct {
	*memStore
	failEventInserts int
	failPuts         int
}

func (f *flakyStore) InsertEvent(ctx context.Context, ev *model.ChangeEvent) error {
	if f.failEventInserts > 0 {
		f.failEventInserts--
		return eris.New("event insert unavailable")
	}
	return f.memStore.InsertEvent(ctx, ev)
}

func (f *flakyStore) PutOffer(ctx context.Context, rec *model.CompanyOfferRecord) error {
	if f.failPuts > 0 {
		f.failPuts--
		return eris.New("offer write unavailable")
	}
	return f.memStore.PutOffer(ctx, rec)
}

func fptr(v float64) *float64 { return &v }

func acmeOffer(students ...model.Student) *model.Offer {
	return &model.Offer{
		Company:     "Acme Corp",
		Roles:       []model.RolePackage{{Role: "SDE", Package: fptr(12)}},
		Students:    students,
		JobLocation: "Bengaluru",
	}
}

func TestMergeOfferNewCompany(t *testing.T) {
	e := NewEngine(newMemStore())
	ev, err := e.MergeOffer(context.Background(), acmeOffer(
		model.Student{Name: "Priya Sharma", Enrollment: "0101CS211001"},
	))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.EventNewOffer, ev.Type)
	assert.Equal(t, "Acme Corp", ev.Company)
	assert.Len(t, ev.NewStudents, 1)
	assert.Equal(t, 1, ev.TotalStudents)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, 1, ev.Record.TotalOffers)
}

func TestMergeOfferAddsNewStudents(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()

	_, err := e.MergeOffer(ctx, acmeOffer(
		model.Student{Name: "Priya Sharma", Enrollment: "0101CS211001"},
	))
	require.NoError(t, err)

	ev, err := e.MergeOffer(ctx, acmeOffer(
		model.Student{Name: "Priya Sharma", Enrollment: "0101CS211001"},
		model.Student{Name: "Rahul Verma", Enrollment: "0101CS211002"},
	))
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.EventUpdateOffer, ev.Type)
	require.Len(t, ev.NewStudents, 1)
	assert.Equal(t, "Rahul Verma", ev.NewStudents[0].Name)
	assert.Equal(t, 2, ev.TotalStudents)
}

func TestMergeOfferIdempotentReplay(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()
	offer := acmeOffer(model.Student{Name: "Priya Sharma", Enrollment: "0101CS211001"})

	_, err := e.MergeOffer(ctx, offer)
	require.NoError(t, err)

	// The same offer again adds nothing and emits no event.
	ev, err := e.MergeOffer(ctx, offer)
	require.NoError(t, err)
	assert.Nil(t, ev)
}

func TestMergeOfferCompanyKeyCaseInsensitive(t *testing.T) {
	store := newMemStore()
	e := NewEngine(store)
	ctx := context.Background()

	_, err := e.MergeOffer(ctx, acmeOffer(model.Student{Name: "Priya Sharma"}))
	require.NoError(t, err)

	shouted := acmeOffer(model.Student{Name: "Rahul Verma"})
	shouted.Company = "ACME CORP"
	ev, err := e.MergeOffer(ctx, shouted)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.EventUpdateOffer, ev.Type)
	assert.Equal(t, 2, ev.TotalStudents)
}

func TestMergeOfferMissingCompany(t *testing.T) {
	e := NewEngine(newMemStore())
	_, err := e.MergeOffer(context.Background(), &model.Offer{Company: "  "})
	require.Error(t, err)
}

func TestUpsertRoleMonotonicPackage(t *testing.T) {
	roles := []model.RolePackage{{Role: "SDE", Package: fptr(12)}}

	UpsertRole(&roles, model.RolePackage{Role: "sde", Package: fptr(10)})
	require.Len(t, roles, 1)
	assert.Equal(t, 12.0, *roles[0].Package)

	UpsertRole(&roles, model.RolePackage{Role: "SDE", Package: fptr(15)})
	assert.Equal(t, 15.0, *roles[0].Package)

	UpsertRole(&roles, model.RolePackage{Role: "Analyst", Package: fptr(8)})
	assert.Len(t, roles, 2)
}

func TestUpsertRoleFillsDetails(t *testing.T) {
	roles := []model.RolePackage{{Role: "SDE"}}
	UpsertRole(&roles, model.RolePackage{Role: "SDE", Package: fptr(12), PackageDetails: "12 LPA fixed"})
	assert.Equal(t, 12.0, *roles[0].Package)
	assert.Equal(t, "12 LPA fixed", roles[0].PackageDetails)
}

func TestUpsertRoleHigherPackageReplacesDetails(t *testing.T) {
	roles := []model.RolePackage{{Role: "SDE", Package: fptr(10), PackageDetails: "10 LPA flat"}}

	changed := UpsertRole(&roles, model.RolePackage{
		Role: "SDE", Package: fptr(12), PackageDetails: "12 LPA = 9 base + 3 bonus",
	})
	assert.True(t, changed)
	assert.Equal(t, 12.0, *roles[0].Package)
	assert.Equal(t, "12 LPA = 9 base + 3 bonus", roles[0].PackageDetails)

	// A lower package leaves both the figure and its breakdown alone.
	changed = UpsertRole(&roles, model.RolePackage{
		Role: "SDE", Package: fptr(8), PackageDetails: "8 LPA",
	})
	assert.False(t, changed)
	assert.Equal(t, 12.0, *roles[0].Package)
	assert.Equal(t, "12 LPA = 9 base + 3 bonus", roles[0].PackageDetails)
}

func TestUpsertRoleReportsChanges(t *testing.T) {
	var roles []model.RolePackage
	assert.True(t, UpsertRole(&roles, model.RolePackage{Role: "SDE"}))
	assert.False(t, UpsertRole(&roles, model.RolePackage{Role: "sde"}))
	assert.True(t, UpsertRole(&roles, model.RolePackage{Role: "SDE", Package: fptr(10)}))
}

func TestUpsertStudentMatchesOnEnrollment(t *testing.T) {
	roster := []model.Student{{Name: "Priya Sharma", Enrollment: "0101CS211001"}}

	added := UpsertStudent(&roster, model.Student{
		Name: "Priya S", Enrollment: "0101CS211001",
		Email: "priya@example.edu", Package: fptr(12),
	})
	assert.False(t, added)
	require.Len(t, roster, 1)
	assert.Equal(t, "Priya Sharma", roster[0].Name)
	assert.Equal(t, "priya@example.edu", roster[0].Email)
	assert.Equal(t, 12.0, *roster[0].Package)
}

func TestUpsertStudentPackageOnlyIncreases(t *testing.T) {
	roster := []model.Student{{Name: "Priya", Enrollment: "e1", Package: fptr(14)}}
	UpsertStudent(&roster, model.Student{Enrollment: "e1", Package: fptr(10)})
	assert.Equal(t, 14.0, *roster[0].Package)
}

func TestUpsertStudentFallsBackToName(t *testing.T) {
	roster := []model.Student{{Name: "Rahul Verma"}}
	added := UpsertStudent(&roster, model.Student{Name: "rahul verma", Role: "SDE"})
	assert.False(t, added)
	assert.Equal(t, "SDE", roster[0].Role)
}

func TestUpsertStudentIgnoresEmptyKey(t *testing.T) {
	var roster []model.Student
	added := UpsertStudent(&roster, model.Student{})
	assert.False(t, added)
	assert.Empty(t, roster)
}

func TestMergeOfferFillsMissingRecordFields(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()

	first := acmeOffer(model.Student{Name: "Priya", Enrollment: "e1"})
	first.JobLocation = ""
	_, err := e.MergeOffer(ctx, first)
	require.NoError(t, err)

	second := acmeOffer(model.Student{Name: "Rahul", Enrollment: "e2"})
	second.JoiningDate = "July 2027"
	second.AdditionalInfo = "Joining bonus applicable"
	ev, err := e.MergeOffer(ctx, second)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, "Bengaluru", ev.Record.JobLocation)
	assert.Equal(t, "July 2027", ev.Record.JoiningDate)
	assert.Contains(t, ev.Record.AdditionalInfo, "Joining bonus")
}

func TestMergeOfferEventInsertFailureLeavesRecordUnmerged(t *testing.T) {
	mem := newMemStore()
	e := NewEngine(&flakyStore{memStore: mem, failEventInserts: 1})
	ctx := context.Background()
	offer := acmeOffer(model.Student{Name: "Priya Sharma", Enrollment: "0101CS211001"})

	_, err := e.MergeOffer(ctx, offer)
	require.Error(t, err)

	// The record must not be persisted ahead of its event, otherwise a
	// replay would merge no new students and the fact would never surface.
	rec, err := mem.GetOffer(ctx, "Acme Corp")
	require.NoError(t, err)
	assert.Nil(t, rec)

	ev, err := e.MergeOffer(ctx, offer)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, model.EventNewOffer, ev.Type)
	assert.Equal(t, 1, mem.eventCount())
}

func TestMergeOfferReplayAfterRecordWriteFailure(t *testing.T) {
	mem := newMemStore()
	e := NewEngine(&flakyStore{memStore: mem, failPuts: 1})
	ctx := context.Background()
	offer := acmeOffer(model.Student{Name: "Priya Sharma", Enrollment: "0101CS211001"})

	_, err := e.MergeOffer(ctx, offer)
	require.Error(t, err)
	assert.Equal(t, 1, mem.eventCount())

	// The replay derives the same event ID, so the stored events do not
	// duplicate while the record catches up.
	ev, err := e.MergeOffer(ctx, offer)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, 1, mem.eventCount())

	rec, err := mem.GetOffer(ctx, "Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.TotalOffers)
}

func TestEventIDStableForFact(t *testing.T) {
	students := []model.Student{
		{Name: "Rahul Verma", Enrollment: "0101CS211002"},
		{Name: "Priya Sharma", Enrollment: "0101CS211001"},
	}
	reordered := []model.Student{students[1], students[0]}

	assert.Equal(t,
		eventID(model.EventNewOffer, "acme corp", students),
		eventID(model.EventNewOffer, "acme corp", reordered))
	assert.NotEqual(t,
		eventID(model.EventNewOffer, "acme corp", students),
		eventID(model.EventUpdateOffer, "acme corp", students))
	assert.NotEqual(t,
		eventID(model.EventNewOffer, "acme corp", students),
		eventID(model.EventNewOffer, "globex", students))
}

func TestMergeOfferConcurrentSameCompany(t *testing.T) {
	e := NewEngine(newMemStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := model.Student{Name: "Student", Enrollment: string(rune('a' + i))}
			_, err := e.MergeOffer(ctx, acmeOffer(s))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, err := e.store.GetOffer(ctx, "Acme Corp")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Len(t, rec.Students, 10)
	assert.Equal(t, 10, rec.TotalOffers)
}
