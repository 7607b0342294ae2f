// Package merge folds extracted offers into per-company records. Merging is
// additive: rosters only grow and packages only increase, so replayed or
// re-forwarded mails cannot regress a record.
package merge

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/placementwire/ingest/internal/model"
)

// Store persists company offer records and their change events. GetOffer
// returns nil, nil when the company has no record yet. InsertEvent must be
// idempotent on the event ID.
type Store interface {
	GetOffer(ctx context.Context, company string) (*model.CompanyOfferRecord, error)
	PutOffer(ctx context.Context, rec *model.CompanyOfferRecord) error
	InsertEvent(ctx context.Context, ev *model.ChangeEvent) error
}

// Engine merges offers under a per-company lock so concurrent mails for the
// same company serialize instead of clobbering each other.
type Engine struct {
	store Store

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	now   func() time.Time
}

// NewEngine returns a merge engine over the given store.
func NewEngine(store Store) *Engine {
	return &Engine{
		store: store,
		locks: make(map[string]*sync.Mutex),
		now:   time.Now,
	}
}

func (e *Engine) companyLock(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	return l
}

// MergeOffer folds an extracted offer into the company's record and returns
// the resulting change event, already persisted. A nil event means the offer
// added nothing new and no notification should go out.
//
// The event is inserted before the record, so a failure between the two
// leaves the record unmerged and a replay regenerates the same event ID,
// which the store's idempotent insert collapses.
func (e *Engine) MergeOffer(ctx context.Context, offer *model.Offer) (*model.ChangeEvent, error) {
	company := strings.TrimSpace(offer.Company)
	if company == "" {
		return nil, eris.New("offer has no company")
	}
	key := strings.ToLower(company)

	lock := e.companyLock(key)
	lock.Lock()
	defer lock.Unlock()

	rec, err := e.store.GetOffer(ctx, company)
	if err != nil {
		return nil, eris.Wrapf(err, "loading offer record for %q", company)
	}

	if rec == nil {
		rec = e.newRecord(offer)
		ev := &model.ChangeEvent{
			ID:            eventID(model.EventNewOffer, key, rec.Students),
			Type:          model.EventNewOffer,
			Company:       company,
			Record:        rec,
			NewStudents:   append([]model.Student(nil), rec.Students...),
			TotalStudents: len(rec.Students),
		}
		if err := e.store.InsertEvent(ctx, ev); err != nil {
			return nil, eris.Wrapf(err, "recording offer event for %q", company)
		}
		if err := e.store.PutOffer(ctx, rec); err != nil {
			return nil, eris.Wrapf(err, "saving offer record for %q", company)
		}
		zap.L().Info("new company offer",
			zap.String("company", company),
			zap.Int("students", len(rec.Students)))
		return ev, nil
	}

	added := e.mergeInto(rec, offer)
	rec.TotalOffers = len(rec.Students)
	rec.UpdatedAt = e.now()

	if len(added) == 0 {
		if err := e.store.PutOffer(ctx, rec); err != nil {
			return nil, eris.Wrapf(err, "saving offer record for %q", company)
		}
		zap.L().Debug("offer merge added no new students",
			zap.String("company", company))
		return nil, nil
	}

	ev := &model.ChangeEvent{
		ID:            eventID(model.EventUpdateOffer, key, added),
		Type:          model.EventUpdateOffer,
		Company:       company,
		Record:        rec,
		NewStudents:   added,
		TotalStudents: len(rec.Students),
	}
	if err := e.store.InsertEvent(ctx, ev); err != nil {
		return nil, eris.Wrapf(err, "recording offer event for %q", company)
	}
	if err := e.store.PutOffer(ctx, rec); err != nil {
		return nil, eris.Wrapf(err, "saving offer record for %q", company)
	}

	zap.L().Info("company offer updated",
		zap.String("company", company),
		zap.Int("new_students", len(added)),
		zap.Int("total_students", len(rec.Students)))
	return ev, nil
}

// eventNamespace scopes derived change-event IDs.
var eventNamespace = uuid.MustParse("9b1c6e5a-2f64-4c07-8a4d-5b0e3f6d2a18")

// eventID derives the event's identity from the fact it reports. Students
// only ever join a roster once, so (type, company, added-student keys) is
// unique per fact and identical across replays.
func eventID(typ model.ChangeEventType, companyKey string, students []model.Student) string {
	keys := make([]string, 0, len(students))
	for _, s := range students {
		keys = append(keys, strings.ToLower(s.Key()))
	}
	sort.Strings(keys)
	data := string(typ) + "|" + companyKey + "|" + strings.Join(keys, ",")
	return uuid.NewSHA1(eventNamespace, []byte(data)).String()
}

func (e *Engine) newRecord(offer *model.Offer) *model.CompanyOfferRecord {
	rec := &model.CompanyOfferRecord{
		Company:        strings.TrimSpace(offer.Company),
		JobLocation:    offer.JobLocation,
		JoiningDate:    offer.JoiningDate,
		AdditionalInfo: offer.AdditionalInfo,
		UpdatedAt:      e.now(),
	}
	for _, role := range offer.Roles {
		UpsertRole(&rec.Roles, role)
	}
	for _, s := range offer.Students {
		UpsertStudent(&rec.Students, s)
	}
	rec.TotalOffers = len(rec.Students)
	return rec
}

// mergeInto applies the offer to an existing record and returns the students
// that were not on the roster before.
func (e *Engine) mergeInto(rec *model.CompanyOfferRecord, offer *model.Offer) []model.Student {
	for _, role := range offer.Roles {
		UpsertRole(&rec.Roles, role)
	}

	var added []model.Student
	for _, s := range offer.Students {
		if UpsertStudent(&rec.Students, s) {
			added = append(added, s)
		}
	}

	if rec.JobLocation == "" {
		rec.JobLocation = offer.JobLocation
	}
	if rec.JoiningDate == "" {
		rec.JoiningDate = offer.JoiningDate
	}
	if offer.AdditionalInfo != "" && !strings.Contains(rec.AdditionalInfo, offer.AdditionalInfo) {
		if rec.AdditionalInfo != "" {
			rec.AdditionalInfo += "\n"
		}
		rec.AdditionalInfo += offer.AdditionalInfo
	}
	return added
}

// UpsertRole merges a role into the slice, matching case-insensitively on
// the role name, and reports whether the slice changed. An existing role's
// package only moves upward; when the package is replaced its breakdown is
// replaced with it, otherwise details only fill in when absent.
func UpsertRole(roles *[]model.RolePackage, in model.RolePackage) bool {
	name := strings.TrimSpace(in.Role)
	for i := range *roles {
		cur := &(*roles)[i]
		if !strings.EqualFold(strings.TrimSpace(cur.Role), name) {
			continue
		}
		changed := false
		if in.Package != nil && (cur.Package == nil || *in.Package > *cur.Package) {
			cur.Package = in.Package
			// A higher package supersedes the old breakdown text too.
			if in.PackageDetails != "" {
				cur.PackageDetails = in.PackageDetails
			}
			changed = true
		}
		if cur.PackageDetails == "" && in.PackageDetails != "" {
			cur.PackageDetails = in.PackageDetails
			changed = true
		}
		return changed
	}
	*roles = append(*roles, in)
	return true
}

// UpsertStudent merges a student into the roster, matching on Key. It
// reports whether the student is new. Existing entries gain missing fields
// and their package only moves upward.
func UpsertStudent(roster *[]model.Student, in model.Student) bool {
	key := in.Key()
	if key == "" {
		return false
	}
	for i := range *roster {
		cur := &(*roster)[i]
		if !strings.EqualFold(cur.Key(), key) {
			continue
		}
		if cur.Name == "" {
			cur.Name = in.Name
		}
		if cur.Enrollment == "" {
			cur.Enrollment = in.Enrollment
		}
		if cur.Email == "" {
			cur.Email = in.Email
		}
		if cur.Role == "" {
			cur.Role = in.Role
		}
		if in.Package != nil && (cur.Package == nil || *in.Package > *cur.Package) {
			cur.Package = in.Package
		}
		return false
	}
	*roster = append(*roster, in)
	return true
}
