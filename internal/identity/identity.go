// Package identity tracks which notices have already been processed, both by
// provider ID and by content fingerprint, so reruns skip work they have
// already paid for.
package identity

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/placementwire/ingest/internal/model"
)

// Source provides the persisted identity sets. Implemented by the store.
type Source interface {
	NoticeIDs(ctx context.Context) ([]string, error)
	NoticeFingerprints(ctx context.Context) ([]string, error)
}

// Store is an in-memory view of known notice identities for one run.
type Store struct {
	mu           sync.RWMutex
	ids          map[string]struct{}
	fingerprints map[string]struct{}
}

// Load reads the known ID and fingerprint sets from src. Any read failure is
// returned as-is so the caller can abort the run rather than reprocess
// everything.
func Load(ctx context.Context, src Source) (*Store, error) {
	ids, err := src.NoticeIDs(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "loading notice IDs")
	}
	fps, err := src.NoticeFingerprints(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "loading notice fingerprints")
	}

	s := &Store{
		ids:          make(map[string]struct{}, len(ids)),
		fingerprints: make(map[string]struct{}, len(fps)),
	}
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
	for _, fp := range fps {
		s.fingerprints[fp] = struct{}{}
	}
	return s, nil
}

// NewEmpty returns a store with no known identities.
func NewEmpty() *Store {
	return &Store{
		ids:          make(map[string]struct{}),
		fingerprints: make(map[string]struct{}),
	}
}

// Seen reports whether the notice is already known by ID or by content
// fingerprint. A renamed or re-issued notice with identical content is
// still seen.
func (s *Store) Seen(n model.Notice) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ids[n.ID]; ok {
		return true
	}
	_, ok := s.fingerprints[n.Fingerprint()]
	return ok
}

// SeenID reports whether the raw identifier is already known.
func (s *Store) SeenID(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Record marks the notice as processed for the remainder of the run.
// Persistence happens separately through the store.
func (s *Store) Record(n model.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids[n.ID] = struct{}{}
	s.fingerprints[n.Fingerprint()] = struct{}{}
}

// Len returns the number of known notice IDs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}
