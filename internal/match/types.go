// SPDX-License-Identifier: MIT

package match

import (
	"sync"
	"time"
)

// Record links one stream to at most one scheduled event. Records are
// superseded, never mutated in place: recomputing a match produces a
// fresh Record under the same fingerprint.
type Record struct {
	Fingerprint   string    `json:"fingerprint"`
	StreamRawName string    `json:"stream_raw_name"`
	StreamRef     string    `json:"stream_ref,omitempty"`
	EventID       string    `json:"event_id,omitempty"`
	Sport         string    `json:"sport,omitempty"`
	League        string    `json:"league,omitempty"`
	EventStart    time.Time `json:"event_start"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
	MatchedAt     time.Time `json:"matched_at"`
	Stale         bool      `json:"stale"`
}

// RecordStore persists match records keyed by fingerprint, so stream
// identity survives restarts. Implementations must be safe for
// concurrent use; the engine serializes writes regardless.
type RecordStore interface {
	Get(fingerprint string) (*Record, bool, error)
	Put(rec *Record) error
	All() ([]*Record, error)
	Delete(fingerprint string) error
}

// memoryStore is a map-backed RecordStore for tests and cache-less
// operation.
type memoryStore struct {
	mu   sync.RWMutex
	recs map[string]*Record
}

// NewMemoryStore returns an in-memory RecordStore.
func NewMemoryStore() RecordStore {
	return &memoryStore{recs: make(map[string]*Record)}
}

func (s *memoryStore) Get(fp string) (*Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recs[fp]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

func (s *memoryStore) Put(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *rec
	s.recs[rec.Fingerprint] = &cp
	return nil
}

func (s *memoryStore) All() ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Record, 0, len(s.recs))
	for _, r := range s.recs {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memoryStore) Delete(fp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recs, fp)
	return nil
}
