// Package memstore provides an in-memory implementation of assessment.Store.
package memstore

import (
	"context"
	"sync"

	"github.com/linnemanlabs/acuity/internal/assessment"
)

// Store holds assessments in memory. Suitable for dev/testing.
type Store struct {
	mu          sync.RWMutex
	assessments map[string]*assessment.Assessment // assessment ID -> record
	seen        map[string]string                 // snapshot fingerprint -> assessment ID (dedup)
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		assessments: make(map[string]*assessment.Assessment),
		seen:        make(map[string]string),
	}
}

// Get retrieves an assessment by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*assessment.Assessment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assessments[id]
	if !ok {
		return nil, false, nil
	}
	cp := *a
	return &cp, true, nil
}

// GetByFingerprint retrieves an assessment by snapshot fingerprint, for deduplication. Returns a copy.
func (s *Store) GetByFingerprint(_ context.Context, fp string) (*assessment.Assessment, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.seen[fp]
	if !ok {
		return nil, false, nil
	}
	a := s.assessments[id]
	cp := *a
	return &cp, true, nil
}

// Put stores a copy of the assessment.
func (s *Store) Put(_ context.Context, a *assessment.Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.assessments[a.ID] = &cp
	if a.Fingerprint != "" {
		s.seen[a.Fingerprint] = a.ID
	}
	return nil
}
