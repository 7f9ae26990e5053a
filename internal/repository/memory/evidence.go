// Package memory provides process-local repository implementations with the same
// conditional-write semantics as the postgres package. They back BACKEND=memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"custodyapi/internal/model"
	"custodyapi/internal/repository"
)

// EvidenceStore keeps one slice per incident, indexed by block_index-1.
type EvidenceStore struct {
	mu     sync.RWMutex
	chains map[string][]model.EvidenceRecord
}

// NewEvidenceStore returns an empty store.
func NewEvidenceStore() *EvidenceStore {
	return &EvidenceStore{chains: make(map[string][]model.EvidenceRecord)}
}

var _ repository.EvidenceRepository = (*EvidenceStore)(nil)

func (s *EvidenceStore) Head(ctx context.Context, incidentID string) (repository.ChainHead, error) {
	if err := ctx.Err(); err != nil {
		return repository.ChainHead{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[incidentID]
	if len(chain) == 0 {
		return repository.ChainHead{ContentHash: model.NoPreviousHash}, nil
	}
	last := chain[len(chain)-1]
	return repository.ChainHead{BlockIndex: last.BlockIndex, ContentHash: last.ContentHash}, nil
}

// Insert accepts rec only when it fills the next free slot of its chain.
func (s *EvidenceStore) Insert(ctx context.Context, rec *model.EvidenceRecord) (*model.EvidenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	chain := s.chains[rec.IncidentID]
	if rec.BlockIndex <= len(chain) {
		return nil, fmt.Errorf("insert evidence %s: %w", rec.EvidenceID, repository.ErrConflict)
	}
	if rec.BlockIndex != len(chain)+1 {
		return nil, fmt.Errorf("insert evidence %s: block index %d leaves a gap after %d", rec.EvidenceID, rec.BlockIndex, len(chain))
	}
	stored := cloneEvidence(*rec)
	s.chains[rec.IncidentID] = append(chain, stored)
	out := cloneEvidence(stored)
	return &out, nil
}

func (s *EvidenceStore) ListByIncident(ctx context.Context, incidentID string) ([]model.EvidenceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := s.chains[incidentID]
	items := make([]model.EvidenceRecord, len(chain))
	for i, rec := range chain {
		items[i] = cloneEvidence(rec)
	}
	return items, nil
}

func (s *EvidenceStore) MarkVerified(ctx context.Context, incidentID string, validThrough int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.chains[incidentID] {
		rec := &s.chains[incidentID][i]
		rec.Verified = rec.BlockIndex <= validThrough
	}
	return nil
}

func cloneEvidence(rec model.EvidenceRecord) model.EvidenceRecord {
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec
}
