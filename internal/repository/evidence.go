package repository

import (
	"context"

	"custodyapi/internal/model"
)

// ChainHead is the last record of an incident's chain. An empty chain has
// BlockIndex 0 and ContentHash model.NoPreviousHash.
type ChainHead struct {
	BlockIndex  int
	ContentHash string
}

// EvidenceRepository persists evidence records. Rows are insert-only; the only
// permitted update is the advisory verified flag.
type EvidenceRepository interface {
	// Head returns the highest block index of the incident's chain and its content hash.
	Head(ctx context.Context, incidentID string) (ChainHead, error)

	// Insert stores rec if its (incident_id, block_index) slot is free.
	// It returns ErrConflict when the slot is already taken.
	Insert(ctx context.Context, rec *model.EvidenceRecord) (*model.EvidenceRecord, error)

	// ListByIncident returns every record of the incident ordered by block index.
	ListByIncident(ctx context.Context, incidentID string) ([]model.EvidenceRecord, error)

	// MarkVerified sets verified = (block_index <= validThrough) for the incident's records.
	MarkVerified(ctx context.Context, incidentID string, validThrough int) error
}
