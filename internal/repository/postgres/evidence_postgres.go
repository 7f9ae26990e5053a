package postgres

import (
	"context"
	"database/sql"
	"errors"

	"custodyapi/internal/model"
	"custodyapi/internal/repository"
)

// EvidencePostgres is a PostgreSQL implementation of repository.EvidenceRepository.
// The (incident_id, block_index) primary key is what linearizes appends per incident.
type EvidencePostgres struct {
	db *sql.DB
}

// NewEvidencePostgres creates a new EvidencePostgres repository.
func NewEvidencePostgres(db *sql.DB) *EvidencePostgres {
	return &EvidencePostgres{db: db}
}

var _ repository.EvidenceRepository = (*EvidencePostgres)(nil)

const evidenceColumns = `evidence_id, incident_id, evidence_type, payload, content_hash, previous_hash,
		block_index, captured_by, captured_at, verified`

// Head returns the last record's index and hash, or the empty head.
func (r *EvidencePostgres) Head(ctx context.Context, incidentID string) (repository.ChainHead, error) {
	const q = `
		SELECT block_index, content_hash
		FROM evidence_records
		WHERE incident_id = $1
		ORDER BY block_index DESC
		LIMIT 1
	`
	var head repository.ChainHead
	err := r.db.QueryRowContext(ctx, q, incidentID).Scan(&head.BlockIndex, &head.ContentHash)
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ChainHead{ContentHash: model.NoPreviousHash}, nil
	}
	if err != nil {
		return repository.ChainHead{}, translate(err, "load chain head")
	}
	return head, nil
}

// Insert adds rec to the chain. A taken slot surfaces as repository.ErrConflict.
func (r *EvidencePostgres) Insert(ctx context.Context, rec *model.EvidenceRecord) (*model.EvidenceRecord, error) {
	const q = `
		INSERT INTO evidence_records (evidence_id, incident_id, evidence_type, payload, content_hash,
			previous_hash, block_index, captured_by, captured_at, verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + evidenceColumns
	row := r.db.QueryRowContext(ctx, q,
		rec.EvidenceID,
		rec.IncidentID,
		string(rec.EvidenceType),
		string(rec.Payload),
		rec.ContentHash,
		rec.PreviousHash,
		rec.BlockIndex,
		rec.CapturedBy,
		rec.CapturedAt,
		rec.Verified,
	)
	out, err := scanEvidence(row)
	if err != nil {
		return nil, translate(err, "insert evidence")
	}
	return out, nil
}

// ListByIncident returns the incident's chain ordered by block index.
func (r *EvidencePostgres) ListByIncident(ctx context.Context, incidentID string) ([]model.EvidenceRecord, error) {
	const q = `SELECT ` + evidenceColumns + `
		FROM evidence_records
		WHERE incident_id = $1
		ORDER BY block_index ASC`
	rows, err := r.db.QueryContext(ctx, q, incidentID)
	if err != nil {
		return nil, translate(err, "list evidence")
	}
	defer rows.Close()

	items := make([]model.EvidenceRecord, 0)
	for rows.Next() {
		rec, err := scanEvidence(rows)
		if err != nil {
			return nil, translate(err, "scan evidence")
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "iterate evidence")
	}
	return items, nil
}

// MarkVerified refreshes the advisory verified cache.
func (r *EvidencePostgres) MarkVerified(ctx context.Context, incidentID string, validThrough int) error {
	const q = `
		UPDATE evidence_records
		SET verified = (block_index <= $2)
		WHERE incident_id = $1 AND verified IS DISTINCT FROM (block_index <= $2)
	`
	if _, err := r.db.ExecContext(ctx, q, incidentID, validThrough); err != nil {
		return translate(err, "mark evidence verified")
	}
	return nil
}

func scanEvidence(s scanner) (*model.EvidenceRecord, error) {
	var (
		rec     model.EvidenceRecord
		evType  string
		payload []byte
	)
	if err := s.Scan(
		&rec.EvidenceID,
		&rec.IncidentID,
		&evType,
		&payload,
		&rec.ContentHash,
		&rec.PreviousHash,
		&rec.BlockIndex,
		&rec.CapturedBy,
		&rec.CapturedAt,
		&rec.Verified,
	); err != nil {
		return nil, err
	}
	rec.EvidenceType = model.EvidenceType(evType)
	rec.Payload = append([]byte(nil), payload...)
	return &rec, nil
}
