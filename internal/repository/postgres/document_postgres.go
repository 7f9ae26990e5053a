package postgres

import (
	"context"
	"database/sql"
	"time"

	"custodyapi/internal/model"
	"custodyapi/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, incident_id, document_type, title, verification_code, content_hash,
		content_type, storage_path, size, generated_by, created_at, is_verified, revoked_at`

// Create inserts a new document row and returns the stored record.
// The UNIQUE constraint on verification_code makes this the atomic code allocation.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, incident_id, document_type, title, verification_code, content_hash,
			content_type, storage_path, size, generated_by, created_at, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		nullString(doc.IncidentID),
		string(doc.DocumentType),
		doc.Title,
		doc.VerificationCode,
		doc.ContentHash,
		doc.ContentType,
		doc.StoragePath,
		doc.Size,
		doc.GeneratedBy,
		doc.CreatedAt,
		doc.IsVerified,
	)
	out, err := scanDocument(row)
	if err != nil {
		return nil, translate(err, "insert document")
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, translate(err, "find document by id")
	}
	return d, nil
}

// FindByCode fetches the document issued under a verification code.
func (r *DocumentPostgres) FindByCode(ctx context.Context, code string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE verification_code = $1`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, code))
	if err != nil {
		return nil, translate(err, "find document by code")
	}
	return d, nil
}

// List returns documents using LIMIT/OFFSET pagination and a total count.
func (r *DocumentPostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Document], error) {
	const qCount = `SELECT COUNT(*) FROM documents`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, translate(err, "count documents")
	}

	const qList = `SELECT ` + documentColumns + `
		FROM documents
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, translate(err, "list documents")
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, translate(err, "scan document")
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "iterate documents")
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Revoke clears is_verified and records the first revocation time.
func (r *DocumentPostgres) Revoke(ctx context.Context, id string, at time.Time) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET is_verified = FALSE, revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
		RETURNING ` + documentColumns
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id, at))
	if err != nil {
		return nil, translate(err, "revoke document")
	}
	return d, nil
}

func scanDocument(s scanner) (*model.Document, error) {
	var (
		d          model.Document
		docType    string
		incidentID sql.NullString
		revokedAt  sql.NullTime
	)
	if err := s.Scan(
		&d.ID,
		&incidentID,
		&docType,
		&d.Title,
		&d.VerificationCode,
		&d.ContentHash,
		&d.ContentType,
		&d.StoragePath,
		&d.Size,
		&d.GeneratedBy,
		&d.CreatedAt,
		&d.IsVerified,
		&revokedAt,
	); err != nil {
		return nil, err
	}
	d.DocumentType = model.DocumentType(docType)
	if incidentID.Valid {
		v := incidentID.String
		d.IncidentID = &v
	}
	if revokedAt.Valid {
		v := revokedAt.Time
		d.RevokedAt = &v
	}
	return &d, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
