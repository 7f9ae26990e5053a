package repository

import (
	"context"
	"time"

	"custodyapi/internal/model"
)

// DocumentRepository defines data access for issued documents.
// Persistence only. Documents are never deleted.
type DocumentRepository interface {
	// Create inserts a new document record.
	// It returns ErrConflict when the verification code (or id) is already taken,
	// which makes it the atomic check-and-insert used for code allocation.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// FindByCode returns the document issued under a verification code.
	FindByCode(ctx context.Context, code string) (*model.Document, error)

	// List returns a paginated list of documents and total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Document], error)

	// Revoke clears is_verified. revoked_at is only set the first time.
	// Revoking an already revoked document succeeds and changes nothing.
	Revoke(ctx context.Context, id string, at time.Time) (*model.Document, error)
}
