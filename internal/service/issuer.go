package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"custodyapi/internal/digest"
	"custodyapi/internal/metrics"
	"custodyapi/internal/model"
	"custodyapi/internal/repository"
	"custodyapi/internal/storage"
)

const maxTitleLength = 500

// IssueRequest carries the rendered content of a report to issue.
// Filename is only used for the stored object's extension.
type IssueRequest struct {
	DocumentType model.DocumentType
	IncidentID   string
	Title        string
	Content      []byte
	ContentType  string
	Filename     string
	GeneratedBy  string
}

func (r *IssueRequest) validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DocumentType, validation.Required, validation.By(func(v any) error {
			if t, _ := v.(model.DocumentType); !t.Valid() {
				return fmt.Errorf("unknown document type %q", t)
			}
			return nil
		})),
		validation.Field(&r.IncidentID, validation.Length(0, 128)),
		validation.Field(&r.Title, validation.Required, validation.Length(1, maxTitleLength)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.GeneratedBy, validation.Required),
	)
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items []model.Document `json:"data"`
	Total int              `json:"total"`
}

// DocumentIssuer issues content-anchored documents and manages their lifecycle.
type DocumentIssuer interface {
	// Issue hashes the content, stores it, and records the document under a fresh
	// verification code. Stored content is removed again if the record cannot be saved.
	Issue(ctx context.Context, req IssueRequest) (*model.Document, error)

	// Revoke marks a document as no longer valid. Revoking twice is a no-op.
	Revoke(ctx context.Context, id string) (*model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id string) (*model.Document, error)

	// List returns documents using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*DocumentListResult, error)

	// VerificationURL is the public URL printed on, or QR-encoded into, the document.
	VerificationURL(code string) string
}

// IssuerOptions configures code allocation. Zero values fall back to defaults.
type IssuerOptions struct {
	Codes           CodeGenerator
	MaxCodeAttempts int
	PublicBaseURL   string
	Now             func() time.Time
}

type documentIssuer struct {
	store   storage.Storage
	repo    repository.DocumentRepository
	metrics *metrics.Integrity
	logger  *slog.Logger
	opts    IssuerOptions
}

// NewDocumentIssuer constructs a DocumentIssuer.
func NewDocumentIssuer(store storage.Storage, repo repository.DocumentRepository, m *metrics.Integrity, logger *slog.Logger, opts IssuerOptions) DocumentIssuer {
	if opts.Codes == nil {
		opts.Codes = NewCodeGenerator("LK")
	}
	if opts.MaxCodeAttempts <= 0 {
		opts.MaxCodeAttempts = 5
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &documentIssuer{
		store:   store,
		repo:    repo,
		metrics: m,
		logger:  logger.With("component", "issuer"),
		opts:    opts,
	}
}

func (s *documentIssuer) Issue(ctx context.Context, req IssueRequest) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "issuer.Issue", trace.WithAttributes(
		attribute.String("document.type", string(req.DocumentType)),
	))
	defer span.End()

	req.Title = strings.TrimSpace(req.Title)
	req.IncidentID = strings.TrimSpace(req.IncidentID)
	req.GeneratedBy = strings.TrimSpace(req.GeneratedBy)
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	contentHash := digest.Content(req.Content)

	// Generate object key using UUID + extension
	ext := filepath.Ext(req.Filename)
	if ext == "" {
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	key := path.Join("documents", uuid.New().String()+ext)

	objInfo, err := s.store.Put(ctx, key, bytes.NewReader(req.Content), storage.PutObjectOptions{
		Size:        int64(len(req.Content)),
		ContentType: contentType,
		Metadata: map[string]string{
			"content-hash": contentHash,
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	createdAt := s.opts.Now().UTC().Truncate(time.Microsecond)
	var incidentID *string
	if req.IncidentID != "" {
		incidentID = &req.IncidentID
	}

	for attempt := 1; attempt <= s.opts.MaxCodeAttempts; attempt++ {
		code, err := s.opts.Codes.Generate(createdAt)
		if err != nil {
			return nil, s.rollback(ctx, key, fmt.Errorf("generate verification code: %w", err))
		}
		doc := &model.Document{
			ID:               uuid.New().String(),
			IncidentID:       incidentID,
			DocumentType:     req.DocumentType,
			Title:            req.Title,
			VerificationCode: code,
			ContentHash:      contentHash,
			ContentType:      contentType,
			StoragePath:      objInfo.Key,
			Size:             int64(len(req.Content)),
			GeneratedBy:      req.GeneratedBy,
			CreatedAt:        createdAt,
			IsVerified:       true,
		}
		stored, err := s.repo.Create(ctx, doc)
		if errors.Is(err, repository.ErrConflict) {
			s.logger.Warn("verification code collision",
				"event", "code_collision",
				"attempt", attempt,
			)
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, s.rollback(ctx, key, fmt.Errorf("db save failed: %w", err))
		}

		s.metrics.DocumentIssued()
		s.logger.Info("document issued",
			"event", "document_issued",
			"document_id", stored.ID,
			"verification_code", stored.VerificationCode,
			"document_type", stored.DocumentType,
			"content_hash", stored.ContentHash,
		)
		return stored, nil
	}

	return nil, s.rollback(ctx, key, ErrCodeGenerationExhausted)
}

// rollback deletes stored content whose document record was never saved.
func (s *documentIssuer) rollback(ctx context.Context, key string, cause error) error {
	if delErr := s.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
		s.logger.Error("rollback of document content failed",
			"event", "rollback_failed",
			"storage_key", key,
			"error", delErr,
		)
		return fmt.Errorf("%w; rollback delete failed: %v", cause, delErr)
	}
	return cause
}

func (s *documentIssuer) Revoke(ctx context.Context, id string) (*model.Document, error) {
	ctx, span := tracer.Start(ctx, "issuer.Revoke", trace.WithAttributes(attribute.String("document.id", id)))
	defer span.End()

	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.Revoke(ctx, id, s.opts.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	s.logger.Info("document revoked",
		"event", "document_revoked",
		"document_id", doc.ID,
		"verification_code", doc.VerificationCode,
	)
	return doc, nil
}

// List returns paginated documents without exposing repository types.
func (s *documentIssuer) List(ctx context.Context, limit, offset int) (*DocumentListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a document by ID.
func (s *documentIssuer) Get(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentIssuer) VerificationURL(code string) string {
	return s.opts.PublicBaseURL + "/verify/" + code
}
