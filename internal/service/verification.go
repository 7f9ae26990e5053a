package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"custodyapi/internal/digest"
	"custodyapi/internal/metrics"
	"custodyapi/internal/model"
	"custodyapi/internal/repository"
	"custodyapi/internal/storage"
)

// VerifyOptions selects supplementary checks.
type VerifyOptions struct {
	// IncludeChain attaches the referenced incident's chain verification.
	// It never changes the document verdict.
	IncludeChain bool
}

// VerificationEngine answers whether a verification code refers to an authentic,
// unrevoked, unmodified document. Negative outcomes are results; only
// infrastructure failures are returned as errors.
type VerificationEngine interface {
	Verify(ctx context.Context, code string, opts VerifyOptions) (*model.VerificationResult, error)
}

// verification carries state between stages of one Verify call.
type verification struct {
	code        string
	doc         *model.Document
	contentHash string
}

// stage returns a non-empty reason to stop the pipeline with a negative result.
type stage struct {
	name string
	run  func(ctx context.Context, v *verification) (model.VerificationReason, error)
}

type verificationEngine struct {
	docs    repository.DocumentRepository
	store   storage.Storage
	ledger  EvidenceLedger
	format  *CodeFormat
	metrics *metrics.Integrity
	logger  *slog.Logger
	now     func() time.Time
	stages  []stage
}

// NewVerificationEngine constructs the staged pipeline. ledger may be nil, in
// which case IncludeChain is ignored.
func NewVerificationEngine(docs repository.DocumentRepository, store storage.Storage, ledger EvidenceLedger, format *CodeFormat, m *metrics.Integrity, logger *slog.Logger) VerificationEngine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	e := &verificationEngine{
		docs:    docs,
		store:   store,
		ledger:  ledger,
		format:  format,
		metrics: m,
		logger:  logger.With("component", "verification"),
		now:     time.Now,
	}
	e.stages = []stage{
		{name: "format_check", run: e.checkFormat},
		{name: "lookup", run: e.lookup},
		{name: "revocation_check", run: e.checkRevocation},
		{name: "content_integrity", run: e.checkContent},
	}
	return e
}

func (e *verificationEngine) Verify(ctx context.Context, code string, opts VerifyOptions) (*model.VerificationResult, error) {
	ctx, span := tracer.Start(ctx, "verification.Verify")
	defer span.End()

	v := &verification{code: NormalizeCode(code)}
	res := &model.VerificationResult{Code: v.code}

	for _, st := range e.stages {
		reason, err := st.run(ctx, v)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
		if reason != "" {
			res.Reason = reason
			res.Message = reason.Message()
			break
		}
	}

	if v.doc != nil {
		res.Document = model.NewPublicDocument(v.doc)
	}
	if res.Reason == "" {
		res.Valid = true
		res.ContentHash = v.contentHash
	}
	if opts.IncludeChain {
		res.Chain = e.chain(ctx, v.doc)
	}
	res.CheckedAt = e.now().UTC()

	span.SetAttributes(
		attribute.Bool("verification.valid", res.Valid),
		attribute.String("verification.reason", string(res.Reason)),
	)
	e.metrics.DocumentVerified(res.Valid, res.Reason)
	if res.Reason == model.ReasonContentTampered {
		e.logger.Error("document content integrity failure",
			"event", "content_tampered",
			"document_id", v.doc.ID,
			"verification_code", v.code,
		)
	}
	return res, nil
}

func (e *verificationEngine) checkFormat(_ context.Context, v *verification) (model.VerificationReason, error) {
	if !e.format.Match(v.code) {
		return model.ReasonInvalidCodeFormat, nil
	}
	return "", nil
}

func (e *verificationEngine) lookup(ctx context.Context, v *verification) (model.VerificationReason, error) {
	doc, err := e.docs.FindByCode(ctx, v.code)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ReasonCodeNotFound, nil
	}
	if err != nil {
		return "", err
	}
	v.doc = doc
	return "", nil
}

func (e *verificationEngine) checkRevocation(_ context.Context, v *verification) (model.VerificationReason, error) {
	if !v.doc.IsVerified {
		return model.ReasonDocumentRevoked, nil
	}
	return "", nil
}

// checkContent recomputes the digest of the content currently in storage.
// Content larger than the size recorded at issuance is not read past that size
// plus one byte; it cannot match anyway.
func (e *verificationEngine) checkContent(ctx context.Context, v *verification) (model.VerificationReason, error) {
	rc, _, err := e.store.Get(ctx, v.doc.StoragePath)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return model.ReasonContentTampered, nil
	}
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	defer rc.Close()

	content, err := io.ReadAll(io.LimitReader(rc, v.doc.Size+1))
	if err != nil {
		return "", fmt.Errorf("read content: %w", err)
	}
	if int64(len(content)) != v.doc.Size {
		return model.ReasonContentTampered, nil
	}
	hash := digest.Content(content)
	if hash != v.doc.ContentHash {
		return model.ReasonContentTampered, nil
	}
	v.contentHash = hash
	return "", nil
}

// chain runs the supplementary evidence check. Failures are logged and leave
// the chain off the result.
func (e *verificationEngine) chain(ctx context.Context, doc *model.Document) *model.ChainVerification {
	if e.ledger == nil || doc == nil || doc.IncidentID == nil {
		return nil
	}
	cv, err := e.ledger.VerifyChain(ctx, *doc.IncidentID)
	if err != nil {
		e.logger.Warn("supplementary chain check failed",
			"event", "chain_check_failed",
			"incident_id", *doc.IncidentID,
			"error", err,
		)
		return nil
	}
	return cv
}
