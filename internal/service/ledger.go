package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"custodyapi/internal/digest"
	"custodyapi/internal/metrics"
	"custodyapi/internal/model"
	"custodyapi/internal/repository"
	"custodyapi/internal/storage"
)

var tracer = otel.Tracer("custodyapi/internal/service")

// AppendFileRequest describes an evidence file streamed through the ledger.
type AppendFileRequest struct {
	IncidentID  string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	CapturedBy  string
}

// EvidenceLedger appends to and verifies per-incident evidence chains.
type EvidenceLedger interface {
	// Append validates payload for evidenceType and links a new record to the head
	// of the incident's chain. Appends to one incident are linearized.
	Append(ctx context.Context, incidentID string, evidenceType model.EvidenceType, payload json.RawMessage, capturedBy string) (*model.EvidenceRecord, error)

	// AppendFile uploads the file body to object storage, digesting it on the way,
	// then appends a file record pointing at it. The upload is removed if the append fails.
	AppendFile(ctx context.Context, req AppendFileRequest) (*model.EvidenceRecord, error)

	// List returns the incident's records ordered by block index.
	List(ctx context.Context, incidentID string) ([]model.EvidenceRecord, error)

	// VerifyChain re-walks the incident's chain from block 1 and reports the first break.
	VerifyChain(ctx context.Context, incidentID string) (*model.ChainVerification, error)
}

// LedgerOptions tunes the append path. Zero values fall back to defaults.
type LedgerOptions struct {
	MaxAppendAttempts int
	AppendBackoff     time.Duration
	Now               func() time.Time
}

type evidenceLedger struct {
	repo    repository.EvidenceRepository
	store   storage.Storage
	metrics *metrics.Integrity
	logger  *slog.Logger
	locks   *keyedMutex
	opts    LedgerOptions
}

// NewEvidenceLedger constructs an EvidenceLedger. store may be nil when file
// uploads are not served; metrics may be nil.
func NewEvidenceLedger(repo repository.EvidenceRepository, store storage.Storage, m *metrics.Integrity, logger *slog.Logger, opts LedgerOptions) EvidenceLedger {
	if opts.MaxAppendAttempts <= 0 {
		opts.MaxAppendAttempts = 8
	}
	if opts.AppendBackoff <= 0 {
		opts.AppendBackoff = 10 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &evidenceLedger{
		repo:    repo,
		store:   store,
		metrics: m,
		logger:  logger.With("component", "ledger"),
		locks:   newKeyedMutex(),
		opts:    opts,
	}
}

func (l *evidenceLedger) Append(ctx context.Context, incidentID string, evidenceType model.EvidenceType, payload json.RawMessage, capturedBy string) (*model.EvidenceRecord, error) {
	ctx, span := tracer.Start(ctx, "ledger.Append", trace.WithAttributes(
		attribute.String("incident.id", incidentID),
		attribute.String("evidence.type", string(evidenceType)),
	))
	defer span.End()

	rec, err := l.append(ctx, incidentID, evidenceType, payload, capturedBy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "append failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("evidence.block_index", rec.BlockIndex))
	return rec, nil
}

func (l *evidenceLedger) append(ctx context.Context, incidentID string, evidenceType model.EvidenceType, payload json.RawMessage, capturedBy string) (*model.EvidenceRecord, error) {
	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, ErrIncidentRequired
	}
	capturedBy = strings.TrimSpace(capturedBy)
	if capturedBy == "" {
		l.metrics.EvidenceAppended(metrics.AppendInvalid)
		return nil, fmt.Errorf("%w: captured_by is required", ErrInvalidPayload)
	}
	canonical, err := normalizePayload(evidenceType, payload)
	if err != nil {
		l.metrics.EvidenceAppended(metrics.AppendInvalid)
		return nil, err
	}

	// Postgres keeps microseconds; the hashed timestamp must survive the round trip.
	capturedAt := l.opts.Now().UTC().Truncate(time.Microsecond)
	contentHash, err := digest.Evidence(evidenceType, canonical, capturedBy, capturedAt)
	if err != nil {
		return nil, fmt.Errorf("compute content hash: %w", err)
	}

	unlock := l.locks.Lock(incidentID)
	defer unlock()

	start := time.Now()
	attempts := 0
	rec, err := backoff.Retry(ctx, func() (*model.EvidenceRecord, error) {
		attempts++
		head, err := l.repo.Head(ctx, incidentID)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("read chain head: %w", err))
		}
		next := &model.EvidenceRecord{
			EvidenceID:   model.EvidenceID(incidentID, head.BlockIndex+1),
			IncidentID:   incidentID,
			EvidenceType: evidenceType,
			Payload:      canonical,
			ContentHash:  contentHash,
			PreviousHash: head.ContentHash,
			BlockIndex:   head.BlockIndex + 1,
			CapturedBy:   capturedBy,
			CapturedAt:   capturedAt,
		}
		stored, err := l.repo.Insert(ctx, next)
		if errors.Is(err, repository.ErrConflict) {
			l.logger.Debug("append lost race for block index",
				"event", "append_conflict",
				"incident_id", incidentID,
				"block_index", next.BlockIndex,
				"attempt", attempts,
			)
			return nil, ErrConcurrentAppendConflict
		}
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("insert evidence: %w", err))
		}
		return stored, nil
	},
		backoff.WithBackOff(l.newBackOff()),
		backoff.WithMaxTries(uint(l.opts.MaxAppendAttempts)),
	)
	if err != nil {
		if errors.Is(err, ErrConcurrentAppendConflict) {
			l.metrics.EvidenceAppended(metrics.AppendConflict)
			l.logger.Warn("append retries exhausted",
				"event", "append_conflict",
				"incident_id", incidentID,
				"attempts", attempts,
			)
			return nil, ErrConcurrentAppendConflict
		}
		l.metrics.EvidenceAppended(metrics.AppendError)
		return nil, err
	}

	l.metrics.EvidenceAppended(metrics.AppendOK)
	l.logger.Info("evidence appended",
		"event", "evidence_appended",
		"incident_id", incidentID,
		"evidence_id", rec.EvidenceID,
		"block_index", rec.BlockIndex,
		"attempts", attempts,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

func (l *evidenceLedger) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.opts.AppendBackoff
	b.MaxInterval = 50 * l.opts.AppendBackoff
	return b
}

func (l *evidenceLedger) AppendFile(ctx context.Context, req AppendFileRequest) (*model.EvidenceRecord, error) {
	ctx, span := tracer.Start(ctx, "ledger.AppendFile", trace.WithAttributes(
		attribute.String("incident.id", req.IncidentID),
	))
	defer span.End()

	if req.Body == nil {
		return nil, ErrReaderNil
	}
	if l.store == nil {
		return nil, errors.New("file evidence storage is not configured")
	}
	incidentID := strings.TrimSpace(req.IncidentID)
	if incidentID == "" {
		return nil, ErrIncidentRequired
	}
	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := path.Join("evidence", url.PathEscape(incidentID), uuid.New().String()+filepath.Ext(req.Filename))
	body := digest.NewReader(req.Body)
	info, err := l.store.Put(ctx, key, body, storage.PutObjectOptions{
		Size:        req.Size,
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": req.Filename,
			"incident-id":       incidentID,
		},
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	filename := strings.TrimSpace(req.Filename)
	if filename != "" {
		filename = filepath.Base(filename)
	}
	payload, err := json.Marshal(model.FilePayload{
		Filename:   filename,
		Size:       body.N(),
		MimeType:   contentType,
		Digest:     body.Sum(),
		StorageKey: info.Key,
	})
	if err != nil {
		return nil, l.rollbackUpload(ctx, key, fmt.Errorf("encode file payload: %w", err))
	}

	rec, err := l.append(ctx, incidentID, model.EvidenceFile, payload, req.CapturedBy)
	if err != nil {
		span.RecordError(err)
		return nil, l.rollbackUpload(ctx, key, err)
	}
	return rec, nil
}

// rollbackUpload removes an uploaded evidence body whose record was never appended.
func (l *evidenceLedger) rollbackUpload(ctx context.Context, key string, cause error) error {
	if delErr := l.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
		l.logger.Error("rollback of evidence upload failed",
			"event", "rollback_failed",
			"storage_key", key,
			"error", delErr,
		)
		return fmt.Errorf("%w; rollback delete failed: %v", cause, delErr)
	}
	return cause
}

func (l *evidenceLedger) List(ctx context.Context, incidentID string) ([]model.EvidenceRecord, error) {
	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, ErrIncidentRequired
	}
	return l.repo.ListByIncident(ctx, incidentID)
}

func (l *evidenceLedger) VerifyChain(ctx context.Context, incidentID string) (*model.ChainVerification, error) {
	ctx, span := tracer.Start(ctx, "ledger.VerifyChain", trace.WithAttributes(
		attribute.String("incident.id", incidentID),
	))
	defer span.End()

	incidentID = strings.TrimSpace(incidentID)
	if incidentID == "" {
		return nil, ErrIncidentRequired
	}

	records, err := l.repo.ListByIncident(ctx, incidentID)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load chain: %w", err)
	}

	res := WalkChain(incidentID, records)
	res.VerifiedAt = l.opts.Now().UTC()
	l.metrics.ChainVerified(res.Valid)
	span.SetAttributes(attribute.Bool("chain.valid", res.Valid), attribute.Int("chain.length", res.Length))

	validThrough := res.Length
	if !res.Valid {
		validThrough = *res.BrokenAtIndex - 1
		l.logger.Error("evidence chain integrity failure",
			"event", "chain_broken",
			"incident_id", incidentID,
			"broken_at_index", *res.BrokenAtIndex,
			"reason", res.Reason,
			"length", res.Length,
		)
	}
	if err := l.repo.MarkVerified(ctx, incidentID, validThrough); err != nil {
		l.logger.Warn("could not update verified flags",
			"event", "mark_verified_failed",
			"incident_id", incidentID,
			"error", err,
		)
	}
	return &res, nil
}

// WalkChain checks records, ordered by block index, starting from block 1.
// At each expected position k it checks index continuity, the recomputed
// content hash and the link to the previous record's recomputed hash. The first
// failing position is reported as BrokenAtIndex.
func WalkChain(incidentID string, records []model.EvidenceRecord) model.ChainVerification {
	res := model.ChainVerification{IncidentID: incidentID, Length: len(records)}
	prev := model.NoPreviousHash

	broken := func(k int, reason model.ChainBreak) model.ChainVerification {
		res.Valid = false
		res.BrokenAtIndex = &k
		res.Reason = reason
		return res
	}

	for i, rec := range records {
		k := i + 1
		if rec.BlockIndex != k {
			return broken(k, model.BreakSequenceGap)
		}
		recomputed, err := digest.Evidence(rec.EvidenceType, rec.Payload, rec.CapturedBy, rec.CapturedAt)
		if err != nil || recomputed != rec.ContentHash {
			return broken(k, model.BreakContentMismatch)
		}
		if rec.PreviousHash != prev {
			return broken(k, model.BreakLinkMismatch)
		}
		prev = recomputed
	}

	res.Valid = true
	if len(records) > 0 {
		res.HeadHash = prev
	}
	return res
}
