package digest

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"custodyapi/internal/model"
)

// HexSize is the length of a hex-encoded digest.
const HexSize = sha256.Size * 2

// Sum returns the hex-encoded SHA-256 of b.
func Sum(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}

// evidenceEnvelope fixes the fields that make up an evidence record's content hash.
// Field order in the canonical form is the sorted key order:
// captured_at, captured_by, evidence_type, payload.
type evidenceEnvelope struct {
	CapturedAt   string          `json:"captured_at"`
	CapturedBy   string          `json:"captured_by"`
	EvidenceType string          `json:"evidence_type"`
	Payload      json.RawMessage `json:"payload"`
}

// EvidenceCanonical returns the canonical bytes hashed for an evidence record.
// capturedAt is rendered in UTC with RFC 3339 nanosecond precision; callers must
// store it at the precision their persistence layer round-trips.
func EvidenceCanonical(t model.EvidenceType, payload json.RawMessage, capturedBy string, capturedAt time.Time) ([]byte, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		payload = json.RawMessage("null")
	}
	env := evidenceEnvelope{
		CapturedAt:   capturedAt.UTC().Format(time.RFC3339Nano),
		CapturedBy:   capturedBy,
		EvidenceType: string(t),
		Payload:      payload,
	}
	out, err := CanonicalJSON(env)
	if err != nil {
		return nil, fmt.Errorf("canonical evidence: %w", err)
	}
	return out, nil
}

// Evidence computes the content hash of an evidence record.
func Evidence(t model.EvidenceType, payload json.RawMessage, capturedBy string, capturedAt time.Time) (string, error) {
	canonical, err := EvidenceCanonical(t, payload, capturedBy, capturedAt)
	if err != nil {
		return "", err
	}
	return Sum(canonical), nil
}

// Content computes the content hash of a stored document rendering. The bytes
// are hashed exactly as stored: any normalization would let distinct renderings
// share a digest.
func Content(content []byte) string {
	return Sum(content)
}
