package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// NoPreviousHash is the previous_hash sentinel carried by the first record of a chain.
const NoPreviousHash = "none"

// EvidenceType names the kind of artifact captured for an incident.
type EvidenceType string

const (
	EvidenceScreenshot EvidenceType = "screenshot"
	EvidenceText       EvidenceType = "text"
	EvidenceFile       EvidenceType = "file"
	EvidenceMetadata   EvidenceType = "metadata"
)

// Valid reports whether t is one of the known evidence types.
func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceScreenshot, EvidenceText, EvidenceFile, EvidenceMetadata:
		return true
	}
	return false
}

// ScreenshotPayload describes a captured web page image.
type ScreenshotPayload struct {
	URL        string `json:"url"`
	Resolution string `json:"resolution"`
}

// TextPayload is a captured text excerpt.
type TextPayload struct {
	Excerpt  string `json:"excerpt"`
	Language string `json:"language"`
}

// FilePayload references a captured file by its SHA-256 digest.
// StorageKey is set when the file body was uploaded through the ledger.
type FilePayload struct {
	Filename   string `json:"filename"`
	Size       int64  `json:"size"`
	MimeType   string `json:"mime_type"`
	Digest     string `json:"digest"`
	StorageKey string `json:"storage_key,omitempty"`
}

// MetadataPayload is a free-form key/value map.
type MetadataPayload map[string]any

// EvidenceRecord is one immutable, hash-linked entry of an incident's evidence chain.
// Payload holds the type-specific payload as stored; Verified is an advisory cache of
// the last chain verification and is never trusted for integrity decisions.
type EvidenceRecord struct {
	EvidenceID   string          `json:"evidence_id"`
	IncidentID   string          `json:"incident_id"`
	EvidenceType EvidenceType    `json:"evidence_type"`
	Payload      json.RawMessage `json:"payload"`
	ContentHash  string          `json:"content_hash"`
	PreviousHash string          `json:"previous_hash"`
	BlockIndex   int             `json:"block_index"`
	CapturedBy   string          `json:"captured_by"`
	CapturedAt   time.Time       `json:"captured_at"`
	Verified     bool            `json:"verified"`
}

// EvidenceID builds the human-readable identifier of the record at blockIndex.
func EvidenceID(incidentID string, blockIndex int) string {
	return fmt.Sprintf("%s-EV-%04d", incidentID, blockIndex)
}

// ChainBreak names the check that failed while walking a chain.
type ChainBreak string

const (
	BreakSequenceGap     ChainBreak = "sequence_gap"
	BreakContentMismatch ChainBreak = "content_mismatch"
	BreakLinkMismatch    ChainBreak = "link_mismatch"
)

// ChainVerification is the outcome of re-walking one incident's chain.
type ChainVerification struct {
	IncidentID    string     `json:"incident_id"`
	Valid         bool       `json:"valid"`
	BrokenAtIndex *int       `json:"broken_at_index,omitempty"`
	Reason        ChainBreak `json:"reason,omitempty"`
	Length        int        `json:"length"`
	HeadHash      string     `json:"head_hash,omitempty"`
	VerifiedAt    time.Time  `json:"verified_at"`
}
