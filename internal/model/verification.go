package model

import "time"

// VerificationReason is the machine-readable cause of a failed document verification.
type VerificationReason string

const (
	ReasonInvalidCodeFormat VerificationReason = "INVALID_CODE_FORMAT"
	ReasonCodeNotFound      VerificationReason = "CODE_NOT_FOUND"
	ReasonDocumentRevoked   VerificationReason = "DOCUMENT_REVOKED"
	ReasonContentTampered   VerificationReason = "CONTENT_TAMPERED"
)

// Message returns the user-facing explanation for r.
func (r VerificationReason) Message() string {
	switch r {
	case ReasonInvalidCodeFormat:
		return "verification code format is invalid"
	case ReasonCodeNotFound:
		return "no document was issued with this verification code"
	case ReasonDocumentRevoked:
		return "document has been revoked by its issuer"
	case ReasonContentTampered:
		return "document content does not match the hash recorded at issuance"
	}
	return ""
}

// ContentHashPrefixLen is how many hex characters of a content hash are shown publicly.
const ContentHashPrefixLen = 16

// PublicDocument is the subset of Document exposed to unauthenticated verifiers.
type PublicDocument struct {
	DocumentID        string       `json:"document_id"`
	IncidentID        *string      `json:"incident_id"`
	DocumentType      DocumentType `json:"document_type"`
	Title             string       `json:"title"`
	GeneratedBy       string       `json:"generated_by"`
	CreatedAt         time.Time    `json:"created_at"`
	ContentHashPrefix string       `json:"content_hash_prefix"`
}

// NewPublicDocument projects d onto its public fields.
func NewPublicDocument(d *Document) *PublicDocument {
	prefix := d.ContentHash
	if len(prefix) > ContentHashPrefixLen {
		prefix = prefix[:ContentHashPrefixLen]
	}
	return &PublicDocument{
		DocumentID:        d.ID,
		IncidentID:        d.IncidentID,
		DocumentType:      d.DocumentType,
		Title:             d.Title,
		GeneratedBy:       d.GeneratedBy,
		CreatedAt:         d.CreatedAt,
		ContentHashPrefix: prefix,
	}
}

// VerificationResult is the terminal outcome of verifying a code.
// Chain is only present when the caller asked for the supplementary evidence check;
// it never influences Valid.
type VerificationResult struct {
	Code        string             `json:"code"`
	Valid       bool               `json:"valid"`
	Reason      VerificationReason `json:"reason,omitempty"`
	Message     string             `json:"message,omitempty"`
	Document    *PublicDocument    `json:"document,omitempty"`
	ContentHash string             `json:"content_hash,omitempty"`
	Chain       *ChainVerification `json:"chain,omitempty"`
	CheckedAt   time.Time          `json:"checked_at"`
}
