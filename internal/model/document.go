package model

import "time"

// DocumentType is the kind of report a document was generated as.
type DocumentType string

const (
	DocumentIncidentReport   DocumentType = "incident_report"
	DocumentCustomReport     DocumentType = "custom_report"
	DocumentExecutiveSummary DocumentType = "executive_summary"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	switch t {
	case DocumentIncidentReport, DocumentCustomReport, DocumentExecutiveSummary:
		return true
	}
	return false
}

// Document represents an issued report whose rendered content is anchored by ContentHash.
// The rendered content itself lives in object storage under StoragePath.
// IsVerified false means the document was revoked; the row is never deleted.
type Document struct {
	ID               string       `json:"id"`
	IncidentID       *string      `json:"incident_id"`
	DocumentType     DocumentType `json:"document_type"`
	Title            string       `json:"title"`
	VerificationCode string       `json:"verification_code"`
	ContentHash      string       `json:"content_hash"`
	ContentType      string       `json:"content_type"`
	StoragePath      string       `json:"storage_path"`
	Size             int64        `json:"size"`
	GeneratedBy      string       `json:"generated_by"`
	CreatedAt        time.Time    `json:"created_at"`
	IsVerified       bool         `json:"is_verified"`
	RevokedAt        *time.Time   `json:"revoked_at,omitempty"`
}
