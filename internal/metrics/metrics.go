// Package metrics exposes integrity counters for the evidence ledger and
// document verification. A nil *Integrity is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"custodyapi/internal/model"
)

// Append outcomes recorded by EvidenceAppended.
const (
	AppendOK       = "ok"
	AppendInvalid  = "invalid"
	AppendConflict = "conflict"
	AppendError    = "error"
)

// Integrity holds the domain counters.
type Integrity struct {
	evidenceAppends       *prometheus.CounterVec
	chainVerifications    *prometheus.CounterVec
	documentVerifications *prometheus.CounterVec
	documentsIssued       prometheus.Counter
}

// NewIntegrity creates the counters and registers them on reg.
func NewIntegrity(reg prometheus.Registerer) (*Integrity, error) {
	m := &Integrity{
		evidenceAppends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_evidence_appends_total",
				Help: "Evidence append attempts by outcome.",
			},
			[]string{"status"},
		),
		chainVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_chain_verifications_total",
				Help: "Evidence chain verifications by result.",
			},
			[]string{"result"},
		),
		documentVerifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "custody_document_verifications_total",
				Help: "Document verifications by result and failure reason.",
			},
			[]string{"result", "reason"},
		),
		documentsIssued: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "custody_documents_issued_total",
				Help: "Documents issued with a verification code.",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.evidenceAppends,
		m.chainVerifications,
		m.documentVerifications,
		m.documentsIssued,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// EvidenceAppended counts one append by status (AppendOK, AppendInvalid, ...).
func (m *Integrity) EvidenceAppended(status string) {
	if m == nil {
		return
	}
	m.evidenceAppends.WithLabelValues(status).Inc()
}

// ChainVerified counts one chain walk.
func (m *Integrity) ChainVerified(valid bool) {
	if m == nil {
		return
	}
	m.chainVerifications.WithLabelValues(result(valid)).Inc()
}

// DocumentVerified counts one terminal verification outcome.
func (m *Integrity) DocumentVerified(valid bool, reason model.VerificationReason) {
	if m == nil {
		return
	}
	m.documentVerifications.WithLabelValues(result(valid), string(reason)).Inc()
}

// DocumentIssued counts one issued document.
func (m *Integrity) DocumentIssued() {
	if m == nil {
		return
	}
	m.documentsIssued.Inc()
}

func result(valid bool) string {
	if valid {
		return "valid"
	}
	return "invalid"
}
