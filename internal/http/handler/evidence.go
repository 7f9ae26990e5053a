package handler

import (
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"

	"custodyapi/internal/http/middleware"
	"custodyapi/internal/model"
	"custodyapi/internal/service"
)

// appendEvidenceRequest is the JSON body of an evidence append.
type appendEvidenceRequest struct {
	EvidenceType model.EvidenceType `json:"evidence_type"`
	Payload      json.RawMessage    `json:"payload"`
	CapturedBy   string             `json:"captured_by"`
}

// evidenceListResponse wraps an incident's chain in block order.
type evidenceListResponse struct {
	IncidentID string                 `json:"incident_id"`
	Items      []model.EvidenceRecord `json:"data"`
	Total      int                    `json:"total"`
}

// actor returns the authenticated subject, falling back to the client-supplied name
// when the internal routes run without authentication.
func actor(c *fiber.Ctx, claimed string) string {
	if sub, ok := c.Locals(middleware.SubjectLocalKey).(string); ok && sub != "" {
		return sub
	}
	return strings.TrimSpace(claimed)
}

// AppendEvidence links a new record to the head of an incident's chain.
//
// @Summary Append evidence
// @Tags evidence
// @Accept json
// @Produce json
// @Param incident_id path string true "Incident ID"
// @Param body body appendEvidenceRequest true "Evidence"
// @Success 201 {object} model.EvidenceRecord
// @Failure 400 {object} errorPayload
// @Failure 409 {object} errorPayload
// @Security BearerAuth
// @Router /incidents/{incident_id}/evidence [post]
func AppendEvidence(ledger service.EvidenceLedger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req appendEvidenceRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}

		rec, err := ledger.Append(c.UserContext(), param(c, "incident_id"), req.EvidenceType, req.Payload, actor(c, req.CapturedBy))
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// AppendEvidenceFile streams an uploaded file into storage and appends a file record for it.
//
// @Summary Append file evidence
// @Tags evidence
// @Accept mpfd
// @Produce json
// @Param incident_id path string true "Incident ID"
// @Param file formData file true "Evidence file"
// @Param captured_by formData string false "Capturing user (ignored when authenticated)"
// @Success 201 {object} model.EvidenceRecord
// @Failure 400 {object} errorPayload
// @Security BearerAuth
// @Router /incidents/{incident_id}/evidence/file [post]
func AppendEvidenceFile(ledger service.EvidenceLedger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		rec, err := ledger.AppendFile(c.UserContext(), service.AppendFileRequest{
			IncidentID:  param(c, "incident_id"),
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
			CapturedBy:  actor(c, formValue(c, "captured_by")),
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(rec)
	}
}

// ListEvidence returns an incident's records ordered by block index.
//
// @Summary List evidence
// @Tags evidence
// @Produce json
// @Param incident_id path string true "Incident ID"
// @Success 200 {object} evidenceListResponse
// @Security BearerAuth
// @Router /incidents/{incident_id}/evidence [get]
func ListEvidence(ledger service.EvidenceLedger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		incidentID := param(c, "incident_id")
		records, err := ledger.List(c.UserContext(), incidentID)
		if err != nil {
			return serviceError(c, err)
		}
		if records == nil {
			records = []model.EvidenceRecord{}
		}
		return c.JSON(evidenceListResponse{IncidentID: incidentID, Items: records, Total: len(records)})
	}
}

// VerifyChain re-walks an incident's chain. A broken chain is a 200 with valid=false.
//
// @Summary Verify evidence chain
// @Tags evidence
// @Produce json
// @Param incident_id path string true "Incident ID"
// @Success 200 {object} model.ChainVerification
// @Security BearerAuth
// @Router /incidents/{incident_id}/evidence/verify [get]
func VerifyChain(ledger service.EvidenceLedger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := ledger.VerifyChain(c.UserContext(), param(c, "incident_id"))
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}
