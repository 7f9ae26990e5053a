package handler

import (
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"custodyapi/internal/model"
	"custodyapi/internal/service"
)

// issueResponse pairs the issued document with the URL to print or QR-encode on it.
type issueResponse struct {
	Document        *model.Document `json:"document"`
	VerificationURL string          `json:"verification_url"`
}

// IssueDocument anchors an uploaded rendering under a fresh verification code.
//
// @Summary Issue document
// @Tags documents
// @Accept mpfd
// @Produce json
// @Param file formData file true "Rendered document"
// @Param document_type formData string true "incident_report, custom_report or executive_summary"
// @Param title formData string true "Title"
// @Param incident_id formData string false "Incident the report covers"
// @Param generated_by formData string false "Issuing user (ignored when authenticated)"
// @Success 201 {object} issueResponse
// @Failure 400 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Security BearerAuth
// @Router /documents [post]
func IssueDocument(issuer service.DocumentIssuer) fiber.Handler {
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

		// The whole rendering is hashed before upload; fiber's BodyLimit bounds it.
		content, err := io.ReadAll(f)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		doc, err := issuer.Issue(c.UserContext(), service.IssueRequest{
			DocumentType: model.DocumentType(formValue(c, "document_type")),
			IncidentID:   formValue(c, "incident_id"),
			Title:        formValue(c, "title"),
			Content:      content,
			ContentType:  fh.Header.Get("Content-Type"),
			Filename:     fh.Filename,
			GeneratedBy:  actor(c, formValue(c, "generated_by")),
		})
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(issueResponse{
			Document:        doc,
			VerificationURL: issuer.VerificationURL(doc.VerificationCode),
		})
	}
}

// ListDocuments returns issued documents with limit & offset.
//
// @Summary List documents
// @Tags documents
// @Produce json
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.DocumentListResult
// @Failure 400 {object} errorPayload
// @Security BearerAuth
// @Router /documents [get]
func ListDocuments(issuer service.DocumentIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil || limit < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil || offset < 0 {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := issuer.List(c.UserContext(), limit, offset)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetDocument returns the full internal record of a document.
//
// @Summary Get document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id} [get]
func GetDocument(issuer service.DocumentIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := param(c, "id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := issuer.Get(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}

// RevokeDocument withdraws a document. Revoking an already revoked document succeeds.
//
// @Summary Revoke document
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} model.Document
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Security BearerAuth
// @Router /documents/{id}/revoke [post]
func RevokeDocument(issuer service.DocumentIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := param(c, "id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		doc, err := issuer.Revoke(c.UserContext(), id)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(doc)
	}
}
