package handler

import (
	"encoding/json"
	"io"

	"github.com/gofiber/fiber/v2"

	"custodyapi/internal/extract"
	"custodyapi/internal/service"
)

// maxScannedBytes bounds how much of an uploaded file is searched for a code.
const maxScannedBytes = 4 << 20

// verifyPayloadRequest carries either a typed code or raw scanned text (QR payload, URL).
type verifyPayloadRequest struct {
	Code         string `json:"code"`
	Payload      string `json:"payload"`
	IncludeChain bool   `json:"include_chain"`
}

// Every verification outcome, positive or negative, is a 200. Only
// infrastructure failures surface as 5xx.
func runVerify(c *fiber.Ctx, engine service.VerificationEngine, code string, includeChain bool) error {
	res, err := engine.Verify(c.UserContext(), code, service.VerifyOptions{IncludeChain: includeChain})
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
	return c.JSON(res)
}

// VerifyCode verifies a code taken from the path, as printed on a document or encoded in its QR.
//
// @Summary Verify a document code
// @Tags verification
// @Produce json
// @Param code path string true "Verification code"
// @Param include_chain query bool false "Attach the incident's evidence chain check"
// @Success 200 {object} model.VerificationResult
// @Failure 500 {object} errorPayload
// @Router /verify/{code} [get]
func VerifyCode(engine service.VerificationEngine) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return runVerify(c, engine, param(c, "code"), c.QueryBool("include_chain"))
	}
}

// VerifyPayload verifies a typed code, or a code recovered from raw scanned text.
// Text with no recognizable code is verified as-is and fails the format check.
//
// @Summary Verify a code or scanned payload
// @Tags verification
// @Accept json
// @Produce json
// @Param body body verifyPayloadRequest true "Code or payload"
// @Success 200 {object} model.VerificationResult
// @Failure 400 {object} errorPayload
// @Router /verify [post]
func VerifyPayload(engine service.VerificationEngine, extractor *extract.Extractor) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req verifyPayloadRequest
		if err := json.Unmarshal(c.Body(), &req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be a JSON object")
		}

		code := req.Code
		if code == "" {
			code = req.Payload
			if found, ok := extractor.FromText(req.Payload); ok {
				code = found
			}
		}
		return runVerify(c, engine, code, req.IncludeChain)
	}
}

// VerifyFile looks for a code in an uploaded file's name and contents, then verifies it.
//
// @Summary Verify an uploaded document
// @Tags verification
// @Accept mpfd
// @Produce json
// @Param file formData file true "Document or scan"
// @Param include_chain formData bool false "Attach the incident's evidence chain check"
// @Success 200 {object} model.VerificationResult
// @Failure 400 {object} errorPayload
// @Router /verify/file [post]
func VerifyFile(engine service.VerificationEngine, extractor *extract.Extractor) fiber.Handler {
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

		content, err := io.ReadAll(io.LimitReader(f, maxScannedBytes))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		code, _ := extractor.FromFile(fh.Filename, fh.Header.Get("Content-Type"), content)
		includeChain := formValue(c, "include_chain") == "true"
		return runVerify(c, engine, code, includeChain)
	}
}
