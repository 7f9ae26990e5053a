package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"custodyapi/internal/extract"
	"custodyapi/internal/http/middleware"
	"custodyapi/internal/model"
	"custodyapi/internal/service"
	serviceMocks "custodyapi/internal/service/mocks"
)

const testCode = "LK-DOC-2026-AB12CD34"

// multipartBody builds a form with one file part plus plain fields.
func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var res errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	return res
}

// withSubject simulates JWTAuth having accepted a token for sub.
func withSubject(sub string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(middleware.SubjectLocalKey, sub)
		return c.Next()
	}
}

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, resp).Error.Code)
	})

	t.Run("memory backend", func(t *testing.T) {
		app := fiber.New()
		app.Get("/health", HealthCheck(nil))

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAppendEvidence(t *testing.T) {
	payload := `{"url":"https://example.org/post/1","resolution":"1280x720"}`
	newRequest := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/incidents/LK-1/evidence", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		return req
	}
	body := `{"evidence_type":"screenshot","payload":` + payload + `,"captured_by":"analyst"}`

	t.Run("success", func(t *testing.T) {
		mockLedger := new(serviceMocks.MockEvidenceLedger)
		app := fiber.New()
		app.Post("/incidents/:incident_id/evidence", AppendEvidence(mockLedger))

		rec := &model.EvidenceRecord{EvidenceID: "LK-1-EV-0001", IncidentID: "LK-1", BlockIndex: 1, PreviousHash: model.NoPreviousHash}
		mockLedger.On("Append", mock.Anything, "LK-1", model.EvidenceScreenshot, json.RawMessage(payload), "analyst").Return(rec, nil).Once()

		resp, err := app.Test(newRequest(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var got model.EvidenceRecord
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "LK-1-EV-0001", got.EvidenceID)
		assert.Equal(t, model.NoPreviousHash, got.PreviousHash)
		mockLedger.AssertExpectations(t)
	})

	t.Run("authenticated subject overrides captured_by", func(t *testing.T) {
		mockLedger := new(serviceMocks.MockEvidenceLedger)
		app := fiber.New()
		app.Post("/incidents/:incident_id/evidence", withSubject("analyst-7"), AppendEvidence(mockLedger))

		mockLedger.On("Append", mock.Anything, "LK-1", model.EvidenceScreenshot, mock.Anything, "analyst-7").
			Return(&model.EvidenceRecord{EvidenceID: "LK-1-EV-0001"}, nil).Once()

		resp, err := app.Test(newRequest(body))
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockLedger.AssertExpectations(t)
	})

	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{name: "malformed body", body: `{"evidence_type":`, wantStatus: http.StatusBadRequest, wantCode: "INVALID_BODY"},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantCode: "INVALID_BODY"},
		{name: "invalid payload", body: body, serviceErr: fmt.Errorf("%w: url: cannot be blank", service.ErrInvalidPayload), wantStatus: http.StatusBadRequest, wantCode: "INVALID_PAYLOAD"},
		{name: "append conflict", body: body, serviceErr: service.ErrConcurrentAppendConflict, wantStatus: http.StatusConflict, wantCode: "APPEND_CONFLICT"},
		{name: "storage failure", body: body, serviceErr: errors.New("insert evidence: connection reset"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockLedger := new(serviceMocks.MockEvidenceLedger)
			app := fiber.New()
			app.Post("/incidents/:incident_id/evidence", AppendEvidence(mockLedger))
			if tt.serviceErr != nil {
				mockLedger.On("Append", mock.Anything, "LK-1", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.serviceErr).Once()
			}

			resp, err := app.Test(newRequest(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			res := decodeError(t, resp)
			assert.Equal(t, tt.wantCode, res.Error.Code)
			assert.NotContains(t, res.Error.Message, "connection reset")
			mockLedger.AssertExpectations(t)
		})
	}
}

func TestAppendEvidenceFile(t *testing.T) {
	mockLedger := new(serviceMocks.MockEvidenceLedger)
	app := fiber.New()
	app.Post("/incidents/:incident_id/evidence/file", AppendEvidenceFile(mockLedger))

	t.Run("success", func(t *testing.T) {
		body, contentType := multipartBody(t, "capture.png", []byte("png bytes"), map[string]string{"captured_by": "analyst"})

		mockLedger.On("AppendFile", mock.Anything, mock.MatchedBy(func(r service.AppendFileRequest) bool {
			content, _ := io.ReadAll(r.Body)
			return r.IncidentID == "LK-1" && r.Filename == "capture.png" && r.Size == 9 &&
				r.CapturedBy == "analyst" && string(content) == "png bytes"
		})).Return(&model.EvidenceRecord{EvidenceID: "LK-1-EV-0001", EvidenceType: model.EvidenceFile}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/incidents/LK-1/evidence/file", body)
		req.Header.Set("Content-Type", contentType)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
		mockLedger.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/incidents/LK-1/evidence/file", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})
}

func TestListEvidence(t *testing.T) {
	mockLedger := new(serviceMocks.MockEvidenceLedger)
	app := fiber.New()
	app.Get("/incidents/:incident_id/evidence", ListEvidence(mockLedger))

	t.Run("chain in block order", func(t *testing.T) {
		records := []model.EvidenceRecord{{EvidenceID: "LK-1-EV-0001", BlockIndex: 1}, {EvidenceID: "LK-1-EV-0002", BlockIndex: 2}}
		mockLedger.On("List", mock.Anything, "LK-1").Return(records, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/incidents/LK-1/evidence", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got evidenceListResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, "LK-1", got.IncidentID)
		assert.Equal(t, 2, got.Total)
		assert.Equal(t, 2, got.Items[1].BlockIndex)
	})

	t.Run("unknown incident is an empty chain", func(t *testing.T) {
		mockLedger.On("List", mock.Anything, "LK-404").Return(nil, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/incidents/LK-404/evidence", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		raw, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(raw), `"data":[]`)
	})
	mockLedger.AssertExpectations(t)
}

func TestVerifyChain(t *testing.T) {
	mockLedger := new(serviceMocks.MockEvidenceLedger)
	app := fiber.New()
	app.Get("/incidents/:incident_id/evidence/verify", VerifyChain(mockLedger))

	t.Run("broken chain is not an HTTP error", func(t *testing.T) {
		at := 3
		mockLedger.On("VerifyChain", mock.Anything, "LK-1").Return(&model.ChainVerification{
			IncidentID:    "LK-1",
			Valid:         false,
			BrokenAtIndex: &at,
			Reason:        model.BreakContentMismatch,
			Length:        5,
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/incidents/LK-1/evidence/verify", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.ChainVerification
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.False(t, got.Valid)
		require.NotNil(t, got.BrokenAtIndex)
		assert.Equal(t, 3, *got.BrokenAtIndex)
		assert.Equal(t, model.BreakContentMismatch, got.Reason)
	})

	t.Run("load failure", func(t *testing.T) {
		mockLedger.On("VerifyChain", mock.Anything, "LK-2").Return(nil, errors.New("load chain: timeout")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/incidents/LK-2/evidence/verify", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	})
	mockLedger.AssertExpectations(t)
}

func TestIssueDocument(t *testing.T) {
	fields := map[string]string{
		"document_type": "incident_report",
		"title":         "Incident Report LK-1",
		"incident_id":   "LK-1",
		"generated_by":  "someone",
	}

	t.Run("success", func(t *testing.T) {
		mockIssuer := new(serviceMocks.MockDocumentIssuer)
		app := fiber.New()
		app.Post("/documents", withSubject("analyst-7"), IssueDocument(mockIssuer))

		doc := &model.Document{ID: uuid.New().String(), VerificationCode: testCode, IsVerified: true}
		mockIssuer.On("Issue", mock.Anything, mock.MatchedBy(func(r service.IssueRequest) bool {
			return r.DocumentType == model.DocumentIncidentReport &&
				r.Title == "Incident Report LK-1" &&
				r.IncidentID == "LK-1" &&
				r.GeneratedBy == "analyst-7" &&
				r.Filename == "report.pdf" &&
				string(r.Content) == "%PDF-1.7 report"
		})).Return(doc, nil).Once()
		mockIssuer.On("VerificationURL", testCode).Return("https://verify.example.org/verify/" + testCode).Once()

		body, contentType := multipartBody(t, "report.pdf", []byte("%PDF-1.7 report"), fields)
		req := httptest.NewRequest(http.MethodPost, "/documents", body)
		req.Header.Set("Content-Type", contentType)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var got issueResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.Equal(t, doc.ID, got.Document.ID)
		assert.Equal(t, "https://verify.example.org/verify/"+testCode, got.VerificationURL)
		mockIssuer.AssertExpectations(t)
	})

	t.Run("no file", func(t *testing.T) {
		app := fiber.New()
		app.Post("/documents", IssueDocument(new(serviceMocks.MockDocumentIssuer)))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/documents", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "FILE_REQUIRED", decodeError(t, resp).Error.Code)
	})

	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
		wantCode   string
	}{
		{name: "invalid request", serviceErr: fmt.Errorf("%w: title: cannot be blank", service.ErrInvalidRequest), wantStatus: http.StatusBadRequest, wantCode: "INVALID_REQUEST"},
		{name: "codes exhausted", serviceErr: service.ErrCodeGenerationExhausted, wantStatus: http.StatusServiceUnavailable, wantCode: "CODE_GENERATION_EXHAUSTED"},
		{name: "storage failure", serviceErr: errors.New("upload to storage: unreachable"), wantStatus: http.StatusInternalServerError, wantCode: "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockIssuer := new(serviceMocks.MockDocumentIssuer)
			app := fiber.New()
			app.Post("/documents", IssueDocument(mockIssuer))
			mockIssuer.On("Issue", mock.Anything, mock.Anything).Return(nil, tt.serviceErr).Once()

			body, contentType := multipartBody(t, "report.pdf", []byte("%PDF"), fields)
			req := httptest.NewRequest(http.MethodPost, "/documents", body)
			req.Header.Set("Content-Type", contentType)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCode, decodeError(t, resp).Error.Code)
			mockIssuer.AssertExpectations(t)
		})
	}
}

func TestListDocuments(t *testing.T) {
	mockIssuer := new(serviceMocks.MockDocumentIssuer)
	app := fiber.New()
	app.Get("/documents", ListDocuments(mockIssuer))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.DocumentListResult{
			Items: []model.Document{{ID: uuid.New().String(), Title: "Incident Report LK-1"}},
			Total: 1,
		}
		mockIssuer.On("List", mock.Anything, 10, 0).Return(expectedRes, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=10&offset=0", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.DocumentListResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockIssuer.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?limit=abc", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_LIMIT", decodeError(t, resp).Error.Code)
	})

	t.Run("negative offset", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents?offset=-1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_OFFSET", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockIssuer.On("List", mock.Anything, 10, 0).Return(nil, errors.New("service error")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockIssuer.AssertExpectations(t)
	})
}

func TestGetDocument(t *testing.T) {
	mockIssuer := new(serviceMocks.MockDocumentIssuer)
	app := fiber.New()
	app.Get("/documents/:id", GetDocument(mockIssuer))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		mockIssuer.On("Get", mock.Anything, id).Return(&model.Document{ID: id, VerificationCode: testCode}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.Equal(t, id, result.ID)
		mockIssuer.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockIssuer.On("Get", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
		mockIssuer.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/invalid-uuid", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_ID", decodeError(t, resp).Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		id := uuid.New().String()
		mockIssuer.On("Get", mock.Anything, id).Return(nil, errors.New("db error")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/documents/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockIssuer.AssertExpectations(t)
	})
}

func TestRevokeDocument(t *testing.T) {
	mockIssuer := new(serviceMocks.MockDocumentIssuer)
	app := fiber.New()
	app.Post("/documents/:id/revoke", RevokeDocument(mockIssuer))

	t.Run("success", func(t *testing.T) {
		id := uuid.New().String()
		revokedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		mockIssuer.On("Revoke", mock.Anything, id).Return(&model.Document{ID: id, IsVerified: false, RevokedAt: &revokedAt}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/documents/"+id+"/revoke", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.Document
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
		assert.False(t, result.IsVerified)
		require.NotNil(t, result.RevokedAt)
		mockIssuer.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		id := uuid.New().String()
		mockIssuer.On("Revoke", mock.Anything, id).Return(nil, service.ErrNotFound).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/documents/"+id+"/revoke", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockIssuer.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/documents/nope/revoke", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestVerifyCode(t *testing.T) {
	mockEngine := new(serviceMocks.MockVerificationEngine)
	app := fiber.New()
	app.Get("/verify/:code", VerifyCode(mockEngine))

	t.Run("valid document", func(t *testing.T) {
		mockEngine.On("Verify", mock.Anything, testCode, service.VerifyOptions{}).Return(&model.VerificationResult{
			Code:        testCode,
			Valid:       true,
			ContentHash: strings.Repeat("a", 64),
			Document:    &model.PublicDocument{Title: "Incident Report LK-1", ContentHashPrefix: strings.Repeat("a", 16)},
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/verify/"+testCode, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.VerificationResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.True(t, got.Valid)
		assert.Equal(t, "Incident Report LK-1", got.Document.Title)
	})

	t.Run("negative outcome is a 200", func(t *testing.T) {
		mockEngine.On("Verify", mock.Anything, "LK-DOC-2026-ZZZZZZZZ", service.VerifyOptions{IncludeChain: true}).Return(&model.VerificationResult{
			Code:    "LK-DOC-2026-ZZZZZZZZ",
			Reason:  model.ReasonCodeNotFound,
			Message: model.ReasonCodeNotFound.Message(),
		}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/verify/LK-DOC-2026-ZZZZZZZZ?include_chain=true", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var got model.VerificationResult
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		assert.False(t, got.Valid)
		assert.Equal(t, model.ReasonCodeNotFound, got.Reason)
	})

	t.Run("infrastructure failure", func(t *testing.T) {
		mockEngine.On("Verify", mock.Anything, "LK-DOC-2026-00000000", service.VerifyOptions{}).Return(nil, errors.New("lookup: connection refused")).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/verify/LK-DOC-2026-00000000", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.NotContains(t, decodeError(t, resp).Error.Message, "connection refused")
	})
	mockEngine.AssertExpectations(t)
}

func TestVerifyPayload(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
		wantOpts service.VerifyOptions
	}{
		{name: "typed code", body: `{"code":" lk-doc-2026-ab12cd34 "}`, wantCode: " lk-doc-2026-ab12cd34 "},
		{name: "scanned verify url", body: `{"payload":"https://verify.example.org/verify/` + testCode + `?src=qr","include_chain":true}`, wantCode: testCode, wantOpts: service.VerifyOptions{IncludeChain: true}},
		{name: "bare code inside text", body: `{"payload":"Verification: ` + testCode + `"}`, wantCode: testCode},
		{name: "text without a code is verified as-is", body: `{"payload":"hello"}`, wantCode: "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEngine := new(serviceMocks.MockVerificationEngine)
			app := fiber.New()
			app.Post("/verify", VerifyPayload(mockEngine, extract.New("LK")))

			mockEngine.On("Verify", mock.Anything, tt.wantCode, tt.wantOpts).Return(&model.VerificationResult{Code: tt.wantCode}, nil).Once()

			req := httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			mockEngine.AssertExpectations(t)
		})
	}

	t.Run("malformed body", func(t *testing.T) {
		app := fiber.New()
		app.Post("/verify", VerifyPayload(new(serviceMocks.MockVerificationEngine), extract.New("LK")))

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/verify", strings.NewReader("code=x")))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Error.Code)
	})
}

func TestVerifyFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		fields   map[string]string
		wantCode string
		wantOpts service.VerifyOptions
	}{
		{name: "code in filename", filename: "Report_" + testCode + ".pdf", content: "%PDF", wantCode: testCode},
		{name: "code in text layer", filename: "scan.txt", content: "Verify at https://x.org/verify/" + testCode, wantCode: testCode, fields: map[string]string{"include_chain": "true"}, wantOpts: service.VerifyOptions{IncludeChain: true}},
		{name: "nothing recognizable", filename: "photo.jpg", content: "\xff\xd8\xff", wantCode: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockEngine := new(serviceMocks.MockVerificationEngine)
			app := fiber.New()
			app.Post("/verify/file", VerifyFile(mockEngine, extract.New("LK")))

			mockEngine.On("Verify", mock.Anything, tt.wantCode, tt.wantOpts).Return(&model.VerificationResult{Code: tt.wantCode}, nil).Once()

			body, contentType := multipartBody(t, tt.filename, []byte(tt.content), tt.fields)
			req := httptest.NewRequest(http.MethodPost, "/verify/file", body)
			req.Header.Set("Content-Type", contentType)
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			mockEngine.AssertExpectations(t)
		})
	}
}

func TestRouting(t *testing.T) {
	secret := []byte("routing-secret")
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockEngine := new(serviceMocks.MockVerificationEngine)
	mockIssuer := new(serviceMocks.MockDocumentIssuer)
	RegisterRoutes(app, Deps{
		Ledger: new(serviceMocks.MockEvidenceLedger),
		Issuer: mockIssuer,
		Engine: mockEngine,
		Auth:   middleware.JWTAuth(secret, ""),
	})

	t.Run("not found route", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/non-existent", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/health", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		assert.Equal(t, "METHOD_NOT_ALLOWED", decodeError(t, resp).Error.Code)
	})

	t.Run("internal routes require a token", func(t *testing.T) {
		for _, path := range []string{"/documents", "/incidents/LK-1/evidence"} {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp).Error.Code)
		}
	})

	t.Run("internal routes accept a valid token", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
			Subject:   "analyst-7",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}).SignedString(secret)
		require.NoError(t, err)
		mockIssuer.On("List", mock.Anything, 10, 0).Return(&service.DocumentListResult{Items: []model.Document{}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/documents", nil)
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+tok)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockIssuer.AssertExpectations(t)
	})

	t.Run("verification is public", func(t *testing.T) {
		mockEngine.On("Verify", mock.Anything, testCode, service.VerifyOptions{}).Return(&model.VerificationResult{Code: testCode, Valid: true}, nil).Once()

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/verify/"+testCode, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockEngine.AssertExpectations(t)
	})
}
