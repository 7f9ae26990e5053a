package handler

import (
	"github.com/gofiber/fiber/v2"

	"custodyapi/internal/extract"
	"custodyapi/internal/http/middleware"
	"custodyapi/internal/service"
)

// Deps are the collaborators the HTTP routes are served by.
type Deps struct {
	// DB is pinged by /health; nil for the memory backend.
	DB        Pinger
	Ledger    service.EvidenceLedger
	Issuer    service.DocumentIssuer
	Engine    service.VerificationEngine
	Extractor *extract.Extractor
	// Auth guards the internal routes. Nil leaves them open.
	Auth fiber.Handler
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Verification and health routes are public; evidence and document management
// sit behind d.Auth.
func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", LivenessProbe())

	extractor := d.Extractor
	if extractor == nil {
		extractor = extract.New("")
	}
	app.Get("/verify/:code", VerifyCode(d.Engine))
	app.Post("/verify", VerifyPayload(d.Engine, extractor))
	app.Post("/verify/file", VerifyFile(d.Engine, extractor))

	auth := d.Auth
	if auth == nil {
		auth = middleware.Noop()
	}

	incidents := app.Group("/incidents/:incident_id/evidence", auth)
	incidents.Post("/", AppendEvidence(d.Ledger))
	incidents.Post("/file", AppendEvidenceFile(d.Ledger))
	incidents.Get("/", ListEvidence(d.Ledger))
	incidents.Get("/verify", VerifyChain(d.Ledger))

	docs := app.Group("/documents", auth)
	docs.Post("/", IssueDocument(d.Issuer))
	docs.Get("/", ListDocuments(d.Issuer))
	docs.Get("/:id", GetDocument(d.Issuer))
	docs.Post("/:id/revoke", RevokeDocument(d.Issuer))
}
