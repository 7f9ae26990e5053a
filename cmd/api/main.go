package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"custodyapi/docs"
	"custodyapi/internal/config"
	"custodyapi/internal/extract"
	handlers "custodyapi/internal/http/handler"
	"custodyapi/internal/http/middleware"
	"custodyapi/internal/logging"
	"custodyapi/internal/metrics"
	appotel "custodyapi/internal/otel"
	"custodyapi/internal/service"
)

// @title Custody API
// @version 1.0
// @description Evidence ledger and document verification.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.UTC
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, loc)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := appotel.Init(ctx, logger)
	if err != nil {
		fatal(logger, "failed to initialize tracing", err)
	}

	be, err := openBackend(ctx, cfg, logger)
	if err != nil {
		fatal(logger, "failed to initialize backend", err)
	}
	defer be.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	integrity, err := metrics.NewIntegrity(reg)
	if err != nil {
		fatal(logger, "failed to register integrity metrics", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg, "/health", "/healthz")
	if err != nil {
		fatal(logger, "failed to register http metrics", err)
	}

	// Services share one code prefix so issued codes always pass the format check
	prefix := cfg.Verification.CodePrefix
	ledger := service.NewEvidenceLedger(be.evidence, be.blobs, integrity, logger, service.LedgerOptions{
		MaxAppendAttempts: cfg.Ledger.MaxAppendAttempts,
		AppendBackoff:     time.Duration(cfg.Ledger.AppendBackoffMs) * time.Millisecond,
	})
	issuer := service.NewDocumentIssuer(be.blobs, be.documents, integrity, logger, service.IssuerOptions{
		Codes:           service.NewCodeGenerator(prefix),
		MaxCodeAttempts: cfg.Verification.MaxCodeAttempts,
		PublicBaseURL:   cfg.Verification.PublicBaseURL,
	})
	engine := service.NewVerificationEngine(be.documents, be.blobs, ledger, service.NewCodeFormat(prefix), integrity, logger)

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.BodyLimitMB << 20,
		DisableStartupMessage: true,
		Immutable:             true,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(logger))
	app.Use(otelfiber.Middleware())
	app.Use(httpMetrics.Handler())
	// Verification is embedded in third-party pages that scan QR codes
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST",
		AllowHeaders: "Origin, Content-Type, Authorization, " + middleware.RequestIDHeader,
	}))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	auth := middleware.Noop()
	if cfg.Auth.JWTSecret != "" {
		auth = middleware.JWTAuth([]byte(cfg.Auth.JWTSecret), cfg.Auth.Issuer)
	} else {
		logger.Warn("AUTH_JWT_SECRET is empty, internal routes are unauthenticated", "component", "server")
	}

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:        be.pinger(),
		Ledger:    ledger,
		Issuer:    issuer,
		Engine:    engine,
		Extractor: extract.New(cfg.Verification.CodePrefix),
		Auth:      auth,
	})

	addr := ":" + cfg.Port
	go func() {
		logger.Info("server listening", "component", "server", "addr", addr, "backend", cfg.Backend)
		if err := app.Listen(addr); err != nil {
			logger.Error("failed to start server", "component", "server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down", "component", "server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("server shutdown failed", "component", "server", "error", err)
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		logger.Error("tracing shutdown failed", "component", "tracing", "error", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
