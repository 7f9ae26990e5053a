package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"custodyapi/internal/config"
	"custodyapi/internal/database"
	"custodyapi/internal/database/migration"
	handlers "custodyapi/internal/http/handler"
	"custodyapi/internal/repository"
	"custodyapi/internal/repository/memory"
	"custodyapi/internal/repository/postgres"
	"custodyapi/internal/storage"
)

// backend bundles the stores selected by BACKEND.
type backend struct {
	db        *sql.DB
	evidence  repository.EvidenceRepository
	documents repository.DocumentRepository
	blobs     storage.Storage
}

func openBackend(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory backend, ledger and documents are lost on restart", "component", "server")
		return &backend{
			evidence:  memory.NewEvidenceStore(),
			documents: memory.NewDocumentStore(),
			blobs:     storage.NewMemory(),
		}, nil

	case config.BackendPostgres:
		// Initialize PostgreSQL connection (with pooling via database/sql)
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
			_ = db.Close()
			return nil, err
		}

		// Initialize reusable S3-compatible object storage client (MinIO-supported)
		blobs, err := storage.NewMinIO(ctx, cfg.MinIO)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("initialize object storage: %w", err)
		}
		return &backend{
			db:        db,
			evidence:  postgres.NewEvidencePostgres(db),
			documents: postgres.NewDocumentPostgres(db),
			blobs:     blobs,
		}, nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// pinger avoids handing a typed nil *sql.DB to the health check.
func (b *backend) pinger() handlers.Pinger {
	if b.db == nil {
		return nil
	}
	return b.db
}

func (b *backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}
