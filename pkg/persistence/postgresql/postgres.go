// Package postgresql provides PostgreSQL persistence for drafts and live flows.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db           *sql.DB
	logger       *slog.Logger
	draftRepo    *DraftRepository
	liveFlowRepo *LiveFlowRepository
}

var (
	_ persistence.Persistence     = (*Persistence)(nil)
	_ persistence.AtomicPublisher = (*Persistence)(nil)
)

// NewPersistence creates a new PostgreSQL persistence layer and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:           database,
		logger:       logger,
		draftRepo:    NewDraftRepository(database, logger),
		liveFlowRepo: NewLiveFlowRepository(database, logger),
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

func (p *Persistence) Drafts(ctx context.Context) ([]*models.Draft, error) {
	return p.draftRepo.GetAll(ctx)
}

func (p *Persistence) DraftByID(ctx context.Context, id int64) (*models.Draft, error) {
	return p.draftRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveDraft(ctx context.Context, draft *models.Draft) error {
	return p.draftRepo.Save(ctx, draft)
}

func (p *Persistence) DeleteDraft(ctx context.Context, id int64) error {
	return p.draftRepo.Delete(ctx, id)
}

func (p *Persistence) LiveFlows(ctx context.Context) ([]*models.LiveFlow, error) {
	return p.liveFlowRepo.GetAll(ctx)
}

func (p *Persistence) LiveFlowByID(ctx context.Context, id int64) (*models.LiveFlow, error) {
	return p.liveFlowRepo.GetByID(ctx, id)
}

func (p *Persistence) SaveLiveFlow(ctx context.Context, flow *models.LiveFlow) error {
	return p.liveFlowRepo.Save(ctx, flow)
}

func (p *Persistence) DeleteLiveFlow(ctx context.Context, id int64) error {
	return p.liveFlowRepo.Delete(ctx, id)
}

// PublishDraft stores flow and deletes the draft it came from in one transaction.
func (p *Persistence) PublishDraft(ctx context.Context, flow *models.LiveFlow, draftID int64) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewLiveFlowError("Publish", flow.ID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	err = p.liveFlowRepo.saveTx(ctx, tx, flow)
	if err == nil {
		_, err = tx.ExecContext(ctx, "DELETE FROM drafts WHERE id = $1", draftID)
	}

	if err != nil {
		_ = tx.Rollback()

		return persistence.NewLiveFlowError("Publish", flow.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.NewLiveFlowError("Publish", flow.ID, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}
