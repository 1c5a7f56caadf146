package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

// LiveFlowRepository handles live flow database operations. Versions live in flow_versions and
// keep their publication order in the position column.
type LiveFlowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewLiveFlowRepository creates a new live flow repository.
func NewLiveFlowRepository(db *sql.DB, logger *slog.Logger) *LiveFlowRepository {
	return &LiveFlowRepository{db: db, logger: logger}
}

const selectLiveFlows = `
	SELECT
		id
	  , live_version
	  , revision
	  , created_at
	  , updated_at
	FROM live_flows
`

// GetAll returns every live flow with its versions, ordered by id.
func (r *LiveFlowRepository) GetAll(ctx context.Context) ([]*models.LiveFlow, error) {
	rows, err := r.db.QueryContext(ctx, selectLiveFlows+" ORDER BY id")
	if err != nil {
		return nil, persistence.NewLiveFlowError("GetAll", 0, fmt.Errorf("failed to query live flows: %w", err))
	}

	flows := make([]*models.LiveFlow, 0)

	for rows.Next() {
		flow, err := scanLiveFlow(rows)
		if err != nil {
			_ = rows.Close()

			return nil, persistence.NewLiveFlowError("GetAll", 0, err)
		}

		flows = append(flows, flow)
	}

	err = rows.Err()

	if closeErr := rows.Close(); closeErr != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", closeErr)
	}

	if err != nil {
		return nil, persistence.NewLiveFlowError("GetAll", 0, fmt.Errorf("error iterating live flows: %w", err))
	}

	for _, flow := range flows {
		if err := r.loadVersions(ctx, flow); err != nil {
			return nil, persistence.NewLiveFlowError("GetAll", flow.ID, err)
		}
	}

	return flows, nil
}

// GetByID returns the live flow or (nil, nil) when it does not exist.
func (r *LiveFlowRepository) GetByID(ctx context.Context, id int64) (*models.LiveFlow, error) {
	row := r.db.QueryRowContext(ctx, selectLiveFlows+" WHERE id = $1", id)

	flow, err := scanLiveFlow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewLiveFlowError("GetByID", id, err)
	}

	if err := r.loadVersions(ctx, flow); err != nil {
		return nil, persistence.NewLiveFlowError("GetByID", id, err)
	}

	return flow, nil
}

// Save writes the live flow and replaces its version rows in one transaction.
func (r *LiveFlowRepository) Save(ctx context.Context, flow *models.LiveFlow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return persistence.NewLiveFlowError("Save", flow.ID, fmt.Errorf("failed to begin transaction: %w", err))
	}

	if err := r.saveTx(ctx, tx, flow); err != nil {
		_ = tx.Rollback()

		return persistence.NewLiveFlowError("Save", flow.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return persistence.NewLiveFlowError("Save", flow.ID, fmt.Errorf("failed to commit transaction: %w", err))
	}

	return nil
}

// Delete removes a live flow; its versions go with it through ON DELETE CASCADE.
func (r *LiveFlowRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM live_flows WHERE id = $1", id)
	if err != nil {
		return persistence.NewLiveFlowError("Delete", id, fmt.Errorf("failed to delete live flow: %w", err))
	}

	return nil
}

func (r *LiveFlowRepository) saveTx(ctx context.Context, tx *sql.Tx, flow *models.LiveFlow) error {
	now := time.Now().UTC()
	if flow.CreatedAt.IsZero() {
		flow.CreatedAt = now
	}

	if flow.UpdatedAt.IsZero() {
		flow.UpdatedAt = now
	}

	flowQuery := `
		INSERT INTO live_flows (id, live_version, revision, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			live_version = EXCLUDED.live_version,
			revision = EXCLUDED.revision,
			updated_at = EXCLUDED.updated_at
	`

	_, err := tx.ExecContext(ctx, flowQuery,
		flow.ID,
		flow.LiveVersion,
		flow.Revision,
		flow.CreatedAt,
		flow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save live flow base: %w", err)
	}

	// Versions are immutable but can be deleted, so the set is rewritten.
	_, err = tx.ExecContext(ctx, "DELETE FROM flow_versions WHERE live_flow_id = $1", flow.ID)
	if err != nil {
		return fmt.Errorf("failed to delete existing versions: %w", err)
	}

	versionQuery := `
		INSERT INTO flow_versions (id, live_flow_id, position, title, author, version, description, cells, source_draft_id, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	for position, version := range flow.Versions {
		cellsJSON, err := json.Marshal(cellsOrEmpty(version.Cells))
		if err != nil {
			return fmt.Errorf("failed to marshal cells of version %d: %w", version.ID, err)
		}

		sourceDraftID := sql.NullInt64{Int64: version.SourceDraftID, Valid: version.SourceDraftID != 0}

		_, err = tx.ExecContext(ctx, versionQuery,
			version.ID,
			flow.ID,
			position,
			version.Metadata.Title,
			version.Metadata.Author,
			version.Metadata.Version,
			version.Metadata.Description,
			cellsJSON,
			sourceDraftID,
			version.PublishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save version %d: %w", version.ID, err)
		}
	}

	return nil
}

func (r *LiveFlowRepository) loadVersions(ctx context.Context, flow *models.LiveFlow) error {
	query := `
		SELECT
			id
		  , title
		  , author
		  , version
		  , description
		  , cells
		  , source_draft_id
		  , published_at
		FROM flow_versions
		WHERE live_flow_id = $1
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, flow.ID)
	if err != nil {
		return fmt.Errorf("failed to query versions: %w", err)
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	flow.Versions = make([]models.Version, 0)

	for rows.Next() {
		var (
			version       models.Version
			cellsJSON     []byte
			sourceDraftID sql.NullInt64
		)

		err := rows.Scan(
			&version.ID,
			&version.Metadata.Title,
			&version.Metadata.Author,
			&version.Metadata.Version,
			&version.Metadata.Description,
			&cellsJSON,
			&sourceDraftID,
			&version.PublishedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to scan version: %w", err)
		}

		if err := json.Unmarshal(cellsJSON, &version.Cells); err != nil {
			return fmt.Errorf("%w: cells of version %d: %w", persistence.ErrCorruptRecord, version.ID, err)
		}

		version.SourceDraftID = sourceDraftID.Int64
		flow.Versions = append(flow.Versions, version)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating versions: %w", err)
	}

	return nil
}

func scanLiveFlow(row scanner) (*models.LiveFlow, error) {
	var flow models.LiveFlow

	err := row.Scan(
		&flow.ID,
		&flow.LiveVersion,
		&flow.Revision,
		&flow.CreatedAt,
		&flow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &flow, nil
}
