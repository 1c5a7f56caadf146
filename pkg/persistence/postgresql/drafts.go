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

// DraftRepository handles draft-related database operations. Cells are stored as a JSONB
// array on the draft row.
type DraftRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDraftRepository creates a new draft repository.
func NewDraftRepository(db *sql.DB, logger *slog.Logger) *DraftRepository {
	return &DraftRepository{db: db, logger: logger}
}

const selectDrafts = `
	SELECT
		id
	  , title
	  , author
	  , version
	  , description
	  , cells
	  , next_cell_id
	  , created_at
	  , updated_at
	FROM drafts
`

// GetAll returns every draft ordered by id.
func (r *DraftRepository) GetAll(ctx context.Context) ([]*models.Draft, error) {
	rows, err := r.db.QueryContext(ctx, selectDrafts+" ORDER BY id")
	if err != nil {
		return nil, persistence.NewDraftError("GetAll", 0, fmt.Errorf("failed to query drafts: %w", err))
	}

	defer func() {
		err := rows.Close()
		if err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	drafts := make([]*models.Draft, 0)

	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, persistence.NewDraftError("GetAll", 0, err)
		}

		drafts = append(drafts, draft)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewDraftError("GetAll", 0, fmt.Errorf("error iterating drafts: %w", err))
	}

	return drafts, nil
}

// GetByID returns the draft or (nil, nil) when it does not exist.
func (r *DraftRepository) GetByID(ctx context.Context, id int64) (*models.Draft, error) {
	row := r.db.QueryRowContext(ctx, selectDrafts+" WHERE id = $1", id)

	draft, err := scanDraft(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, persistence.NewDraftError("GetByID", id, err)
	}

	return draft, nil
}

// Save inserts or replaces a draft.
func (r *DraftRepository) Save(ctx context.Context, draft *models.Draft) error {
	now := time.Now().UTC()
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = now
	}

	if draft.UpdatedAt.IsZero() {
		draft.UpdatedAt = now
	}

	cellsJSON, err := json.Marshal(cellsOrEmpty(draft.Cells))
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("failed to marshal cells: %w", err))
	}

	query := `
		INSERT INTO drafts (id, title, author, version, description, cells, next_cell_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			version = EXCLUDED.version,
			description = EXCLUDED.description,
			cells = EXCLUDED.cells,
			next_cell_id = EXCLUDED.next_cell_id,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		draft.ID,
		draft.Metadata.Title,
		draft.Metadata.Author,
		draft.Metadata.Version,
		draft.Metadata.Description,
		cellsJSON,
		draft.NextCellID,
		draft.CreatedAt,
		draft.UpdatedAt,
	)
	if err != nil {
		return persistence.NewDraftError("Save", draft.ID, fmt.Errorf("failed to save draft: %w", err))
	}

	return nil
}

// Delete removes a draft. Removing an absent draft is not an error.
func (r *DraftRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM drafts WHERE id = $1", id)
	if err != nil {
		return persistence.NewDraftError("Delete", id, fmt.Errorf("failed to delete draft: %w", err))
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (*models.Draft, error) {
	var (
		draft     models.Draft
		cellsJSON []byte
	)

	err := row.Scan(
		&draft.ID,
		&draft.Metadata.Title,
		&draft.Metadata.Author,
		&draft.Metadata.Version,
		&draft.Metadata.Description,
		&cellsJSON,
		&draft.NextCellID,
		&draft.CreatedAt,
		&draft.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(cellsJSON, &draft.Cells); err != nil {
		return nil, fmt.Errorf("%w: cells of draft %d: %w", persistence.ErrCorruptRecord, draft.ID, err)
	}

	return &draft, nil
}

func cellsOrEmpty(cells []models.Cell) []models.Cell {
	if cells == nil {
		return []models.Cell{}
	}

	return cells
}
