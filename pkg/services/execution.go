package services

import (
	"context"
	"fmt"

	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/execution"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"go.opentelemetry.io/otel/attribute"
)

// ExecuteCell runs cell on its server and service and returns a copy carrying the output.
// Nothing is stored.
func (l *Lifecycle) ExecuteCell(ctx context.Context, flowID int64, cell models.Cell) (_ models.Cell, err error) {
	ctx, done := l.begin(ctx, "ExecuteCell",
		attribute.Int64(otelhelper.DraftIDKey, flowID),
		attribute.Int64(otelhelper.CellIDKey, cell.ID),
		attribute.String(otelhelper.ServerKey, cell.Server),
		attribute.String(otelhelper.ServiceKey, cell.Service),
	)
	defer done(&err)

	output, err := l.executor.Execute(ctx, execution.Request{
		FlowID:       flowID,
		CellID:       cell.ID,
		Code:         cell.Code,
		Server:       cell.Server,
		Service:      cell.Service,
		Dependencies: cell.Dependencies,
	})
	if err != nil {
		return cell, executionError("ExecuteCell", flowID, err)
	}

	return cell.WithOutput(output), nil
}

// RunCell executes one cell of a draft and stores its output. The executor is called without
// holding the store lock; the output is applied to the draft as it is when execution ends.
func (l *Lifecycle) RunCell(ctx context.Context, draftID, cellID int64) (*models.Cell, error) {
	draft, err := l.loadDraft(ctx, "RunCell", draftID)
	if err != nil {
		return nil, err
	}

	cell, ok := draft.Cell(cellID)
	if !ok {
		return nil, newFlowError("RunCell", draftID, fmt.Errorf("%w: %d", models.ErrCellNotFound, cellID))
	}

	executed, err := l.ExecuteCell(ctx, draftID, cell)
	if err != nil {
		return nil, err
	}

	return l.storeOutput(ctx, "RunCell", draftID, executed)
}

// ExecuteDraft runs every cell of a draft in order, storing each output as it arrives. It
// stops at the first failure; outputs of the cells that ran before it are kept.
func (l *Lifecycle) ExecuteDraft(ctx context.Context, draftID int64) (_ *models.Draft, err error) {
	ctx, done := l.begin(ctx, "ExecuteDraft", attribute.Int64(otelhelper.DraftIDKey, draftID))
	defer done(&err)

	draft, err := l.loadDraft(ctx, "ExecuteDraft", draftID)
	if err != nil {
		return nil, err
	}

	for _, cell := range draft.Cells {
		executed, err := l.ExecuteCell(ctx, draftID, cell)
		if err != nil {
			return nil, err
		}

		if _, err := l.storeOutput(ctx, "ExecuteDraft", draftID, executed); err != nil {
			return nil, err
		}
	}

	return l.Draft(ctx, draftID)
}

func (l *Lifecycle) storeOutput(ctx context.Context, op string, draftID int64, executed models.Cell) (*models.Cell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	draft, err := l.loadDraft(ctx, op, draftID)
	if err != nil {
		return nil, err
	}

	updated, err := draft.UpdateCell(l.catalog, executed.ID, models.CellFieldOutput, *executed.Output)
	if err != nil {
		return nil, newFlowError(op, draftID, err)
	}

	if err := l.saveDraft(ctx, op, updated); err != nil {
		return nil, err
	}

	l.emitDraftUpdated(ctx, draftID, events.ChangeCellExecuted, executed.ID)

	cell, _ := updated.Cell(executed.ID)

	return &cell, nil
}
