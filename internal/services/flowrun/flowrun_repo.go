package flowrun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrRunNotFound = errors.New("flow run not found")

const runColumns = "id, user_id, flow_slug, status, is_public, created_at, updated_at"

type FlowRunRepo struct {
	db *sqlx.DB
}

func NewFlowRunRepo(db *sqlx.DB) *FlowRunRepo {
	return &FlowRunRepo{db: db}
}

func (r *FlowRunRepo) Create(ctx context.Context, userID, flowSlug string) (*FlowRun, error) {
	query := `
		INSERT INTO flow_runs (user_id, flow_slug)
		VALUES ($1, $2)
		RETURNING ` + runColumns + `
	`

	var run FlowRun
	err := r.db.GetContext(ctx, &run, query, userID, flowSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow run: %w", err)
	}

	return &run, nil
}

func (r *FlowRunRepo) GetByID(ctx context.Context, id string) (*FlowRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM flow_runs
		WHERE id = $1
	`

	var run FlowRun
	err := r.db.GetContext(ctx, &run, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get flow run: %w", err)
	}

	return &run, nil
}

func (r *FlowRunRepo) ListByUser(ctx context.Context, userID string, status RunStatus) ([]*FlowRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM flow_runs
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC
	`

	var runs []*FlowRun
	err := r.db.SelectContext(ctx, &runs, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list flow runs: %w", err)
	}

	return runs, nil
}

func (r *FlowRunRepo) SetStatus(ctx context.Context, id string, status RunStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE flow_runs SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to set run status: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (r *FlowRunRepo) SetPublic(ctx context.Context, id string, public bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE flow_runs SET is_public = $2, updated_at = NOW() WHERE id = $1`, id, public)
	if err != nil {
		return fmt.Errorf("failed to set run visibility: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}

// UpsertStep creates the (run, step) row on first use and returns its id.
func (r *FlowRunRepo) UpsertStep(ctx context.Context, runID, stepSlug string, stepOrder int) (string, error) {
	query := `
		INSERT INTO flow_run_steps (run_id, step_slug, step_order)
		VALUES ($1, $2, $3)
		ON CONFLICT (run_id, step_slug) DO UPDATE SET step_order = EXCLUDED.step_order
		RETURNING id
	`

	var id string
	err := r.db.GetContext(ctx, &id, query, runID, stepSlug, stepOrder)
	if err != nil {
		return "", fmt.Errorf("failed to upsert flow run step: %w", err)
	}

	return id, nil
}

func (r *FlowRunRepo) InsertAsset(ctx context.Context, stepID, storageKey string, kind AssetKind) (*FlowRunStepAsset, error) {
	query := `
		INSERT INTO flow_run_step_assets (step_id, storage_key, kind)
		VALUES ($1, $2, $3)
		RETURNING id, step_id, storage_key, kind, created_at
	`

	var asset FlowRunStepAsset
	err := r.db.GetContext(ctx, &asset, query, stepID, storageKey, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to insert flow run asset: %w", err)
	}

	return &asset, nil
}

// AssetKeys returns every storage key attached to a run, ordered by the flow's
// step definition order.
func (r *FlowRunRepo) AssetKeys(ctx context.Context, runID string) ([]string, error) {
	query := `
		SELECT a.storage_key
		FROM flow_run_step_assets a
		JOIN flow_run_steps s ON s.id = a.step_id
		WHERE s.run_id = $1
		ORDER BY s.step_order, a.created_at
	`

	var keys []string
	err := r.db.SelectContext(ctx, &keys, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset keys: %w", err)
	}

	return keys, nil
}

// DeleteRun removes the run row; steps and assets cascade.
func (r *FlowRunRepo) DeleteRun(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM flow_runs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete flow run: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrRunNotFound
	}

	return nil
}
