package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260702090000",
		up:      mig_20260702090000_flow_runs_up,
		down:    mig_20260702090000_flow_runs_down,
	})
}

func mig_20260702090000_flow_runs_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS flow_runs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			flow_slug VARCHAR(64) NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'deleted')),
			is_public BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_flow_runs_user_id ON flow_runs(user_id);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS flow_run_steps (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			run_id UUID NOT NULL REFERENCES flow_runs(id) ON DELETE CASCADE,
			step_slug VARCHAR(64) NOT NULL,
			step_order INTEGER NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(run_id, step_slug)
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS flow_run_step_assets (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			step_id UUID NOT NULL REFERENCES flow_run_steps(id) ON DELETE CASCADE,
			storage_key VARCHAR(500) NOT NULL,
			kind VARCHAR(16) NOT NULL CHECK (kind IN ('uploaded', 'generated')),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_flow_run_steps_run_id ON flow_run_steps(run_id);
	`)
	if err != nil {
		return err
	}

	return nil
}

func mig_20260702090000_flow_runs_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS flow_run_step_assets;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP TABLE IF EXISTS flow_run_steps;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP TABLE IF EXISTS flow_runs;`)
	return err
}
