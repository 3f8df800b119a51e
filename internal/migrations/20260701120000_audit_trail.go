package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260701120000",
		up:      mig_20260701120000_audit_trail_up,
		down:    mig_20260701120000_audit_trail_down,
	})
}

func mig_20260701120000_audit_trail_up(tx *sqlx.Tx) error {
	// Append-only: rows are never updated or deleted by application code
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS audit_trail (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			action VARCHAR(64) NOT NULL,
			actor_id TEXT,
			actor_email VARCHAR(255) NOT NULL DEFAULT '',
			entity_type VARCHAR(64) NOT NULL,
			entity_id VARCHAR(64) NOT NULL DEFAULT '',
			old_value JSONB,
			new_value JSONB,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_trail_entity_type ON audit_trail(entity_type);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_trail_actor_id ON audit_trail(actor_id);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_audit_trail_created_at ON audit_trail(created_at);
	`)
	if err != nil {
		return err
	}

	return nil
}

func mig_20260701120000_audit_trail_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS audit_trail;`)
	return err
}
