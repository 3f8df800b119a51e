package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260701100000",
		up:      mig_20260701100000_credit_transactions_up,
		down:    mig_20260701100000_credit_transactions_down,
	})
}

func mig_20260701100000_credit_transactions_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS credit_transactions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			type VARCHAR(32) NOT NULL CHECK (type IN ('grant', 'purchase', 'consumption', 'admin_adjustment')),
			reason TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMP WITH TIME ZONE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_credit_transactions_user_id ON credit_transactions(user_id);
	`)
	if err != nil {
		return err
	}

	// Balance queries filter on expiry
	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_credit_transactions_expires_at ON credit_transactions(expires_at);
	`)
	if err != nil {
		return err
	}

	return nil
}

func mig_20260701100000_credit_transactions_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS credit_transactions;`)
	return err
}
