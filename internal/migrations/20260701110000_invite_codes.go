package migrations

import "github.com/jmoiron/sqlx"

func init() {
	m.addMigration(&migration{
		version: "20260701110000",
		up:      mig_20260701110000_invite_codes_up,
		down:    mig_20260701110000_invite_codes_down,
	})
}

func mig_20260701110000_invite_codes_up(tx *sqlx.Tx) error {
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS invite_codes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			code VARCHAR(12) NOT NULL UNIQUE,
			created_by TEXT NOT NULL REFERENCES users(id),
			max_uses INTEGER NOT NULL DEFAULT 1,
			current_uses INTEGER NOT NULL DEFAULT 0,
			credit_bonus INTEGER NOT NULL DEFAULT 0,
			description TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMP WITH TIME ZONE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			CHECK (current_uses <= max_uses)
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_invite_codes_code ON invite_codes(code);
	`)
	if err != nil {
		return err
	}

	// One redemption per (code, user)
	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS invite_code_redemptions (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			code_id UUID NOT NULL REFERENCES invite_codes(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			redeemed_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			UNIQUE(code_id, user_id)
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_invite_code_redemptions_user_id ON invite_code_redemptions(user_id);
	`)
	if err != nil {
		return err
	}

	return nil
}

func mig_20260701110000_invite_codes_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS invite_code_redemptions;`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`DROP TABLE IF EXISTS invite_codes;`)
	return err
}
