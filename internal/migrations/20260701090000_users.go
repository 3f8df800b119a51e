package migrations

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	m.addMigration(&migration{
		version: "20260701090000",
		up:      mig_20260701090000_users_up,
		down:    mig_20260701090000_users_down,
	})
}

func mig_20260701090000_users_up(tx *sqlx.Tx) error {
	// id is the identity-provider subject (e.g. "auth0|..."), not a UUID.
	_, err := tx.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email VARCHAR(255) NOT NULL UNIQUE,
			display_name VARCHAR(255) NOT NULL DEFAULT '',
			role VARCHAR(32) NOT NULL DEFAULT 'free_user' CHECK (role IN ('super_admin', 'admin', 'free_user')),
			password_hash TEXT NOT NULL DEFAULT '',
			password_auth_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			signup_bonus_claimed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
	`)
	if err != nil {
		return err
	}

	_, err = tx.Exec(`
		CREATE INDEX IF NOT EXISTS idx_users_role ON users(role);
	`)
	if err != nil {
		return err
	}

	// Seed with default super-admin
	password := "admin"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash default password: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO users (id, email, display_name, role, password_hash, password_auth_enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING;
	`, uuid.NewString(), "admin@admin.com", "Super Admin", "super_admin", string(hashedPassword), true)

	return err
}

func mig_20260701090000_users_down(tx *sqlx.Tx) error {
	_, err := tx.Exec(`DROP TABLE IF EXISTS users;`)
	return err
}
