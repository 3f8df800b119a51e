package migrations

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockTx(t *testing.T) (*sqlx.Tx, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	tx, err := sqlx.NewDb(db, "sqlmock").Beginx()
	require.NoError(t, err)

	return tx, mock
}

// User ids come from the identity provider (e.g. "auth0|..."), so the column
// must accept arbitrary subjects, not just UUIDs.
func TestUsersMigrationStoresTextIdentity(t *testing.T) {
	tx, mock := newMockTx(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users \( id TEXT PRIMARY KEY,`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_users_email").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_users_role").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO users").
		WithArgs(sqlmock.AnyArg(), "admin@admin.com", "Super Admin", "super_admin", sqlmock.AnyArg(), true).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, mig_20260701090000_users_up(tx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerMigrationReferencesTextUserIds(t *testing.T) {
	tx, mock := newMockTx(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS credit_transactions \(.+user_id TEXT NOT NULL REFERENCES users\(id\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, mig_20260701100000_credit_transactions_up(tx))
	require.NoError(t, mock.ExpectationsWereMet())
}
