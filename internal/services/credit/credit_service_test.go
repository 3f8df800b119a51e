package credit

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosify/cosify/internal/perrors"
)

func newMockService(t *testing.T) (*CreditService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewCreditService(NewCreditRepo(sqlx.NewDb(db, "sqlmock")), nil), mock
}

func txColumns() []string {
	return []string{"id", "user_id", "amount", "type", "reason", "expires_at", "created_at"}
}

func TestGrantRejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.Grant(context.Background(), "u1", 0, TypeGrant, "signup bonus", nil)
	require.Error(t, err)

	_, err = svc.Grant(context.Background(), "u1", -10, TypeGrant, "signup bonus", nil)
	require.Error(t, err)
}

func TestGrantRejectsConsumptionType(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.Grant(context.Background(), "u1", 5, TypeConsumption, "sneaky", nil)
	require.Error(t, err)

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "INVALID_INPUT", perr.ErrorCode())
}

func TestGrantInsertsPositiveRow(t *testing.T) {
	svc, mock := newMockService(t)

	expiry := time.Now().Add(365 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO credit_transactions (user_id, amount, type, reason, expires_at)")).
		WithArgs("u1", int64(100), string(TypeGrant), "signup bonus", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(txColumns()).
			AddRow("t1", "u1", int64(100), "grant", "signup bonus", expiry, time.Now()))

	tx, err := svc.Grant(context.Background(), "u1", 100, TypeGrant, "signup bonus", &expiry)
	require.NoError(t, err)
	assert.Equal(t, int64(100), tx.Amount)
	assert.Equal(t, TypeGrant, tx.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeAppendsNegativeRow(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("INSERT INTO credit_transactions").
		WithArgs("u1", int64(1), "generation stage1").
		WillReturnRows(sqlmock.NewRows(txColumns()).
			AddRow("t2", "u1", int64(-1), "consumption", "generation stage1", nil, time.Now()))

	tx, err := svc.Consume(context.Background(), "u1", 1, "generation stage1")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), tx.Amount)
	assert.Equal(t, TypeConsumption, tx.Type)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeInsufficientBalance(t *testing.T) {
	svc, mock := newMockService(t)

	// The guarded insert returns no row when the balance does not cover the
	// amount.
	mock.ExpectQuery("INSERT INTO credit_transactions").
		WithArgs("u1", int64(5), "generation stage1").
		WillReturnRows(sqlmock.NewRows(txColumns()))

	_, err := svc.Consume(context.Background(), "u1", 5, "generation stage1")
	require.Error(t, err)

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "INSUFFICIENT_CREDITS", perr.ErrorCode())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeRejectsNonPositiveAmount(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.Consume(context.Background(), "u1", 0, "noop")
	require.Error(t, err)
}

func TestAdjustAllowsNegativeAmount(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("INSERT INTO credit_transactions").
		WithArgs("u1", int64(-50), string(TypeAdminAdjustment), "chargeback", nil).
		WillReturnRows(sqlmock.NewRows(txColumns()).
			AddRow("t3", "u1", int64(-50), "admin_adjustment", "chargeback", nil, time.Now()))

	tx, err := svc.Adjust(context.Background(), "u1", -50, "chargeback", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(-50), tx.Amount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustRejectsZeroAmount(t *testing.T) {
	svc, _ := newMockService(t)

	_, err := svc.Adjust(context.Background(), "u1", 0, "noop", nil)
	require.Error(t, err)
}

func TestBalanceSumsNonExpiredRows(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(42)))

	balance, err := svc.Balance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryNormalizesLimit(t *testing.T) {
	svc, mock := newMockService(t)

	mock.ExpectQuery("SELECT id, user_id, amount").
		WithArgs("u1", 50).
		WillReturnRows(sqlmock.NewRows(txColumns()))

	txs, err := svc.History(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Empty(t, txs)
	assert.NotNil(t, txs)
	require.NoError(t, mock.ExpectationsWereMet())
}
