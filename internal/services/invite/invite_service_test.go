package invite

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cosify/cosify/internal/perrors"
	"github.com/cosify/cosify/internal/services/audit"
	"github.com/cosify/cosify/internal/services/credit"
)

func newMockInviteService(t *testing.T) (*InviteService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conn := sqlx.NewDb(db, "sqlmock")
	credits := credit.NewCreditService(credit.NewCreditRepo(conn), nil)
	auditor := audit.NewAuditService(audit.NewAuditRepo(conn))

	return NewInviteService(NewInviteRepo(conn), credits, auditor), mock
}

var pqUniqueViolation = pq.Error{Code: "23505"}

func inviteColumns() []string {
	return []string{"id", "code", "created_by", "max_uses", "current_uses", "credit_bonus", "description", "expires_at", "active", "created_at"}
}

func inviteRow(code string, maxUses, currentUses int, bonus int64, active bool, expiresAt *time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(inviteColumns()).
		AddRow("ic1", code, "admin1", maxUses, currentUses, bonus, "", expiresAt, active, time.Now())
}

func errorCode(t *testing.T, err error) string {
	t.Helper()

	var perr perrors.Err
	require.ErrorAs(t, err, &perr)
	return perr.ErrorCode()
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc, _ := newMockInviteService(t)

	_, err := svc.Create(context.Background(), "admin1", "admin@cosify.app", &CreateInviteCodeRequest{MaxUses: 0})
	require.Error(t, err)
	assert.Equal(t, "INVALID_INPUT", errorCode(t, err))

	_, err = svc.Create(context.Background(), "admin1", "admin@cosify.app", &CreateInviteCodeRequest{MaxUses: 5, CreditBonus: -1})
	require.Error(t, err)

	past := time.Now().Add(-time.Hour)
	_, err = svc.Create(context.Background(), "admin1", "admin@cosify.app", &CreateInviteCodeRequest{MaxUses: 5, ExpiresAt: &past})
	require.Error(t, err)
}

func TestValidateReportsOutcomesAsData(t *testing.T) {
	svc, mock := newMockInviteService(t)

	// Malformed codes never reach the database
	result, err := svc.Validate(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ValidationErrNotFound, result.Error)

	// Exhausted
	mock.ExpectQuery("SELECT (.+) FROM invite_codes").
		WithArgs("ABCD1234").
		WillReturnRows(inviteRow("ABCD1234", 3, 3, 25, true, nil))

	result, err = svc.Validate(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ValidationErrExhausted, result.Error)

	// Expired
	past := time.Now().Add(-time.Minute)
	mock.ExpectQuery("SELECT (.+) FROM invite_codes").
		WithArgs("ABCD1234").
		WillReturnRows(inviteRow("ABCD1234", 3, 0, 25, true, &past))

	result, err = svc.Validate(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.Equal(t, ValidationErrExpired, result.Error)

	// Usable
	mock.ExpectQuery("SELECT (.+) FROM invite_codes").
		WithArgs("ABCD1234").
		WillReturnRows(inviteRow("ABCD1234", 3, 1, 25, true, nil))

	result, err = svc.Validate(context.Background(), "ABCD1234")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, 2, result.RemainingUses)
	assert.Equal(t, int64(25), result.CreditBonus)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateNormalizesCase(t *testing.T) {
	svc, mock := newMockInviteService(t)

	mock.ExpectQuery("SELECT (.+) FROM invite_codes").
		WithArgs("ABCD1234").
		WillReturnRows(inviteRow("ABCD1234", 3, 0, 25, true, nil))

	result, err := svc.Validate(context.Background(), "  abcd1234 ")
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemGrantsBonus(t *testing.T) {
	svc, mock := newMockInviteService(t)

	mock.ExpectQuery("SELECT (.+) FROM invite_codes").
		WithArgs("ABCD1234").
		WillReturnRows(inviteRow("ABCD1234", 3, 1, 25, true, nil))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO invite_code_redemptions").
		WithArgs("ic1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code_id", "user_id", "redeemed_at"}).
			AddRow("r1", "ic1", "u1", time.Now()))
	mock.ExpectExec("UPDATE invite_codes").
		WithArgs("ic1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectQuery("INSERT INTO credit_transactions").
		WithArgs("u1", int64(25), "grant", "invite code ABCD1234", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "type", "reason", "expires_at", "created_at"}).
			AddRow("t1", "u1", int64(25), "grant", "invite code ABCD1234", nil, time.Now()))

	mock.ExpectQuery("INSERT INTO audit_trail").
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "actor_id", "actor_email", "entity_type", "entity_id", "old_value", "new_value", "metadata", "created_at"}).
			AddRow("a1", "invite_code.redeemed", "u1", "u1@cosify.app", "invite_code", "ic1", nil, nil, []byte("{}"), time.Now()))

	result, err := svc.Redeem(context.Background(), "ABCD1234", "u1", "u1@cosify.app")
	require.NoError(t, err)
	assert.Equal(t, int64(25), result.CreditBonus)
	assert.Equal(t, "r1", result.Redemption.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemOncePerUser(t *testing.T) {
	svc, mock := newMockInviteService(t)

	mock.ExpectQuery("SELECT (.+) FROM invite_codes").
		WithArgs("ABCD1234").
		WillReturnRows(inviteRow("ABCD1234", 3, 1, 25, true, nil))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO invite_code_redemptions").
		WithArgs("ic1", "u1").
		WillReturnError(&pqUniqueViolation)
	mock.ExpectRollback()

	_, err := svc.Redeem(context.Background(), "ABCD1234", "u1", "u1@cosify.app")
	require.Error(t, err)
	assert.Equal(t, "ALREADY_REDEEMED", errorCode(t, err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemLastSlotRace(t *testing.T) {
	svc, mock := newMockInviteService(t)

	// The snapshot read saw a free slot, but the conditional update loses the
	// race and affects zero rows.
	mock.ExpectQuery("SELECT (.+) FROM invite_codes").
		WithArgs("ABCD1234").
		WillReturnRows(inviteRow("ABCD1234", 3, 2, 25, true, nil))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO invite_code_redemptions").
		WithArgs("ic1", "u1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code_id", "user_id", "redeemed_at"}).
			AddRow("r1", "ic1", "u1", time.Now()))
	mock.ExpectExec("UPDATE invite_codes").
		WithArgs("ic1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := svc.Redeem(context.Background(), "ABCD1234", "u1", "u1@cosify.app")
	require.Error(t, err)
	assert.Equal(t, "CODE_EXHAUSTED", errorCode(t, err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRedeemUnknownCode(t *testing.T) {
	svc, mock := newMockInviteService(t)

	mock.ExpectQuery("SELECT (.+) FROM invite_codes").
		WithArgs("ABCD1234").
		WillReturnRows(sqlmock.NewRows(inviteColumns()))

	_, err := svc.Redeem(context.Background(), "ABCD1234", "u1", "u1@cosify.app")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", errorCode(t, err))
}
