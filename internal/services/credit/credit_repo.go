package credit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrInsufficientBalance is returned when a consumption would take the
// non-expired balance below zero.
var ErrInsufficientBalance = errors.New("insufficient credit balance")

type CreditRepo struct {
	db *sqlx.DB
}

func NewCreditRepo(db *sqlx.DB) *CreditRepo {
	return &CreditRepo{db: db}
}

func (r *CreditRepo) Insert(ctx context.Context, userID string, amount int64, typ TransactionType, reason string, expiresAt *time.Time) (*CreditTransaction, error) {
	query := `
		INSERT INTO credit_transactions (user_id, amount, type, reason, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, amount, type, reason, expires_at, created_at
	`

	var tx CreditTransaction
	err := r.db.GetContext(ctx, &tx, query, userID, amount, typ, reason, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert credit transaction: %w", err)
	}

	return &tx, nil
}

// InsertConsumption appends a negative row only when the current non-expired
// balance covers the amount. The balance check and the insert are one
// statement, so a racing consumption cannot take the balance negative.
func (r *CreditRepo) InsertConsumption(ctx context.Context, userID string, amount int64, reason string) (*CreditTransaction, error) {
	query := `
		INSERT INTO credit_transactions (user_id, amount, type, reason)
		SELECT $1, -$2::bigint, 'consumption', $3
		WHERE (
			SELECT COALESCE(SUM(amount), 0)
			FROM credit_transactions
			WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > NOW())
		) >= $2
		RETURNING id, user_id, amount, type, reason, expires_at, created_at
	`

	var tx CreditTransaction
	err := r.db.GetContext(ctx, &tx, query, userID, amount, reason)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrInsufficientBalance
		}
		return nil, fmt.Errorf("failed to insert consumption: %w", err)
	}

	return &tx, nil
}

func (r *CreditRepo) Balance(ctx context.Context, userID string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM credit_transactions
		WHERE user_id = $1 AND (expires_at IS NULL OR expires_at > NOW())
	`

	var balance int64
	err := r.db.GetContext(ctx, &balance, query, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return balance, nil
}

func (r *CreditRepo) History(ctx context.Context, userID string, limit int) ([]*CreditTransaction, error) {
	query := `
		SELECT id, user_id, amount, type, reason, expires_at, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	var txs []*CreditTransaction
	err := r.db.SelectContext(ctx, &txs, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit history: %w", err)
	}

	return txs, nil
}
