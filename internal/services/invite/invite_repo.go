package invite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrCodeNotFound    = errors.New("invite code not found")
	ErrDuplicateCode   = errors.New("invite code already exists")
	ErrAlreadyRedeemed = errors.New("invite code already redeemed by this user")
	ErrNoUsesLeft      = errors.New("invite code has no uses left")
)

const uniqueViolation = "23505"

const codeColumns = "id, code, created_by, max_uses, current_uses, credit_bonus, description, expires_at, active, created_at"

type InviteRepo struct {
	db *sqlx.DB
}

func NewInviteRepo(db *sqlx.DB) *InviteRepo {
	return &InviteRepo{db: db}
}

func (r *InviteRepo) Create(ctx context.Context, code string, createdBy string, req *CreateInviteCodeRequest) (*InviteCode, error) {
	query := `
		INSERT INTO invite_codes (code, created_by, max_uses, credit_bonus, description, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + codeColumns + `
	`

	var ic InviteCode
	err := r.db.GetContext(ctx, &ic, query, code, createdBy, req.MaxUses, req.CreditBonus, req.Description, req.ExpiresAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("failed to create invite code: %w", err)
	}

	return &ic, nil
}

func (r *InviteRepo) GetByCode(ctx context.Context, code string) (*InviteCode, error) {
	query := `
		SELECT ` + codeColumns + `
		FROM invite_codes
		WHERE code = $1
	`

	var ic InviteCode
	err := r.db.GetContext(ctx, &ic, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to get invite code: %w", err)
	}

	return &ic, nil
}

func (r *InviteRepo) List(ctx context.Context) ([]*InviteCode, error) {
	query := `
		SELECT ` + codeColumns + `
		FROM invite_codes
		ORDER BY created_at DESC
	`

	var codes []*InviteCode
	err := r.db.SelectContext(ctx, &codes, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list invite codes: %w", err)
	}

	return codes, nil
}

func (r *InviteRepo) Deactivate(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE invite_codes SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate invite code: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrCodeNotFound
	}

	return nil
}

// Redeem inserts the redemption row and takes one use slot in a single
// transaction. The conditional update serializes redemptions racing the last
// slot: whoever loses the race sees zero affected rows and the whole
// transaction rolls back.
func (r *InviteRepo) Redeem(ctx context.Context, codeID, userID string) (*Redemption, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin redemption: %w", err)
	}
	defer tx.Rollback()

	var redemption Redemption
	err = tx.GetContext(ctx, &redemption, `
		INSERT INTO invite_code_redemptions (code_id, user_id)
		VALUES ($1, $2)
		RETURNING id, code_id, user_id, redeemed_at
	`, codeID, userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, ErrAlreadyRedeemed
		}
		return nil, fmt.Errorf("failed to insert redemption: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE invite_codes
		SET current_uses = current_uses + 1
		WHERE id = $1
		  AND active
		  AND current_uses < max_uses
		  AND (expires_at IS NULL OR expires_at > NOW())
	`, codeID)
	if err != nil {
		return nil, fmt.Errorf("failed to take use slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return nil, ErrNoUsesLeft
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return &redemption, nil
}
