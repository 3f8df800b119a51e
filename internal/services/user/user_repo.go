package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = "id, email, display_name, role, password_hash, password_auth_enabled, signup_bonus_claimed, created_at, updated_at"

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)
	`
	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Ensure inserts the account row on first authentication. An existing row for
// the same id or email is left untouched.
func (r *UserRepo) Ensure(ctx context.Context, id, email string) (*User, error) {
	query := `
		INSERT INTO users (id, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, query, id, email); err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}

	return r.GetByEmail(ctx, email)
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role UserRole) error {
	result, err := r.db.ExecContext(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, role)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

// MarkSignupBonusClaimed flips the claimed flag exactly once. Returns false
// when the flag was already set.
func (r *UserRepo) MarkSignupBonusClaimed(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE users
		SET signup_bonus_claimed = TRUE, updated_at = NOW()
		WHERE id = $1 AND NOT signup_bonus_claimed
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to mark signup bonus claimed: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return rows == 1, nil
}

// whereClause maps the typed listing filters to fixed predicates.
func (q *ListUsersQuery) whereClause() (string, []any) {
	conditions := []string{}
	args := []any{}

	if q.Role != "" {
		args = append(args, q.Role)
		conditions = append(conditions, "role = $"+strconv.Itoa(len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+q.Search+"%")
		n := strconv.Itoa(len(args))
		conditions = append(conditions, "(email ILIKE $"+n+" OR display_name ILIKE $"+n+")")
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *UserRepo) List(ctx context.Context, q *ListUsersQuery) ([]*User, int64, error) {
	where, args := q.whereClause()

	var total int64
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM users"+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	listArgs := append(args, q.Limit, offset)
	query := fmt.Sprintf(`
		SELECT `+userColumns+`
		FROM users%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	var users []*User
	err = r.db.SelectContext(ctx, &users, query, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	return users, total, nil
}
