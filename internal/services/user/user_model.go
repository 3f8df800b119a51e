package user

import "time"

type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleAdmin      UserRole = "admin"
	RoleFreeUser   UserRole = "free_user"
)

func (r UserRole) Valid() bool {
	return r == RoleSuperAdmin || r == RoleAdmin || r == RoleFreeUser
}

// IsAdmin reports whether the role grants access to the admin back-office.
func (r UserRole) IsAdmin() bool {
	return r == RoleSuperAdmin || r == RoleAdmin
}

type User struct {
	ID                  string    `db:"id" json:"id"`
	Email               string    `db:"email" json:"email"`
	DisplayName         string    `db:"display_name" json:"display_name"`
	Role                UserRole  `db:"role" json:"role"`
	PasswordHash        string    `db:"password_hash" json:"-"`
	PasswordAuthEnabled bool      `db:"password_auth_enabled" json:"password_auth_enabled"`
	SignupBonusClaimed  bool      `db:"signup_bonus_claimed" json:"signup_bonus_claimed"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// ListUsersQuery carries the admin listing filters. Each field maps to one
// fixed predicate in the repository.
type ListUsersQuery struct {
	Page   int
	Limit  int
	Role   UserRole
	Search string
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type SignupBonusResult struct {
	BonusAmount int64     `json:"bonusAmount"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
