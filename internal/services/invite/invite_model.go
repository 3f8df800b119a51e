package invite

import "time"

type InviteCode struct {
	ID          string     `db:"id" json:"id"`
	Code        string     `db:"code" json:"code"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	MaxUses     int        `db:"max_uses" json:"max_uses"`
	CurrentUses int        `db:"current_uses" json:"current_uses"`
	CreditBonus int64      `db:"credit_bonus" json:"credit_bonus"`
	Description string     `db:"description" json:"description"`
	ExpiresAt   *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	Active      bool       `db:"active" json:"active"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

type Redemption struct {
	ID         string    `db:"id" json:"id"`
	CodeID     string    `db:"code_id" json:"code_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	RedeemedAt time.Time `db:"redeemed_at" json:"redeemed_at"`
}

type CreateInviteCodeRequest struct {
	MaxUses     int        `json:"maxUses"`
	CreditBonus int64      `json:"creditBonus"`
	Description string     `json:"description"`
	ExpiresAt   *time.Time `json:"expiresAt"`
}

// ValidationResult is returned by Validate. Business outcomes are carried in
// the Error string, never as a Go error.
type ValidationResult struct {
	Valid         bool   `json:"valid"`
	Error         string `json:"error,omitempty"`
	RemainingUses int    `json:"remainingUses"`
	CreditBonus   int64  `json:"creditBonus"`
}

const (
	ValidationErrNotFound  = "NOT_FOUND"
	ValidationErrExpired   = "EXPIRED"
	ValidationErrExhausted = "EXHAUSTED"
	ValidationErrInactive  = "INACTIVE"
)

type RedeemResult struct {
	Redemption  *Redemption `json:"redemption"`
	CreditBonus int64       `json:"creditBonus"`
}
