package credit

import "time"

type TransactionType string

const (
	TypeGrant           TransactionType = "grant"
	TypePurchase        TransactionType = "purchase"
	TypeConsumption     TransactionType = "consumption"
	TypeAdminAdjustment TransactionType = "admin_adjustment"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypeGrant, TypePurchase, TypeConsumption, TypeAdminAdjustment:
		return true
	}
	return false
}

// CreditTransaction is one signed ledger row. A user's balance is the sum of
// all non-expired rows; it is never stored directly.
type CreditTransaction struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	Amount    int64           `db:"amount" json:"amount"`
	Type      TransactionType `db:"type" json:"type"`
	Reason    string          `db:"reason" json:"reason"`
	ExpiresAt *time.Time      `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
