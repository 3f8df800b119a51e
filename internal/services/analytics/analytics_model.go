package analytics

import "time"

type EventType string

const (
	EventSignup          EventType = "signup"
	EventGenerationStage EventType = "generation_stage"
	EventInviteRedeemed  EventType = "invite_redeemed"
	EventCreditsConsumed EventType = "credits_consumed"
)

type Event struct {
	Type     EventType
	UserID   string
	EntityID string
	Amount   int64
}

// SummaryRow is one (day, event type) aggregate for the admin dashboard.
type SummaryRow struct {
	Day        time.Time `json:"day"`
	EventType  string    `json:"eventType"`
	Count      uint64    `json:"count"`
	TotalValue int64     `json:"totalValue"`
}
