package flowrun

import "time"

type RunStatus string

const (
	StatusActive  RunStatus = "active"
	StatusDeleted RunStatus = "deleted"
)

type AssetKind string

const (
	AssetUploaded  AssetKind = "uploaded"
	AssetGenerated AssetKind = "generated"
)

// FlowRun is one execution instance of a named multi-step generation flow.
// Lifecycle: active -> deleted -> active (restored), or purged (terminal).
type FlowRun struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	FlowSlug  string    `db:"flow_slug" json:"flow_slug"`
	Status    RunStatus `db:"status" json:"status"`
	IsPublic  bool      `db:"is_public" json:"is_public"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type FlowRunStep struct {
	ID        string    `db:"id" json:"id"`
	RunID     string    `db:"run_id" json:"run_id"`
	StepSlug  string    `db:"step_slug" json:"step_slug"`
	StepOrder int       `db:"step_order" json:"step_order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type FlowRunStepAsset struct {
	ID         string    `db:"id" json:"id"`
	StepID     string    `db:"step_id" json:"step_id"`
	StorageKey string    `db:"storage_key" json:"storage_key"`
	Kind       AssetKind `db:"kind" json:"kind"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
