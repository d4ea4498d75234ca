package types

// Status tracks the lifecycle of a persisted resource. Deleted rows are kept
// for audit purposes and excluded from reconciliation queries.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDeleted  Status = "deleted"
)
