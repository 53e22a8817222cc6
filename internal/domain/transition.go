package domain

import "context"

// StatusProcedureResult is the parsed outcome of the atomic
// status-change stored procedure
type StatusProcedureResult struct {
	AffectedUsers   int
	AffectedWorkers int
	CascadeApplied  bool
	Raw             []byte
}

// TransitionRepository is the elevated execution surface for status
// transitions. Implementations set a transaction-scoped acting-user
// context before invoking the procedure so row-level authorization can
// be bypassed for the administrative write without leaking that context
// onto the pooled connection.
type TransitionRepository interface {
	ExecuteStatusProcedure(ctx context.Context, actingUserID, targetUserID string, newStatus Status, reason string, cascade bool) (*StatusProcedureResult, error)
}
