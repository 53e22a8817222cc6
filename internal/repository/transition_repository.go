package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shlee8313/4-social-insurnace-sub001/internal/domain"
)

// PostgresTransitionRepository implements domain.TransitionRepository.
// It runs the status procedure inside one transaction with the acting
// user bound via a transaction-scoped setting, so row-level policies
// see the elevated context and pooled connections can never leak it.
type PostgresTransitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTransitionRepository creates a new transition repository
func NewPostgresTransitionRepository(db *sql.DB, logger *slog.Logger) *PostgresTransitionRepository {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTransitionRepository{
		db:     db,
		logger: logger,
	}
}

// procedurePayload mirrors the JSON document the procedure returns
type procedurePayload struct {
	AffectedUsers   int  `json:"affected_users"`
	AffectedWorkers int  `json:"affected_workers"`
	CascadeApplied  bool `json:"cascade_applied"`
}

// ExecuteStatusProcedure runs admin_change_entity_status atomically
func (r *PostgresTransitionRepository) ExecuteStatusProcedure(ctx context.Context, actingUserID, targetUserID string, newStatus domain.Status, reason string, cascade bool) (*domain.StatusProcedureResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// is_local=true scopes the setting to this transaction only
	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.acting_user', $1, true)`, actingUserID); err != nil {
		return nil, fmt.Errorf("failed to set acting user context: %w", err)
	}

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT admin_change_entity_status($1, $2, $3, $4)`,
		targetUserID, newStatus, reason, cascade,
	).Scan(&raw)
	if err != nil {
		r.logger.Error("status procedure failed",
			slog.String("target_user_id", targetUserID),
			slog.String("new_status", string(newStatus)),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("status procedure failed: %w", err)
	}

	// clear explicitly as well; rollback/commit would drop it anyway
	if _, err := tx.ExecContext(ctx, `SELECT set_config('app.acting_user', '', true)`); err != nil {
		return nil, fmt.Errorf("failed to clear acting user context: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit status transition: %w", err)
	}

	var payload procedurePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		// the transition is committed at this point; report what we have
		r.logger.Error("unparseable procedure result",
			slog.String("target_user_id", targetUserID),
			slog.String("error", err.Error()),
		)
		return &domain.StatusProcedureResult{CascadeApplied: cascade, Raw: raw}, nil
	}

	return &domain.StatusProcedureResult{
		AffectedUsers:   payload.AffectedUsers,
		AffectedWorkers: payload.AffectedWorkers,
		CascadeApplied:  payload.CascadeApplied,
		Raw:             raw,
	}, nil
}
