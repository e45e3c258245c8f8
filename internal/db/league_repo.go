package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"fitleague/internal/types"
)

// LeagueRepo manages league lifecycle state around payment.
//
// Key invariants:
//   - Activate writes the tier snapshot and the status transition in one
//     UPDATE guarded on the current status, so an active league without a
//     snapshot is unrepresentable through this API.
//   - All transitions are guarded on the expected source status; a zero
//     rows-affected result is surfaced as a state conflict, which makes
//     replayed gateway callbacks idempotent-safe at the caller.
type LeagueRepo struct {
	db     DBTX
	logger *slog.Logger
}

// NewLeagueRepo creates a LeagueRepo backed by the given database connection
// (pool or transaction).
func NewLeagueRepo(db DBTX, logger *slog.Logger) *LeagueRepo {
	if logger == nil {
		logger = slog.Default()
	}
	return &LeagueRepo{db: db, logger: logger}
}

// leagueColumns is the standard column set for league queries.
const leagueColumns = `l.id, l.host_id, l.name, l.tier_id, l.duration_days,
	l.estimated_participants, l.status, l.amount_due::text, l.order_id,
	l.payment_id, l.tier_snapshot, l.created_at, l.updated_at`

// scanLeague scans a single league row. The column order must match
// leagueColumns.
func scanLeague(row pgx.Row) (*types.League, error) {
	var l types.League
	var amountDue string
	var orderID, paymentID *string
	var snapshot *types.TierSnapshot

	err := row.Scan(
		&l.ID,
		&l.HostID,
		&l.Name,
		&l.TierID,
		&l.DurationDays,
		&l.EstimatedParticipants,
		&l.Status,
		&amountDue,
		&orderID,
		&paymentID,
		&snapshot,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	l.AmountDue, err = decimal.NewFromString(amountDue)
	if err != nil {
		return nil, fmt.Errorf("parsing amount_due %q: %w", amountDue, err)
	}
	if orderID != nil {
		l.OrderID = *orderID
	}
	if paymentID != nil {
		l.PaymentID = *paymentID
	}
	l.Snapshot = snapshot
	return &l, nil
}

// CreateDraft inserts a new league in draft status with the server-computed
// amount due. The caller must set ID, HostID, Name, TierID, DurationDays,
// EstimatedParticipants, and AmountDue.
func (r *LeagueRepo) CreateDraft(ctx context.Context, league *types.League) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO leagues (id, host_id, name, tier_id, duration_days,
		 estimated_participants, status, amount_due, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, 'draft', $7, NOW(), NOW())`,
		league.ID,
		league.HostID,
		league.Name,
		league.TierID,
		league.DurationDays,
		league.EstimatedParticipants,
		league.AmountDue.StringFixed(2),
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to create draft league", err)
	}
	return nil
}

// MarkPendingPayment attaches the gateway order to a draft league and moves
// it to pending_payment. Fails with a state conflict if the league is not in
// draft.
func (r *LeagueRepo) MarkPendingPayment(ctx context.Context, leagueID, orderID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leagues
		 SET status = 'pending_payment', order_id = $2, updated_at = NOW()
		 WHERE id = $1 AND status = 'draft'`,
		leagueID, orderID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to mark league pending payment", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictLeagueState,
			"league is not in draft state", nil)
	}
	return nil
}

// Activate records the verified payment and the tier snapshot, transitioning
// the league to active. The snapshot is mandatory; the UPDATE is guarded on
// pending_payment and on the snapshot column still being empty, so the write
// happens exactly once.
func (r *LeagueRepo) Activate(ctx context.Context, leagueID, paymentID string, snapshot *types.TierSnapshot) error {
	if snapshot == nil {
		return types.NewAppError(types.ErrCodeInternalReconciliation,
			"refusing to activate league without a tier snapshot", nil)
	}

	tag, err := r.db.Exec(ctx,
		`UPDATE leagues
		 SET status = 'active', payment_id = $2, tier_snapshot = $3, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending_payment' AND tier_snapshot IS NULL`,
		leagueID, paymentID, *snapshot,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to activate league", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the league is not awaiting payment or it was already
		// activated by a concurrent callback. Both are conflicts, not faults.
		r.logger.Warn("league activation skipped",
			slog.String("league_id", leagueID),
			slog.String("payment_id", paymentID),
		)
		return types.NewAppError(types.ErrCodeConflictLeagueState,
			"league is not awaiting payment", nil)
	}
	return nil
}

// RevertToDraft returns an abandoned pending_payment league to draft so the
// host can edit and retry. The order reference is cleared; no snapshot exists
// at this point by construction.
func (r *LeagueRepo) RevertToDraft(ctx context.Context, leagueID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leagues
		 SET status = 'draft', order_id = NULL, updated_at = NOW()
		 WHERE id = $1 AND status = 'pending_payment'`,
		leagueID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to revert league to draft", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictLeagueState,
			"league is not awaiting payment", nil)
	}
	return nil
}

// Cancel marks a league cancelled. Allowed from draft and pending_payment
// only; active leagues are not cancellable through the payment flow.
func (r *LeagueRepo) Cancel(ctx context.Context, leagueID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE leagues
		 SET status = 'cancelled', updated_at = NOW()
		 WHERE id = $1 AND status IN ('draft', 'pending_payment')`,
		leagueID,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to cancel league", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewAppError(types.ErrCodeConflictLeagueState,
			"league cannot be cancelled in its current state", nil)
	}
	return nil
}

// GetByID returns the league with the given ID.
func (r *LeagueRepo) GetByID(ctx context.Context, leagueID string) (*types.League, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+leagueColumns+` FROM leagues l WHERE l.id = $1`,
		leagueID,
	)
	league, err := scanLeague(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundLeague, "league not found", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load league", err)
	}
	return league, nil
}

// GetByOrderID returns the league holding the given gateway order reference.
// Used by the payment verification callback to locate the league.
func (r *LeagueRepo) GetByOrderID(ctx context.Context, orderID string) (*types.League, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+leagueColumns+` FROM leagues l WHERE l.order_id = $1`,
		orderID,
	)
	league, err := scanLeague(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.NewAppError(types.ErrCodeNotFoundOrder, "no league holds this order", err)
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load league by order", err)
	}
	return league, nil
}
