// Package league coordinates league creation and the payment lifecycle:
// draft creation with a server-side price, gateway order placement, payment
// verification, and snapshot-backed activation.
package league

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"fitleague/internal/pricing"
	"fitleague/internal/types"
)

// LeagueStore is the persistence surface the orchestrator needs. Implemented
// by db.LeagueRepo.
type LeagueStore interface {
	CreateDraft(ctx context.Context, league *types.League) error
	MarkPendingPayment(ctx context.Context, leagueID, orderID string) error
	Activate(ctx context.Context, leagueID, paymentID string, snapshot *types.TierSnapshot) error
	RevertToDraft(ctx context.Context, leagueID string) error
	Cancel(ctx context.Context, leagueID string) error
	GetByID(ctx context.Context, leagueID string) (*types.League, error)
	GetByOrderID(ctx context.Context, orderID string) (*types.League, error)
}

// PaymentGateway is the payment provider surface the orchestrator needs.
// Implemented by external.RazorpayClient.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (*types.PaymentOrder, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
}

// PriceEngine computes the authoritative price for a tier and usage inputs.
// Implemented by pricing.Calculator.
type PriceEngine interface {
	CalculatePrice(ctx context.Context, req pricing.PriceRequest) (*types.PriceBreakdown, *types.TierValidationResult, error)
}

// SnapshotFactory builds the immutable tier snapshot attached on activation.
// Implemented by pricing.SnapshotBuilder.
type SnapshotFactory interface {
	CreateTierSnapshot(ctx context.Context, tierID int64, durationDays, participants int) (*types.TierSnapshot, error)
}

// Orchestrator drives a league from draft through payment to active. Prices
// are always computed server-side from the live tier configuration; client
// supplied amounts are never trusted.
type Orchestrator struct {
	store     LeagueStore
	gateway   PaymentGateway
	prices    PriceEngine
	snapshots SnapshotFactory
	logger    *slog.Logger
}

func NewOrchestrator(
	store LeagueStore,
	gateway PaymentGateway,
	prices PriceEngine,
	snapshots SnapshotFactory,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		store:     store,
		gateway:   gateway,
		prices:    prices,
		snapshots: snapshots,
		logger:    logger,
	}
}

// CreateLeagueRequest carries the host's league parameters. The amount due is
// never part of the request.
type CreateLeagueRequest struct {
	HostID                string
	Name                  string
	TierID                int64
	DurationDays          int
	EstimatedParticipants int
}

// CreateLeagueResult is the outcome of StartCreation. When Validation is
// invalid, League and Order are nil and no rows were written.
type CreateLeagueResult struct {
	League     *types.League
	Order      *types.PaymentOrder
	Breakdown  *types.PriceBreakdown
	Validation *types.TierValidationResult
}

// StartCreation validates the request against its tier, computes the price,
// persists a draft league, places a gateway order for the total, and moves
// the league to pending_payment.
//
// If the gateway call fails the league remains a retriable draft and the
// gateway error is returned.
func (o *Orchestrator) StartCreation(ctx context.Context, req CreateLeagueRequest) (*CreateLeagueResult, error) {
	breakdown, validation, err := o.prices.CalculatePrice(ctx, pricing.PriceRequest{
		TierID:                req.TierID,
		DurationDays:          req.DurationDays,
		EstimatedParticipants: req.EstimatedParticipants,
	})
	if err != nil {
		return nil, err
	}
	if breakdown == nil {
		return &CreateLeagueResult{Validation: validation}, nil
	}

	lg := &types.League{
		ID:                    uuid.NewString(),
		HostID:                req.HostID,
		Name:                  req.Name,
		TierID:                req.TierID,
		DurationDays:          req.DurationDays,
		EstimatedParticipants: req.EstimatedParticipants,
		Status:                types.LeagueDraft,
		AmountDue:             breakdown.Total,
	}
	if err := o.store.CreateDraft(ctx, lg); err != nil {
		return nil, err
	}

	order, err := o.gateway.CreateOrder(
		ctx,
		breakdown.TotalSubunits(),
		breakdown.Currency,
		lg.ID,
		map[string]string{
			"league_id": lg.ID,
			"host_id":   lg.HostID,
		},
	)
	if err != nil {
		o.logger.Warn("gateway order creation failed, league left in draft",
			slog.String("league_id", lg.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	if err := o.store.MarkPendingPayment(ctx, lg.ID, order.ID); err != nil {
		return nil, err
	}
	lg.Status = types.LeaguePendingPayment
	lg.OrderID = order.ID

	return &CreateLeagueResult{
		League:     lg,
		Order:      order,
		Breakdown:  breakdown,
		Validation: validation,
	}, nil
}

// PaymentCallback is the gateway checkout callback payload.
type PaymentCallback struct {
	OrderID   string
	PaymentID string
	Signature string
}

// ConfirmPayment verifies the callback signature and activates the league
// with a freshly built tier snapshot. The snapshot uses the same tier and
// usage inputs the draft was priced with.
//
// If snapshot construction fails after the signature has been verified, the
// payment is real but the league cannot be activated safely; the error is
// surfaced for manual reconciliation and the league stays pending_payment.
//
// Replaying a callback for an already active league is idempotent when the
// payment ID matches, and a conflict otherwise.
func (o *Orchestrator) ConfirmPayment(ctx context.Context, cb PaymentCallback) (*types.League, error) {
	lg, err := o.store.GetByOrderID(ctx, cb.OrderID)
	if err != nil {
		return nil, err
	}

	if !o.gateway.VerifyPaymentSignature(cb.OrderID, cb.PaymentID, cb.Signature) {
		o.logger.Warn("payment signature verification failed",
			slog.String("league_id", lg.ID),
			slog.String("order_id", cb.OrderID),
		)
		return nil, types.NewAppError(
			types.ErrCodePaymentSignatureInvalid,
			"payment signature verification failed",
			nil,
		)
	}

	return o.activateVerified(ctx, lg, cb.OrderID, cb.PaymentID)
}

// ConfirmCapturedPayment activates a league from a gateway webhook event.
// The webhook transport signature has already been verified by the caller;
// there is no per-payment client signature on this path. Replay semantics
// match ConfirmPayment.
func (o *Orchestrator) ConfirmCapturedPayment(ctx context.Context, orderID, paymentID string) (*types.League, error) {
	lg, err := o.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return o.activateVerified(ctx, lg, orderID, paymentID)
}

// activateVerified runs the post-verification half of payment confirmation:
// idempotent replay handling, snapshot construction, activation.
func (o *Orchestrator) activateVerified(ctx context.Context, lg *types.League, orderID, paymentID string) (*types.League, error) {
	if lg.Status == types.LeagueActive {
		if lg.PaymentID == paymentID {
			return lg, nil
		}
		return nil, types.NewAppError(
			types.ErrCodeConflictLeagueState,
			fmt.Sprintf("league %s is already active under a different payment", lg.ID),
			nil,
		)
	}

	snapshot, err := o.snapshots.CreateTierSnapshot(ctx, lg.TierID, lg.DurationDays, lg.EstimatedParticipants)
	if err != nil || snapshot == nil {
		o.logger.Error("snapshot build failed after verified payment; manual reconciliation required",
			slog.String("league_id", lg.ID),
			slog.String("order_id", orderID),
			slog.String("payment_id", paymentID),
			slog.Int64("tier_id", lg.TierID),
		)
		return nil, types.NewAppError(
			types.ErrCodeInternalReconciliation,
			fmt.Sprintf("payment %s verified but league %s could not be activated", paymentID, lg.ID),
			err,
		)
	}

	if err := o.store.Activate(ctx, lg.ID, paymentID, snapshot); err != nil {
		return nil, err
	}

	return o.store.GetByID(ctx, lg.ID)
}

// AbandonPayment returns a pending_payment league to draft so the host can
// retry checkout. No snapshot is ever written on this path.
func (o *Orchestrator) AbandonPayment(ctx context.Context, orderID string) (*types.League, error) {
	lg, err := o.store.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if err := o.store.RevertToDraft(ctx, lg.ID); err != nil {
		return nil, err
	}

	return o.store.GetByID(ctx, lg.ID)
}

// Cancel cancels a league that has not been activated yet.
func (o *Orchestrator) Cancel(ctx context.Context, leagueID string) error {
	return o.store.Cancel(ctx, leagueID)
}
