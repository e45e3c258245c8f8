package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fitleague/internal/core"
	"fitleague/internal/league"
	"fitleague/internal/types"
)

// LeagueFlow drives the league creation and payment lifecycle.
// Implemented by league.Orchestrator.
type LeagueFlow interface {
	StartCreation(ctx context.Context, req league.CreateLeagueRequest) (*league.CreateLeagueResult, error)
	ConfirmPayment(ctx context.Context, cb league.PaymentCallback) (*types.League, error)
	AbandonPayment(ctx context.Context, orderID string) (*types.League, error)
	Cancel(ctx context.Context, leagueID string) error
}

// LeagueReader provides read access to league rows.
// Implemented by db.LeagueRepo.
type LeagueReader interface {
	GetByID(ctx context.Context, leagueID string) (*types.League, error)
}

// CreateLeagueRequest is the request body for POST /v1/leagues. The amount
// due is computed server-side; any client-supplied amount is rejected as an
// unknown field.
type CreateLeagueRequest struct {
	HostID                string `json:"host_id" validate:"required"`
	Name                  string `json:"name" validate:"required,min=3,max=120"`
	TierID                int64  `json:"tier_id" validate:"required,gt=0"`
	DurationDays          int    `json:"duration_days"`
	EstimatedParticipants int    `json:"estimated_participants"`
}

// CreateLeagueResponse is the envelope for POST /v1/leagues. On success the
// league is in pending_payment and Order carries the gateway order for
// checkout. On tier validation failure Success is false and only Validation
// is populated.
type CreateLeagueResponse struct {
	Success        bool                        `json:"success"`
	League         *types.League               `json:"league,omitempty"`
	Order          *types.PaymentOrder         `json:"order,omitempty"`
	PriceBreakdown *types.PriceBreakdown       `json:"price_breakdown,omitempty"`
	Validation     *types.TierValidationResult `json:"validation,omitempty"`
}

// VerifyPaymentRequest is the checkout callback body for
// POST /v1/leagues/{leagueID}/payment/verify. Field names follow the gateway
// checkout callback contract.
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// LeagueResponse is the envelope for endpoints returning a single league.
type LeagueResponse struct {
	Success bool          `json:"success"`
	League  *types.League `json:"league"`
}

// LeaguesHandler handles league creation and the payment lifecycle endpoints.
type LeaguesHandler struct {
	flow      LeagueFlow
	leagues   LeagueReader
	validator *core.Validator
	logger    *slog.Logger
}

func NewLeaguesHandler(
	flow LeagueFlow,
	leagues LeagueReader,
	v *core.Validator,
	l *slog.Logger,
) *LeaguesHandler {
	if l == nil {
		l = slog.Default()
	}

	return &LeaguesHandler{
		flow:      flow,
		leagues:   leagues,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the league lifecycle endpoints.
func (h *LeaguesHandler) RegisterRoutes(r chi.Router) {
	r.Post("/leagues", h.Create)
	r.Get("/leagues/{leagueID}", h.Get)
	r.Delete("/leagues/{leagueID}", h.CancelLeague)
	r.Post("/leagues/{leagueID}/payment/verify", h.VerifyPayment)
	r.Post("/leagues/{leagueID}/payment/abandon", h.AbandonPayment)
}

// Create handles POST /v1/leagues.
//
// Flow:
//  1. Decode and validate the request shape.
//  2. Delegate to the orchestrator, which validates tier limits, prices the
//     league server-side, persists a draft, and places the gateway order.
//  3. Tier validation failures return 422 with the validation result so the
//     client can render per-field reasons.
func (h *LeaguesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateLeagueRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.flow.StartCreation(r.Context(), league.CreateLeagueRequest{
		HostID:                req.HostID,
		Name:                  req.Name,
		TierID:                req.TierID,
		DurationDays:          req.DurationDays,
		EstimatedParticipants: req.EstimatedParticipants,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if result.League == nil {
		core.JSON(w, r, http.StatusUnprocessableEntity, CreateLeagueResponse{
			Success:    false,
			Validation: result.Validation,
		})
		return
	}

	core.JSON(w, r, http.StatusCreated, CreateLeagueResponse{
		Success:        true,
		League:         result.League,
		Order:          result.Order,
		PriceBreakdown: result.Breakdown,
		Validation:     result.Validation,
	})
}

// Get handles GET /v1/leagues/{leagueID}.
func (h *LeaguesHandler) Get(w http.ResponseWriter, r *http.Request) {
	leagueID := chi.URLParam(r, "leagueID")

	lg, err := h.leagues.GetByID(r.Context(), leagueID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, LeagueResponse{Success: true, League: lg})
}

// VerifyPayment handles POST /v1/leagues/{leagueID}/payment/verify. The
// gateway callback is tied to an order; the path league must own that order.
func (h *LeaguesHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	leagueID := chi.URLParam(r, "leagueID")

	var req VerifyPaymentRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	lg, err := h.leagues.GetByID(r.Context(), leagueID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if lg.OrderID != req.OrderID {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeConflictLeagueState,
			"order does not belong to this league",
			nil,
		))
		return
	}

	activated, err := h.flow.ConfirmPayment(r.Context(), league.PaymentCallback{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, LeagueResponse{Success: true, League: activated})
}

// AbandonPayment handles POST /v1/leagues/{leagueID}/payment/abandon. The
// league returns to draft so the host can retry checkout later.
func (h *LeaguesHandler) AbandonPayment(w http.ResponseWriter, r *http.Request) {
	leagueID := chi.URLParam(r, "leagueID")

	lg, err := h.leagues.GetByID(r.Context(), leagueID)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if lg.OrderID == "" {
		core.Error(w, r, types.NewAppError(
			types.ErrCodeConflictLeagueState,
			"league has no pending payment to abandon",
			nil,
		))
		return
	}

	reverted, err := h.flow.AbandonPayment(r.Context(), lg.OrderID)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, LeagueResponse{Success: true, League: reverted})
}

// CancelLeague handles DELETE /v1/leagues/{leagueID}. Only leagues that have
// not been activated can be cancelled.
func (h *LeaguesHandler) CancelLeague(w http.ResponseWriter, r *http.Request) {
	leagueID := chi.URLParam(r, "leagueID")

	if err := h.flow.Cancel(r.Context(), leagueID); err != nil {
		core.Error(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
