// Package handlers contains the HTTP handler implementations for the league
// pricing API. Service contracts are defined locally in each handler file and
// injected via the constructor, which avoids coupling to concrete types and
// enables test mocking.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"fitleague/internal/core"
	"fitleague/internal/pricing"
	"fitleague/internal/types"
)

// TierCatalog provides read access to the active tier catalog.
// Implemented by db.TierRepo.
type TierCatalog interface {
	GetActiveTiers(ctx context.Context) ([]*types.TierConfig, error)
}

// PricePreviewer computes a price breakdown for tier and usage inputs.
// Implemented by pricing.Calculator.
type PricePreviewer interface {
	CalculatePrice(ctx context.Context, req pricing.PriceRequest) (*types.PriceBreakdown, *types.TierValidationResult, error)
}

// TierResponse is the catalog entry returned by GET /v1/tiers.
type TierResponse struct {
	ID              int64              `json:"id"`
	Name            string             `json:"name"`
	DisplayName     string             `json:"display_name"`
	Description     string             `json:"description,omitempty"`
	MaxDays         int                `json:"max_days"`
	MaxParticipants int                `json:"max_participants"`
	Features        []string           `json:"features"`
	IsFeatured      bool               `json:"is_featured"`
	DisplayOrder    int                `json:"display_order"`
	Pricing         TierPricingSummary `json:"pricing"`
}

// TierPricingSummary exposes the pricing model of a tier. Rate fields are
// present only for the pricing type they belong to.
type TierPricingSummary struct {
	Type               types.PricingType `json:"type"`
	Currency           string            `json:"currency"`
	FixedPrice         *decimal.Decimal  `json:"fixed_price,omitempty"`
	BaseFee            *decimal.Decimal  `json:"base_fee,omitempty"`
	PerDayRate         *decimal.Decimal  `json:"per_day_rate,omitempty"`
	PerParticipantRate *decimal.Decimal  `json:"per_participant_rate,omitempty"`
	GSTPercentage      decimal.Decimal   `json:"gst_percentage"`
}

// ListTiersResponse is the envelope for GET /v1/tiers.
type ListTiersResponse struct {
	Tiers []TierResponse `json:"tiers"`
}

// PricePreviewRequest is the request body for POST /v1/tiers/price-preview.
// Duration and participant positivity is checked by the pricing engine so
// the client receives the same messages the creation flow produces.
type PricePreviewRequest struct {
	TierID                int64 `json:"tier_id" validate:"required,gt=0"`
	DurationDays          int   `json:"duration_days"`
	EstimatedParticipants int   `json:"estimated_participants"`
}

// PricePreviewResponse is the envelope for POST /v1/tiers/price-preview.
// Success is false when the inputs fail tier validation; the validation
// result then carries the reasons and PriceBreakdown is omitted.
type PricePreviewResponse struct {
	Success        bool                        `json:"success"`
	PriceBreakdown *types.PriceBreakdown       `json:"price_breakdown,omitempty"`
	Validation     *types.TierValidationResult `json:"validation"`
}

// TiersHandler serves the public tier catalog and price preview endpoints.
type TiersHandler struct {
	catalog   TierCatalog
	prices    PricePreviewer
	validator *core.Validator
	logger    *slog.Logger
}

func NewTiersHandler(
	catalog TierCatalog,
	prices PricePreviewer,
	v *core.Validator,
	l *slog.Logger,
) *TiersHandler {
	if l == nil {
		l = slog.Default()
	}

	return &TiersHandler{
		catalog:   catalog,
		prices:    prices,
		validator: v,
		logger:    l,
	}
}

// RegisterRoutes mounts the tier catalog endpoints.
func (h *TiersHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tiers", h.List)
	r.Post("/tiers/price-preview", h.PricePreview)
}

// List handles GET /v1/tiers. It returns all active tiers in display order.
func (h *TiersHandler) List(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.catalog.GetActiveTiers(r.Context())
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp := ListTiersResponse{Tiers: make([]TierResponse, 0, len(tiers))}
	for _, tc := range tiers {
		resp.Tiers = append(resp.Tiers, toTierResponse(tc))
	}

	core.JSON(w, r, http.StatusOK, resp)
}

// PricePreview handles POST /v1/tiers/price-preview. It computes the price a
// league with the given parameters would pay, without persisting anything.
// Validation failures are part of the normal response body, not HTTP errors,
// so the client can render them inline.
func (h *TiersHandler) PricePreview(w http.ResponseWriter, r *http.Request) {
	var req PricePreviewRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	breakdown, validation, err := h.prices.CalculatePrice(r.Context(), pricing.PriceRequest{
		TierID:                req.TierID,
		DurationDays:          req.DurationDays,
		EstimatedParticipants: req.EstimatedParticipants,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, PricePreviewResponse{
		Success:        breakdown != nil,
		PriceBreakdown: breakdown,
		Validation:     validation,
	})
}

func toTierResponse(tc *types.TierConfig) TierResponse {
	features := tc.Tier.Features
	if features == nil {
		features = []string{}
	}

	summary := TierPricingSummary{
		Type:          tc.Pricing.Type,
		Currency:      types.DefaultCurrency,
		GSTPercentage: tc.Pricing.GSTPercentage,
	}
	switch tc.Pricing.Type {
	case types.PricingDynamic:
		baseFee := tc.Pricing.BaseFee
		perDay := tc.Pricing.PerDayRate
		perParticipant := tc.Pricing.PerParticipantRate
		summary.BaseFee = &baseFee
		summary.PerDayRate = &perDay
		summary.PerParticipantRate = &perParticipant
	default:
		fixed := tc.Pricing.FixedPrice
		summary.FixedPrice = &fixed
	}

	return TierResponse{
		ID:              tc.Tier.ID,
		Name:            tc.Tier.Name,
		DisplayName:     tc.Tier.DisplayName,
		Description:     tc.Tier.Description,
		MaxDays:         tc.Tier.MaxDays,
		MaxParticipants: tc.Tier.MaxParticipants,
		Features:        features,
		IsFeatured:      tc.Tier.IsFeatured,
		DisplayOrder:    tc.Tier.DisplayOrder,
		Pricing:         summary,
	}
}
