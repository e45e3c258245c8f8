package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fitleague/internal/types"
)

// PriceRequest names the inputs of a price computation.
type PriceRequest struct {
	TierID                int64
	DurationDays          int
	EstimatedParticipants int
}

// Calculator computes deterministic prices for a tier and configuration.
// It internally re-runs the Validator, which makes it unusable for any input
// it would reject even when called directly.
type Calculator struct {
	tiers     TierReader
	validator *Validator
}

// NewCalculator creates a Calculator sharing the given validator.
func NewCalculator(tiers TierReader, validator *Validator) *Calculator {
	return &Calculator{tiers: tiers, validator: validator}
}

// CalculatePrice validates the request and, if valid, computes the price
// breakdown for the tier's pricing configuration.
//
// Return contract:
//   - (breakdown, result, nil): valid input, price computed.
//   - (nil, result, nil):       business rejection; result carries the errors.
//     A nil breakdown means "do not proceed", never "zero cost".
//   - (nil, nil, err):          infrastructure fault.
//
// The breakdown is nil exactly when result.Valid is false.
func (c *Calculator) CalculatePrice(ctx context.Context, req PriceRequest) (*types.PriceBreakdown, *types.TierValidationResult, error) {
	result, err := c.validator.ValidateTierLimits(ctx, req.TierID, req.DurationDays, req.EstimatedParticipants)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		return nil, result, nil
	}

	cfg, err := c.tiers.GetTierConfig(ctx, req.TierID)
	if err != nil {
		return nil, nil, err
	}
	if cfg == nil {
		// The tier vanished between validation and computation (admin
		// deactivated it mid-flight). Treat as a business rejection.
		result.AddError(msgTierUnavailable)
		return nil, result, nil
	}

	breakdown := computeBreakdown(cfg.Pricing, req.DurationDays, req.EstimatedParticipants)
	return breakdown, result, nil
}

// computeBreakdown applies a pricing configuration to validated inputs.
// Pure function; the single switch on the pricing type is the only place the
// two variants' computation paths meet.
func computeBreakdown(p types.PricingConfig, durationDays, participants int) *types.PriceBreakdown {
	b := &types.PriceBreakdown{
		PricingType: p.Type,
		Currency:    types.DefaultCurrency,
	}

	switch p.Type {
	case types.PricingDynamic:
		baseFee := p.BaseFee
		daysCost := decimal.NewFromInt(int64(durationDays)).Mul(p.PerDayRate)
		participantsCost := decimal.NewFromInt(int64(participants)).Mul(p.PerParticipantRate)

		b.Subtotal = baseFee.Add(daysCost).Add(participantsCost)
		b.BaseFee = &baseFee
		b.DaysCost = &daysCost
		b.ParticipantsCost = &participantsCost

		if !baseFee.IsZero() {
			b.Details = append(b.Details, fmt.Sprintf("Base fee: %s", money(baseFee)))
		}
		if !daysCost.IsZero() {
			b.Details = append(b.Details, fmt.Sprintf("Duration: %d days × %s = %s", durationDays, money(p.PerDayRate), money(daysCost)))
		}
		if !participantsCost.IsZero() {
			b.Details = append(b.Details, fmt.Sprintf("Participants: %d × %s = %s", participants, money(p.PerParticipantRate), money(participantsCost)))
		}

	default:
		// Fixed pricing. A missing fixed price is treated as zero.
		b.Subtotal = p.FixedPrice
		b.Details = append(b.Details, fmt.Sprintf("Fixed price: %s", money(p.FixedPrice)))
	}

	b.GSTAmount = gstOn(b.Subtotal, p.GSTPercentage)
	b.Total = round2(b.Subtotal.Add(b.GSTAmount))
	return b
}
