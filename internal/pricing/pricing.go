// Package pricing implements the tier pricing and validation engine: tier
// limit validation with soft near-limit warnings, fixed and dynamic price
// computation with GST, and immutable tier snapshot construction.
//
// All three services are stateless read-then-compute components. The only
// blocking point is the tier repository read; everything downstream is pure,
// so the services are safe to share across concurrent requests.
//
// The calculator is the single source of truth for prices: it must be
// re-invoked server-side at commit time, and a client-computed price is never
// trusted.
package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"fitleague/internal/types"
)

// TierReader is the minimal repository surface the pricing engine needs.
// Implementations return (nil, nil) for tiers that are missing or inactive;
// callers treat that as "tier unusable for new configuration", not a fault.
type TierReader interface {
	GetTierConfig(ctx context.Context, tierID int64) (*types.TierConfig, error)
}

// round2 rounds to 2 decimal places, half away from zero. It is applied
// exactly once per derived quantity (GST, total); per-unit rates are never
// rounded before multiplication.
func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// gstOn computes round2(subtotal * pct / 100).
func gstOn(subtotal, pct decimal.Decimal) decimal.Decimal {
	return round2(subtotal.Mul(pct).Div(decimal.NewFromInt(100)))
}

// money formats an amount as the display currency with two decimals,
// e.g. "₹999.00". Breakdown detail lines use this everywhere so the audit
// trail is consistent between fixed and dynamic tiers.
func money(d decimal.Decimal) string {
	return types.CurrencySymbol + d.StringFixed(2)
}
