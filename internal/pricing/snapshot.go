package pricing

import (
	"context"
	"time"

	"fitleague/internal/types"
)

// SnapshotBuilder freezes a tier's configuration and computed price into an
// immutable record to attach to a league once its payment is finalized.
//
// The builder re-derives the price from the live configuration rather than
// accepting a caller-supplied breakdown, so a stale or tampered price can
// never be persisted.
type SnapshotBuilder struct {
	tiers TierReader
	calc  *Calculator

	// now is injectable for tests; defaults to time.Now.
	now func() time.Time
}

// NewSnapshotBuilder creates a SnapshotBuilder sharing the given calculator.
func NewSnapshotBuilder(tiers TierReader, calc *Calculator) *SnapshotBuilder {
	return &SnapshotBuilder{
		tiers: tiers,
		calc:  calc,
		now:   time.Now,
	}
}

// WithClock overrides the timestamp source. Intended for tests.
func (b *SnapshotBuilder) WithClock(now func() time.Time) *SnapshotBuilder {
	b.now = now
	return b
}

// CreateTierSnapshot builds the snapshot payload for the given configuration.
//
// Returns (nil, nil) when the tier is unavailable or the price cannot be
// computed (validation rejection): the caller must abort league activation.
// A non-nil error indicates an infrastructure fault only.
//
// Calling twice with identical inputs against an unchanged tier yields
// identical output except for CreatedAt.
func (b *SnapshotBuilder) CreateTierSnapshot(ctx context.Context, tierID int64, durationDays, participants int) (*types.TierSnapshot, error) {
	cfg, err := b.tiers.GetTierConfig(ctx, tierID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}

	breakdown, _, err := b.calc.CalculatePrice(ctx, PriceRequest{
		TierID:                tierID,
		DurationDays:          durationDays,
		EstimatedParticipants: participants,
	})
	if err != nil {
		return nil, err
	}
	if breakdown == nil {
		return nil, nil
	}

	// Copy everything by value. The features slice is duplicated so the
	// snapshot holds no live reference to the tier record.
	features := make([]string, len(cfg.Tier.Features))
	copy(features, cfg.Tier.Features)

	return &types.TierSnapshot{
		TierID:          cfg.Tier.ID,
		TierName:        cfg.Tier.Name,
		DisplayName:     cfg.Tier.DisplayName,
		MaxDays:         cfg.Tier.MaxDays,
		MaxParticipants: cfg.Tier.MaxParticipants,
		Features:        features,
		Pricing: types.PricingSnapshot{
			Type:               cfg.Pricing.Type,
			FixedPrice:         cfg.Pricing.FixedPrice,
			BaseFee:            cfg.Pricing.BaseFee,
			PerDayRate:         cfg.Pricing.PerDayRate,
			PerParticipantRate: cfg.Pricing.PerParticipantRate,
			GSTPercentage:      cfg.Pricing.GSTPercentage,
		},
		Request: types.SnapshotRequest{
			DurationDays:          durationDays,
			EstimatedParticipants: participants,
		},
		Price:     *breakdown,
		CreatedAt: b.now().UTC(),
	}, nil
}
