package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"fitleague/internal/types"
)

// TierRepo provides read-only access to tier definitions and their pricing
// configuration. Tiers are read-many, written-rarely (admin edits only); no
// caching is layered here, and the snapshot builder's copy-by-value contract
// means a tier edit mid-flight cannot corrupt an in-progress league creation.
type TierRepo struct {
	db DBTX
}

// NewTierRepo creates a TierRepo backed by the given database connection
// (pool or transaction).
func NewTierRepo(db DBTX) *TierRepo {
	return &TierRepo{db: db}
}

// tierConfigColumns is the standard column set for tier+pricing queries.
// Numeric money columns are cast to text and parsed into decimals to avoid
// any binary float round-trip.
const tierConfigColumns = `t.id, t.name, t.display_name, t.description,
	t.max_days, t.max_participants, t.pricing_id, t.is_active, t.is_featured,
	t.display_order, t.features,
	p.id, p.tier_name, p.pricing_type, p.fixed_price::text, p.base_fee::text,
	p.per_day_rate::text, p.per_participant_rate::text, p.gst_percentage::text`

// scanTierConfig scans a single joined tier+pricing row. The column order
// must match tierConfigColumns.
func scanTierConfig(row pgx.Row) (*types.TierConfig, error) {
	var cfg types.TierConfig
	var fixedPrice, baseFee, perDay, perParticipant, gst string

	err := row.Scan(
		&cfg.Tier.ID,
		&cfg.Tier.Name,
		&cfg.Tier.DisplayName,
		&cfg.Tier.Description,
		&cfg.Tier.MaxDays,
		&cfg.Tier.MaxParticipants,
		&cfg.Tier.PricingID,
		&cfg.Tier.IsActive,
		&cfg.Tier.IsFeatured,
		&cfg.Tier.DisplayOrder,
		&cfg.Tier.Features,
		&cfg.Pricing.ID,
		&cfg.Pricing.TierName,
		&cfg.Pricing.Type,
		&fixedPrice,
		&baseFee,
		&perDay,
		&perParticipant,
		&gst,
	)
	if err != nil {
		return nil, err
	}

	for _, f := range []struct {
		dst  *decimal.Decimal
		text string
		name string
	}{
		{&cfg.Pricing.FixedPrice, fixedPrice, "fixed_price"},
		{&cfg.Pricing.BaseFee, baseFee, "base_fee"},
		{&cfg.Pricing.PerDayRate, perDay, "per_day_rate"},
		{&cfg.Pricing.PerParticipantRate, perParticipant, "per_participant_rate"},
		{&cfg.Pricing.GSTPercentage, gst, "gst_percentage"},
	} {
		d, err := decimal.NewFromString(f.text)
		if err != nil {
			return nil, fmt.Errorf("parsing %s %q: %w", f.name, f.text, err)
		}
		*f.dst = d
	}

	return &cfg, nil
}

// GetTierConfig returns the tier joined with its pricing configuration,
// filtered to active tiers. Returns (nil, nil) when the tier is missing or
// inactive: callers must treat that as "tier unusable for new configuration",
// not as a fault.
func (r *TierRepo) GetTierConfig(ctx context.Context, tierID int64) (*types.TierConfig, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+tierConfigColumns+`
		 FROM league_tiers t
		 JOIN league_tier_pricing p ON p.id = t.pricing_id
		 WHERE t.id = $1 AND t.is_active = TRUE`,
		tierID,
	)

	cfg, err := scanTierConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to load tier configuration", err)
	}
	return cfg, nil
}

// GetActiveTiers returns all active tiers ordered by display_order ascending
// for presentation to the purchaser. An empty slice is a valid result (no
// tiers configured).
func (r *TierRepo) GetActiveTiers(ctx context.Context) ([]*types.TierConfig, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+tierConfigColumns+`
		 FROM league_tiers t
		 JOIN league_tier_pricing p ON p.id = t.pricing_id
		 WHERE t.is_active = TRUE
		 ORDER BY t.display_order ASC, t.id ASC`,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list active tiers", err)
	}
	defer rows.Close()

	tiers := make([]*types.TierConfig, 0)
	for rows.Next() {
		cfg, err := scanTierConfig(rows)
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan tier row", err)
		}
		tiers = append(tiers, cfg)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate tier rows", err)
	}
	return tiers, nil
}
