package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitleague/internal/types"
)

// stubTierReader is an in-memory TierReader for tests. Missing IDs return
// (nil, nil), matching the repository contract for absent or inactive tiers.
type stubTierReader struct {
	configs map[int64]*types.TierConfig
	err     error
}

func (s *stubTierReader) GetTierConfig(_ context.Context, tierID int64) (*types.TierConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	cfg, ok := s.configs[tierID]
	if !ok {
		return nil, nil
	}
	// Return a copy so tests that mutate the stored config model real
	// repository behavior (each read is an independent row scan).
	c := *cfg
	return &c, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixedTier is the worked fixed-price example: 999 flat, 18% GST,
// 30 days / 100 participants max.
func fixedTier() *types.TierConfig {
	return &types.TierConfig{
		Tier: types.Tier{
			ID:              1,
			Name:            "starter",
			DisplayName:     "Starter",
			MaxDays:         30,
			MaxParticipants: 100,
			IsActive:        true,
			Features:        types.FeatureList{"Leaderboards", "Team management"},
		},
		Pricing: types.PricingConfig{
			ID:            10,
			TierName:      "starter",
			Type:          types.PricingFixed,
			FixedPrice:    dec("999"),
			GSTPercentage: dec("18"),
		},
	}
}

// dynamicTier is the worked dynamic example: 100 base + 5/day + 2/participant,
// 18% GST, 90 days / 200 participants max.
func dynamicTier() *types.TierConfig {
	return &types.TierConfig{
		Tier: types.Tier{
			ID:              2,
			Name:            "pro",
			DisplayName:     "Pro",
			MaxDays:         90,
			MaxParticipants: 200,
			IsActive:        true,
			Features:        types.FeatureList{"Everything in Starter", "Custom scoring"},
		},
		Pricing: types.PricingConfig{
			ID:                 20,
			TierName:           "pro",
			Type:               types.PricingDynamic,
			BaseFee:            dec("100"),
			PerDayRate:         dec("5"),
			PerParticipantRate: dec("2"),
			GSTPercentage:      dec("18"),
		},
	}
}

func newEngine(configs ...*types.TierConfig) (*stubTierReader, *Validator, *Calculator, *SnapshotBuilder) {
	reader := &stubTierReader{configs: map[int64]*types.TierConfig{}}
	for _, c := range configs {
		reader.configs[c.Tier.ID] = c
	}
	v := NewValidator(reader, 0)
	c := NewCalculator(reader, v)
	b := NewSnapshotBuilder(reader, c)
	return reader, v, c, b
}

// --- Validator ---

func TestValidateTierLimits_Valid(t *testing.T) {
	_, v, _, _ := newEngine(fixedTier())

	result, err := v.ValidateTierLimits(context.Background(), 1, 10, 20)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateTierLimits_NonPositiveInputs(t *testing.T) {
	_, v, _, _ := newEngine(fixedTier())

	result, err := v.ValidateTierLimits(context.Background(), 1, 0, -3)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	// Error order is deterministic: duration before participants.
	require.Len(t, result.Errors, 2)
	assert.Equal(t, "Duration must be at least 1 day", result.Errors[0])
	assert.Equal(t, "Must have at least 1 participant", result.Errors[1])
}

func TestValidateTierLimits_UnknownTier(t *testing.T) {
	_, v, _, _ := newEngine(fixedTier())

	result, err := v.ValidateTierLimits(context.Background(), 999, 10, 20)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Invalid or inactive tier selected", result.Errors[0])
	// No tier means no limit checks and no warnings.
	assert.Empty(t, result.Warnings)
}

func TestValidateTierLimits_LimitExceeded(t *testing.T) {
	_, v, _, _ := newEngine(dynamicTier())

	result, err := v.ValidateTierLimits(context.Background(), 2, 95, 50)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "Duration (95 days) exceeds tier limit (90 days)", result.Errors[0])
}

func TestValidateTierLimits_BothLimitsExceeded_ErrorOrder(t *testing.T) {
	_, v, _, _ := newEngine(dynamicTier())

	result, err := v.ValidateTierLimits(context.Background(), 2, 95, 250)
	require.NoError(t, err)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Duration")
	assert.Contains(t, result.Errors[1], "Participants")
}

func TestValidateTierLimits_WarningThresholdBoundary(t *testing.T) {
	// max_days = 90: 80% is exactly 72 days.
	tests := []struct {
		name     string
		duration int
		warns    bool
	}{
		{"just below threshold", 71, false},
		{"at threshold", 72, true},
		{"above threshold", 85, true},
		{"at limit", 90, true},
	}

	_, v, _, _ := newEngine(dynamicTier())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := v.ValidateTierLimits(context.Background(), 2, tt.duration, 10)
			require.NoError(t, err)
			assert.True(t, result.Valid, "warnings must never affect validity")
			if tt.warns {
				assert.NotEmpty(t, result.Warnings)
			} else {
				assert.Empty(t, result.Warnings)
			}
		})
	}
}

func TestValidateTierLimits_WarningThresholdNonMultiple(t *testing.T) {
	// max_days = 30: 80% is exactly 24 days. 23 must not warn, 24 must.
	_, v, _, _ := newEngine(fixedTier())

	result, err := v.ValidateTierLimits(context.Background(), 1, 23, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Warnings)

	result, err = v.ValidateTierLimits(context.Background(), 1, 24, 10)
	require.NoError(t, err)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Duration")
}

func TestValidateTierLimits_ParticipantWarning(t *testing.T) {
	_, v, _, _ := newEngine(fixedTier())

	result, err := v.ValidateTierLimits(context.Background(), 1, 5, 80)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Participants")
}

func TestValidateTierLimits_Monotonicity(t *testing.T) {
	// If (d, p) is valid, every smaller positive pair is valid too:
	// limits are upper bounds only.
	_, v, _, _ := newEngine(dynamicTier())
	ctx := context.Background()

	base, err := v.ValidateTierLimits(ctx, 2, 90, 200)
	require.NoError(t, err)
	require.True(t, base.Valid)

	for _, pair := range [][2]int{{90, 100}, {45, 200}, {30, 50}, {1, 1}} {
		result, err := v.ValidateTierLimits(ctx, 2, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, result.Valid, "(%d, %d) should be valid", pair[0], pair[1])
	}
}

func TestValidateTierLimits_RepositoryFault(t *testing.T) {
	reader := &stubTierReader{err: errors.New("connection refused")}
	v := NewValidator(reader, 0)

	result, err := v.ValidateTierLimits(context.Background(), 1, 10, 20)
	require.Error(t, err)
	assert.Nil(t, result)
}

// --- Calculator ---

func TestCalculatePrice_FixedExample(t *testing.T) {
	_, _, c, _ := newEngine(fixedTier())

	breakdown, result, err := c.CalculatePrice(context.Background(), PriceRequest{
		TierID: 1, DurationDays: 10, EstimatedParticipants: 20,
	})
	require.NoError(t, err)
	require.NotNil(t, breakdown)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)

	assert.True(t, breakdown.Subtotal.Equal(dec("999")), "subtotal = %s", breakdown.Subtotal)
	assert.True(t, breakdown.GSTAmount.Equal(dec("179.82")), "gst = %s", breakdown.GSTAmount)
	assert.True(t, breakdown.Total.Equal(dec("1178.82")), "total = %s", breakdown.Total)
	assert.Equal(t, "INR", breakdown.Currency)
	assert.Equal(t, types.PricingFixed, breakdown.PricingType)
	require.Len(t, breakdown.Details, 1)
	assert.Equal(t, "Fixed price: ₹999.00", breakdown.Details[0])
	// Component amounts are a dynamic-only concern.
	assert.Nil(t, breakdown.BaseFee)
	assert.Nil(t, breakdown.DaysCost)
	assert.Nil(t, breakdown.ParticipantsCost)
}

func TestCalculatePrice_FixedIndependentOfInputs(t *testing.T) {
	// Fixed-price determinism: the same total for any inputs that pass
	// validation.
	_, _, c, _ := newEngine(fixedTier())
	ctx := context.Background()

	pairs := [][2]int{{1, 1}, {10, 20}, {30, 100}, {15, 60}}
	for _, pair := range pairs {
		breakdown, _, err := c.CalculatePrice(ctx, PriceRequest{
			TierID: 1, DurationDays: pair[0], EstimatedParticipants: pair[1],
		})
		require.NoError(t, err)
		require.NotNil(t, breakdown, "(%d, %d)", pair[0], pair[1])
		assert.True(t, breakdown.Total.Equal(dec("1178.82")))
	}
}

func TestCalculatePrice_DynamicExample(t *testing.T) {
	_, _, c, _ := newEngine(dynamicTier())

	breakdown, result, err := c.CalculatePrice(context.Background(), PriceRequest{
		TierID: 2, DurationDays: 30, EstimatedParticipants: 50,
	})
	require.NoError(t, err)
	require.NotNil(t, breakdown)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings, "30/90 days and 50/200 participants are nowhere near 80%%")

	require.NotNil(t, breakdown.BaseFee)
	require.NotNil(t, breakdown.DaysCost)
	require.NotNil(t, breakdown.ParticipantsCost)
	assert.True(t, breakdown.BaseFee.Equal(dec("100")))
	assert.True(t, breakdown.DaysCost.Equal(dec("150")))
	assert.True(t, breakdown.ParticipantsCost.Equal(dec("100")))
	assert.True(t, breakdown.Subtotal.Equal(dec("350")))
	assert.True(t, breakdown.GSTAmount.Equal(dec("63")))
	assert.True(t, breakdown.Total.Equal(dec("413")))

	require.Len(t, breakdown.Details, 3)
	assert.Equal(t, "Base fee: ₹100.00", breakdown.Details[0])
	assert.Equal(t, "Duration: 30 days × ₹5.00 = ₹150.00", breakdown.Details[1])
	assert.Equal(t, "Participants: 50 × ₹2.00 = ₹100.00", breakdown.Details[2])
}

func TestCalculatePrice_DynamicAdditivity(t *testing.T) {
	_, _, c, _ := newEngine(dynamicTier())
	ctx := context.Background()

	for _, pair := range [][2]int{{1, 1}, {7, 12}, {45, 120}, {90, 200}} {
		d, p := pair[0], pair[1]
		breakdown, _, err := c.CalculatePrice(ctx, PriceRequest{
			TierID: 2, DurationDays: d, EstimatedParticipants: p,
		})
		require.NoError(t, err)
		require.NotNil(t, breakdown)

		want := dec("100").
			Add(decimal.NewFromInt(int64(d)).Mul(dec("5"))).
			Add(decimal.NewFromInt(int64(p)).Mul(dec("2")))
		assert.True(t, breakdown.Subtotal.Equal(want),
			"(%d, %d): subtotal %s, want %s", d, p, breakdown.Subtotal, want)
	}
}

func TestCalculatePrice_DynamicOmitsZeroComponents(t *testing.T) {
	cfg := dynamicTier()
	cfg.Pricing.BaseFee = decimal.Zero
	cfg.Pricing.PerParticipantRate = decimal.Zero
	_, _, c, _ := newEngine(cfg)

	breakdown, _, err := c.CalculatePrice(context.Background(), PriceRequest{
		TierID: 2, DurationDays: 10, EstimatedParticipants: 10,
	})
	require.NoError(t, err)
	require.NotNil(t, breakdown)
	require.Len(t, breakdown.Details, 1)
	assert.Contains(t, breakdown.Details[0], "Duration")
	assert.True(t, breakdown.Subtotal.Equal(dec("50")))
}

func TestCalculatePrice_GSTRoundingAppliedOnce(t *testing.T) {
	// A subtotal whose GST needs rounding: 333 * 18% = 59.94 exactly;
	// 333.33 * 18% = 59.9994 -> 60.00, total 393.33.
	cfg := fixedTier()
	cfg.Pricing.FixedPrice = dec("333.33")
	_, _, c, _ := newEngine(cfg)

	breakdown, _, err := c.CalculatePrice(context.Background(), PriceRequest{
		TierID: 1, DurationDays: 5, EstimatedParticipants: 5,
	})
	require.NoError(t, err)
	require.NotNil(t, breakdown)
	assert.True(t, breakdown.GSTAmount.Equal(dec("60.00")), "gst = %s", breakdown.GSTAmount)
	assert.True(t, breakdown.Total.Equal(dec("393.33")), "total = %s", breakdown.Total)
}

func TestCalculatePrice_ZeroGST(t *testing.T) {
	cfg := fixedTier()
	cfg.Pricing.GSTPercentage = decimal.Zero
	_, _, c, _ := newEngine(cfg)

	breakdown, _, err := c.CalculatePrice(context.Background(), PriceRequest{
		TierID: 1, DurationDays: 10, EstimatedParticipants: 20,
	})
	require.NoError(t, err)
	require.NotNil(t, breakdown)
	assert.True(t, breakdown.GSTAmount.IsZero())
	assert.True(t, breakdown.Total.Equal(dec("999")))
}

func TestCalculatePrice_NilOnInvalidInput(t *testing.T) {
	// Null-propagation: the calculator returns no breakdown whenever the
	// validator rejects the same inputs.
	_, v, c, _ := newEngine(dynamicTier())
	ctx := context.Background()

	cases := []PriceRequest{
		{TierID: 2, DurationDays: 0, EstimatedParticipants: 10},
		{TierID: 2, DurationDays: 10, EstimatedParticipants: 0},
		{TierID: 2, DurationDays: 95, EstimatedParticipants: 50},
		{TierID: 2, DurationDays: 30, EstimatedParticipants: 500},
		{TierID: 404, DurationDays: 10, EstimatedParticipants: 10},
	}
	for _, req := range cases {
		vres, err := v.ValidateTierLimits(ctx, req.TierID, req.DurationDays, req.EstimatedParticipants)
		require.NoError(t, err)
		require.False(t, vres.Valid)

		breakdown, result, err := c.CalculatePrice(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, breakdown, "req %+v", req)
		require.NotNil(t, result)
		assert.False(t, result.Valid)
		assert.Equal(t, vres.Errors, result.Errors)
	}
}

func TestCalculatePrice_TotalSubunits(t *testing.T) {
	_, _, c, _ := newEngine(fixedTier())

	breakdown, _, err := c.CalculatePrice(context.Background(), PriceRequest{
		TierID: 1, DurationDays: 10, EstimatedParticipants: 20,
	})
	require.NoError(t, err)
	require.NotNil(t, breakdown)
	assert.Equal(t, int64(117882), breakdown.TotalSubunits())
}

// --- SnapshotBuilder ---

func TestCreateTierSnapshot_CopiesEverythingByValue(t *testing.T) {
	reader, _, _, b := newEngine(dynamicTier())

	snap, err := b.CreateTierSnapshot(context.Background(), 2, 30, 50)
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.Equal(t, int64(2), snap.TierID)
	assert.Equal(t, "pro", snap.TierName)
	assert.Equal(t, 90, snap.MaxDays)
	assert.Equal(t, 200, snap.MaxParticipants)
	assert.Equal(t, []string{"Everything in Starter", "Custom scoring"}, snap.Features)
	assert.Equal(t, types.PricingDynamic, snap.Pricing.Type)
	assert.True(t, snap.Pricing.PerDayRate.Equal(dec("5")))
	assert.Equal(t, 30, snap.Request.DurationDays)
	assert.Equal(t, 50, snap.Request.EstimatedParticipants)
	assert.True(t, snap.Price.Total.Equal(dec("413")))
	assert.False(t, snap.CreatedAt.IsZero())

	// Editing the live configuration must not change the stored snapshot.
	reader.configs[2].Pricing.PerDayRate = dec("50")
	reader.configs[2].Tier.Features[0] = "mutated"
	assert.True(t, snap.Pricing.PerDayRate.Equal(dec("5")))
	assert.Equal(t, "Everything in Starter", snap.Features[0])
	assert.True(t, snap.Price.Total.Equal(dec("413")))
}

func TestCreateTierSnapshot_IdempotentExceptTimestamp(t *testing.T) {
	_, _, _, b := newEngine(fixedTier())
	ctx := context.Background()

	first, err := b.CreateTierSnapshot(ctx, 1, 10, 20)
	require.NoError(t, err)
	second, err := b.CreateTierSnapshot(ctx, 1, 10, 20)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.NotNil(t, second)

	// Neutralize the timestamps; everything else must match exactly.
	first.CreatedAt = second.CreatedAt
	assert.Equal(t, first, second)
}

func TestCreateTierSnapshot_NilPropagation(t *testing.T) {
	_, _, _, b := newEngine(dynamicTier())
	ctx := context.Background()

	// Unknown tier.
	snap, err := b.CreateTierSnapshot(ctx, 404, 10, 10)
	require.NoError(t, err)
	assert.Nil(t, snap)

	// Known tier, invalid configuration: price resolution fails.
	snap, err = b.CreateTierSnapshot(ctx, 2, 95, 10)
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestCreateTierSnapshot_RepositoryFault(t *testing.T) {
	reader := &stubTierReader{err: errors.New("connection refused")}
	v := NewValidator(reader, 0)
	c := NewCalculator(reader, v)
	b := NewSnapshotBuilder(reader, c)

	snap, err := b.CreateTierSnapshot(context.Background(), 1, 10, 10)
	require.Error(t, err)
	assert.Nil(t, snap)
}
