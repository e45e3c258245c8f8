package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"fitleague/internal/types"
)

// starterTierRow fills the destinations of scanTierConfig with a fixed-price
// starter tier. The destination order must match tierConfigColumns.
func starterTierRow(dest ...any) error {
	*(dest[0].(*int64)) = 1
	*(dest[1].(*string)) = "starter"
	*(dest[2].(*string)) = "Starter"
	*(dest[3].(*string)) = "Up to 30 days and 100 members"
	*(dest[4].(*int)) = 30
	*(dest[5].(*int)) = 100
	*(dest[6].(*int64)) = 10
	*(dest[7].(*bool)) = true
	*(dest[8].(*bool)) = false
	*(dest[9].(*int)) = 1
	*(dest[10].(*types.FeatureList)) = types.FeatureList{"Leaderboards"}
	*(dest[11].(*int64)) = 10
	*(dest[12].(*string)) = "starter"
	*(dest[13].(*types.PricingType)) = types.PricingFixed
	*(dest[14].(*string)) = "999.00"
	*(dest[15].(*string)) = "0"
	*(dest[16].(*string)) = "0"
	*(dest[17].(*string)) = "0"
	*(dest[18].(*string)) = "18.00"
	return nil
}

func proTierRow(dest ...any) error {
	if err := starterTierRow(dest...); err != nil {
		return err
	}
	*(dest[0].(*int64)) = 2
	*(dest[1].(*string)) = "pro"
	*(dest[2].(*string)) = "Pro"
	*(dest[9].(*int)) = 2
	*(dest[13].(*types.PricingType)) = types.PricingDynamic
	*(dest[14].(*string)) = "0"
	*(dest[15].(*string)) = "100.00"
	*(dest[16].(*string)) = "5.00"
	*(dest[17].(*string)) = "2.00"
	return nil
}

func TestTierRepo_GetTierConfig_Found(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewTierRepo(dbx)

	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), []any{int64(1)}).
		Return(&mockRow{scanFn: starterTierRow})

	cfg, err := repo.GetTierConfig(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, int64(1), cfg.Tier.ID)
	assert.Equal(t, "Starter", cfg.Tier.DisplayName)
	assert.Equal(t, 30, cfg.Tier.MaxDays)
	assert.Equal(t, types.PricingFixed, cfg.Pricing.Type)
	assert.Equal(t, "999.00", cfg.Pricing.FixedPrice.StringFixed(2))
	assert.Equal(t, "18.00", cfg.Pricing.GSTPercentage.StringFixed(2))
	dbx.AssertExpectations(t)
}

func TestTierRepo_GetTierConfig_MissingOrInactive(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewTierRepo(dbx)

	// The query filters on is_active, so both "no such tier" and "inactive
	// tier" surface as ErrNoRows and map to (nil, nil).
	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: pgx.ErrNoRows})

	cfg, err := repo.GetTierConfig(context.Background(), 404)
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestTierRepo_GetTierConfig_DBError(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewTierRepo(dbx)

	dbx.On("QueryRow", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(&mockRow{scanErr: errors.New("connection refused")})

	cfg, err := repo.GetTierConfig(context.Background(), 1)
	require.Error(t, err)
	assert.Nil(t, cfg)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalDB, appErr.Code)
}

func TestTierRepo_GetActiveTiers(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewTierRepo(dbx)

	dbx.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newMockRows(starterTierRow, proTierRow), nil)

	tiers, err := repo.GetActiveTiers(context.Background())
	require.NoError(t, err)
	require.Len(t, tiers, 2)
	assert.Equal(t, "starter", tiers[0].Tier.Name)
	assert.Equal(t, "pro", tiers[1].Tier.Name)
	assert.Equal(t, types.PricingDynamic, tiers[1].Pricing.Type)
	assert.Equal(t, "5.00", tiers[1].Pricing.PerDayRate.StringFixed(2))
}

func TestTierRepo_GetActiveTiers_Empty(t *testing.T) {
	dbx := new(mockDBTX)
	repo := NewTierRepo(dbx)

	dbx.On("Query", mock.Anything, mock.AnythingOfType("string"), mock.Anything).
		Return(newMockRows(), nil)

	tiers, err := repo.GetActiveTiers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, tiers)
	assert.Empty(t, tiers)
}
