package ordering

import (
	"testing"

	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nominalProfile(weight string) ShippingProfile {
	return ShippingProfile{
		NominalWeightKg: d(weight),
		VolumeM3:        d("0.01"),
		WeightMode:      WeightModeNominal,
	}
}

func TestCalculateFreight_Scenarios(t *testing.T) {
	calc := NewFreightCalculator()

	tests := []struct {
		name           string
		weight         string
		qty            string
		distance       string
		wantComputed   string
		wantFreight    string
		minimumApplied bool
	}{
		{"5kg x 10 over 100km", "5", "10", "100", "250", "250", false},
		{"floor applied", "0.5", "1", "10", "0.25", "50", true},
		{"exactly the floor", "1", "10", "100", "50", "50", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := calc.CalculateFreight(nominalProfile(tt.weight), d(tt.qty), d(tt.distance), DefaultFreightParams())

			require.NoError(t, err)
			assert.True(t, result.ComputedValue.Equal(d(tt.wantComputed)), "computed %s", result.ComputedValue)
			assert.True(t, result.FreightValue.Equal(d(tt.wantFreight)), "freight %s", result.FreightValue)
			assert.Equal(t, tt.minimumApplied, result.MinimumApplied)
			assert.Equal(t, WeightModeNominal, result.AppliedMode)
		})
	}
}

func TestCalculateFreight_NeverBelowMinimum(t *testing.T) {
	calc := NewFreightCalculator()
	params := DefaultFreightParams()

	for _, weight := range []string{"0.001", "0.1", "1", "3.3", "10", "250"} {
		for _, qty := range []string{"1", "2", "17", "500"} {
			for _, dist := range []string{"0.5", "1", "12", "880"} {
				result, err := calc.CalculateFreight(nominalProfile(weight), d(qty), d(dist), params)
				require.NoError(t, err)
				assert.True(t, result.FreightValue.GreaterThanOrEqual(params.MinimumFreight),
					"w=%s q=%s d=%s freight=%s", weight, qty, dist, result.FreightValue)
			}
		}
	}
}

func TestCalculateFreight_WeightModes(t *testing.T) {
	calc := NewFreightCalculator()

	t.Run("cubic uses volume x density", func(t *testing.T) {
		profile := ShippingProfile{
			NominalWeightKg: d("20"),
			VolumeM3:        d("0.1"),
			DensityKgM3:     decimal.NewNullDecimal(d("300")),
			WeightMode:      WeightModeCubic,
		}

		result, err := calc.CalculateFreight(profile, d("10"), d("100"), DefaultFreightParams())

		require.NoError(t, err)
		assert.True(t, result.TotalWeightKg.Equal(d("200")))
		assert.True(t, result.TotalVolumeM3.Equal(d("1")))
		require.True(t, result.CubicWeightKg.Valid)
		assert.True(t, result.CubicWeightKg.Decimal.Equal(d("300")))
		assert.Equal(t, WeightModeCubic, result.AppliedMode)
		assert.True(t, result.FreightValue.Equal(d("1500")))
	})

	t.Run("cubic without density falls back to nominal", func(t *testing.T) {
		profile := ShippingProfile{NominalWeightKg: d("20"), VolumeM3: d("0.1"), WeightMode: WeightModeCubic}

		result, err := calc.CalculateFreight(profile, d("10"), d("100"), DefaultFreightParams())

		require.NoError(t, err)
		assert.False(t, result.CubicWeightKg.Valid)
		assert.Equal(t, WeightModeNominal, result.AppliedMode)
		assert.True(t, result.FreightValue.Equal(d("1000")))
	})

	t.Run("nominal mode ignores known density", func(t *testing.T) {
		profile := ShippingProfile{
			NominalWeightKg: d("20"),
			VolumeM3:        d("0.1"),
			DensityKgM3:     decimal.NewNullDecimal(d("300")),
			WeightMode:      WeightModeNominal,
		}

		result, err := calc.CalculateFreight(profile, d("10"), d("100"), DefaultFreightParams())

		require.NoError(t, err)
		assert.True(t, result.CubicWeightKg.Valid)
		assert.True(t, result.BillableWeightKg.Equal(d("200")))
	})
}

func TestCalculateFreight_Validation(t *testing.T) {
	calc := NewFreightCalculator()

	_, err := calc.CalculateFreight(nominalProfile("1"), decimal.Zero, d("10"), DefaultFreightParams())
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = calc.CalculateFreight(nominalProfile("1"), d("1"), decimal.Zero, DefaultFreightParams())
	assert.ErrorIs(t, err, shared.ErrValidation)

	_, err = calc.CalculateFreight(nominalProfile("1"), d("1"), d("-5"), DefaultFreightParams())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestCalculateConsolidatedFreight_SingleFloor(t *testing.T) {
	calc := NewFreightCalculator()
	lines := []FreightLine{
		{Profile: nominalProfile("0.5"), Quantity: d("1")},
		{Profile: nominalProfile("1"), Quantity: d("2")},
	}

	result, err := calc.CalculateConsolidatedFreight(lines, d("10"), DefaultFreightParams())

	require.NoError(t, err)
	require.Len(t, result.Lines, 2)
	// Each line keeps its raw value; no per-line floor
	assert.True(t, result.Lines[0].FreightValue.Equal(d("0.25")))
	assert.True(t, result.Lines[1].FreightValue.Equal(d("1")))
	assert.True(t, result.ComputedValue.Equal(d("1.25")))
	assert.True(t, result.FreightValue.Equal(d("50")))
	assert.True(t, result.MinimumApplied)
	assert.True(t, result.TotalWeightKg.Equal(d("2.5")))
}

func TestCalculateConsolidatedFreight_AboveFloor(t *testing.T) {
	calc := NewFreightCalculator()
	lines := []FreightLine{
		{Profile: nominalProfile("5"), Quantity: d("10")},
		{Profile: nominalProfile("0.5"), Quantity: d("1")},
	}

	result, err := calc.CalculateConsolidatedFreight(lines, d("100"), DefaultFreightParams())

	require.NoError(t, err)
	assert.True(t, result.FreightValue.Equal(d("252.5")))
	assert.False(t, result.MinimumApplied)
}

func TestCalculateConsolidatedFreight_Empty(t *testing.T) {
	_, err := NewFreightCalculator().CalculateConsolidatedFreight(nil, d("10"), DefaultFreightParams())
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAvailableQuantity(t *testing.T) {
	calc := NewFreightCalculator()
	item := &OrderItem{
		ID:       uuid.New(),
		Quantity: d("100"),
		Transports: []Transport{
			{Quantity: d("60")},
		},
	}

	assert.True(t, calc.AvailableQuantity(item).Equal(d("40")))
	assert.True(t, calc.ValidateAvailableQuantity(item, d("40")))
	assert.False(t, calc.ValidateAvailableQuantity(item, d("50")))

	item.Transports = append(item.Transports, Transport{Quantity: d("70")})
	assert.True(t, calc.AvailableQuantity(item).IsZero())
}
