package ordering

import (
	"github.com/agrolink/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// WeightMode selects which weight a product is billed by
type WeightMode string

const (
	// WeightModeNominal bills the declared unit weight
	WeightModeNominal WeightMode = "NOMINAL"
	// WeightModeCubic bills the volume-derived weight (volume x density)
	WeightModeCubic WeightMode = "CUBIC"
)

// IsValid checks if the mode is known
func (m WeightMode) IsValid() bool {
	return m == WeightModeNominal || m == WeightModeCubic
}

// Default freight parameters
var (
	DefaultRatePerKgKm    = decimal.RequireFromString("0.05")
	DefaultMinimumFreight = decimal.RequireFromString("50.00")
)

// ShippingProfile is the per-unit physical description of a product
type ShippingProfile struct {
	NominalWeightKg decimal.Decimal     `json:"nominal_weight_kg"`
	VolumeM3        decimal.Decimal     `json:"volume_m3"`
	DensityKgM3     decimal.NullDecimal `json:"density_kg_m3"`
	WeightMode      WeightMode          `json:"weight_mode"`
}

// FreightParams are the tariff inputs of a freight calculation
type FreightParams struct {
	RatePerKgKm    decimal.Decimal
	MinimumFreight decimal.Decimal
}

// DefaultFreightParams returns rate 0.05 per kg·km with a 50.00 floor
func DefaultFreightParams() FreightParams {
	return FreightParams{
		RatePerKgKm:    DefaultRatePerKgKm,
		MinimumFreight: DefaultMinimumFreight,
	}
}

// FreightCalculationResult describes one freight computation
type FreightCalculationResult struct {
	Quantity         decimal.Decimal     `json:"quantity"`
	DistanceKm       decimal.Decimal     `json:"distance_km"`
	RatePerKgKm      decimal.Decimal     `json:"rate_per_kg_km"`
	MinimumFreight   decimal.Decimal     `json:"minimum_freight"`
	TotalWeightKg    decimal.Decimal     `json:"total_weight_kg"`
	TotalVolumeM3    decimal.Decimal     `json:"total_volume_m3"`
	CubicWeightKg    decimal.NullDecimal `json:"cubic_weight_kg"`
	AppliedMode      WeightMode          `json:"applied_mode"`
	BillableWeightKg decimal.Decimal     `json:"billable_weight_kg"`
	ComputedValue    decimal.Decimal     `json:"computed_value"`
	FreightValue     decimal.Decimal     `json:"freight_value"`
	MinimumApplied   bool                `json:"minimum_applied"`
}

// FreightLine is one product line of a consolidated shipment
type FreightLine struct {
	Profile  ShippingProfile
	Quantity decimal.Decimal
}

// ConsolidatedFreightResult sums a multi-line shipment with a single floor
type ConsolidatedFreightResult struct {
	Lines          []FreightCalculationResult `json:"lines"`
	DistanceKm     decimal.Decimal            `json:"distance_km"`
	TotalWeightKg  decimal.Decimal            `json:"total_weight_kg"`
	TotalVolumeM3  decimal.Decimal            `json:"total_volume_m3"`
	ComputedValue  decimal.Decimal            `json:"computed_value"`
	FreightValue   decimal.Decimal            `json:"freight_value"`
	MinimumFreight decimal.Decimal            `json:"minimum_freight"`
	MinimumApplied bool                       `json:"minimum_applied"`
}

// FreightCalculator computes weight, volume and freight values. It holds no state.
type FreightCalculator struct{}

// NewFreightCalculator creates a FreightCalculator
func NewFreightCalculator() FreightCalculator {
	return FreightCalculator{}
}

// CalculateFreight computes the freight of one product line.
// The result is never below params.MinimumFreight.
func (FreightCalculator) CalculateFreight(profile ShippingProfile, quantity, distanceKm decimal.Decimal, params FreightParams) (FreightCalculationResult, error) {
	if err := validateFreightInputs(quantity, distanceKm, params); err != nil {
		return FreightCalculationResult{}, err
	}

	result := computeLine(profile, quantity, distanceKm, params.RatePerKgKm)
	result.MinimumFreight = params.MinimumFreight
	result.FreightValue, result.MinimumApplied = applyFloor(result.ComputedValue, params.MinimumFreight)
	return result, nil
}

// CalculateConsolidatedFreight computes a multi-line shipment. Each line is computed without a floor;
// the minimum is applied once to the summed value.
func (FreightCalculator) CalculateConsolidatedFreight(lines []FreightLine, distanceKm decimal.Decimal, params FreightParams) (ConsolidatedFreightResult, error) {
	if len(lines) == 0 {
		return ConsolidatedFreightResult{}, shared.NewValidationError("At least one freight line is required")
	}

	result := ConsolidatedFreightResult{
		Lines:          make([]FreightCalculationResult, 0, len(lines)),
		DistanceKm:     distanceKm,
		TotalWeightKg:  decimal.Zero,
		TotalVolumeM3:  decimal.Zero,
		ComputedValue:  decimal.Zero,
		MinimumFreight: params.MinimumFreight,
	}

	for _, line := range lines {
		if err := validateFreightInputs(line.Quantity, distanceKm, params); err != nil {
			return ConsolidatedFreightResult{}, err
		}
		lineResult := computeLine(line.Profile, line.Quantity, distanceKm, params.RatePerKgKm)
		lineResult.MinimumFreight = decimal.Zero
		lineResult.FreightValue = lineResult.ComputedValue.Round(2)

		result.Lines = append(result.Lines, lineResult)
		result.TotalWeightKg = result.TotalWeightKg.Add(lineResult.TotalWeightKg)
		result.TotalVolumeM3 = result.TotalVolumeM3.Add(lineResult.TotalVolumeM3)
		result.ComputedValue = result.ComputedValue.Add(lineResult.ComputedValue)
	}

	result.FreightValue, result.MinimumApplied = applyFloor(result.ComputedValue, params.MinimumFreight)
	return result, nil
}

// AvailableQuantity returns max(0, item quantity - quantity already on transports)
func (FreightCalculator) AvailableQuantity(item *OrderItem) decimal.Decimal {
	return item.AvailableQuantity()
}

// ValidateAvailableQuantity reports whether requested fits in the item's unallocated quantity
func (c FreightCalculator) ValidateAvailableQuantity(item *OrderItem, requested decimal.Decimal) bool {
	return requested.LessThanOrEqual(c.AvailableQuantity(item))
}

func validateFreightInputs(quantity, distanceKm decimal.Decimal, params FreightParams) error {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Quantity must be positive")
	}
	if distanceKm.LessThanOrEqual(decimal.Zero) {
		return shared.NewValidationError("Distance must be positive")
	}
	if params.RatePerKgKm.IsNegative() || params.MinimumFreight.IsNegative() {
		return shared.NewValidationError("Freight rate and minimum cannot be negative")
	}
	return nil
}

func computeLine(profile ShippingProfile, quantity, distanceKm, rate decimal.Decimal) FreightCalculationResult {
	totalWeight := profile.NominalWeightKg.Mul(quantity)
	totalVolume := profile.VolumeM3.Mul(quantity)

	var cubic decimal.NullDecimal
	if profile.DensityKgM3.Valid {
		cubic = decimal.NewNullDecimal(totalVolume.Mul(profile.DensityKgM3.Decimal))
	}

	billable, mode := billableWeight(profile.WeightMode, totalWeight, cubic)

	return FreightCalculationResult{
		Quantity:         quantity,
		DistanceKm:       distanceKm,
		RatePerKgKm:      rate,
		TotalWeightKg:    totalWeight,
		TotalVolumeM3:    totalVolume,
		CubicWeightKg:    cubic,
		AppliedMode:      mode,
		BillableWeightKg: billable,
		ComputedValue:    billable.Mul(distanceKm).Mul(rate),
	}
}

// billableWeight picks the weight basis for the product's mode; cubic without density falls back to nominal
func billableWeight(mode WeightMode, nominal decimal.Decimal, cubic decimal.NullDecimal) (decimal.Decimal, WeightMode) {
	switch mode {
	case WeightModeCubic:
		if cubic.Valid {
			return cubic.Decimal, WeightModeCubic
		}
		return nominal, WeightModeNominal
	default:
		return nominal, WeightModeNominal
	}
}

func applyFloor(value, minimum decimal.Decimal) (decimal.Decimal, bool) {
	if value.LessThan(minimum) {
		return minimum, true
	}
	return value.Round(2), false
}
