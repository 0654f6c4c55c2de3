package ordering

import "github.com/shopspring/decimal"

// TotalsSnapshot is the derived cart valuation stored with the order
type TotalsSnapshot struct {
	GrossValue     decimal.Decimal `json:"gross_value"`
	DiscountValue  decimal.Decimal `json:"discount_value"`
	NetValue       decimal.Decimal `json:"net_value"`
	ItemCount      int             `json:"item_count"`
	AvgDiscountPct decimal.Decimal `json:"avg_discount_pct"`
}

// EmptyTotals returns the snapshot of an empty cart
func EmptyTotals() TotalsSnapshot {
	return TotalsSnapshot{
		GrossValue:     decimal.Zero,
		DiscountValue:  decimal.Zero,
		NetValue:       decimal.Zero,
		AvgDiscountPct: decimal.Zero,
	}
}

// CalculateTotals folds the items into a fresh snapshot. It never reads the previous snapshot.
func CalculateTotals(items []OrderItem) TotalsSnapshot {
	totals := EmptyTotals()
	for i := range items {
		totals.GrossValue = totals.GrossValue.Add(items[i].LineGross())
		totals.DiscountValue = totals.DiscountValue.Add(items[i].DiscountAmount())
	}
	totals.NetValue = totals.GrossValue.Sub(totals.DiscountValue)
	totals.ItemCount = len(items)
	if !totals.GrossValue.IsZero() {
		totals.AvgDiscountPct = totals.DiscountValue.Div(totals.GrossValue).Mul(hundred).Round(2)
	}
	return totals
}
