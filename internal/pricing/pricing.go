package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/Eidanhurtado/Bibliowave/internal/domain"
)

// Breakdown holds cart totals in minor currency units (euro cents).
type Breakdown struct {
	Subtotal int64 `json:"subtotal"`
	Discount int64 `json:"discount"`
	Total    int64 `json:"total"`
	Count    int   `json:"count"`
}

// Totals computes subtotal/discount/total for the given items and
// discount rate. Pure: no I/O, no mutation. The total never goes
// negative, even for an (invalid) rate above 1.
func Totals(items []domain.LineItem, discountRate float64) Breakdown {
	var subtotal int64
	for _, it := range items {
		subtotal += it.UnitPrice
	}

	discount := int64(math.Round(float64(subtotal) * discountRate))
	total := subtotal - discount
	if total < 0 {
		total = 0
	}

	return Breakdown{
		Subtotal: subtotal,
		Discount: discount,
		Total:    total,
		Count:    len(items),
	}
}

// FormatAmount renders minor units with exactly two decimal places,
// e.g. 2499 -> "24.99".
func FormatAmount(minorUnits int64) string {
	return decimal.New(minorUnits, -2).StringFixed(2)
}

// CentsFromMajor converts a major-unit amount (25.99 euros) to cents.
// Goes through decimal so float noise like 25.989999 still lands on
// 2599.
func CentsFromMajor(majorUnits float64) int64 {
	return decimal.NewFromFloat(majorUnits).Shift(2).Round(0).IntPart()
}
