package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Eidanhurtado/Bibliowave/internal/domain"
)

func items(prices ...int64) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(prices))
	for i, p := range prices {
		out = append(out, domain.LineItem{ID: string(rune('a' + i)), UnitPrice: p})
	}
	return out
}

func TestTotals_NoDiscount(t *testing.T) {
	b := Totals(items(2499, 3499), 0)
	assert.Equal(t, int64(5998), b.Subtotal)
	assert.Equal(t, int64(0), b.Discount)
	assert.Equal(t, int64(5998), b.Total)
	assert.Equal(t, 2, b.Count)
}

func TestTotals_Premium20Scenario(t *testing.T) {
	// 10.00 with PREMIUM20 -> subtotal 10.00, discount 2.00, total 8.00
	b := Totals(items(1000), 0.20)
	assert.Equal(t, "10.00", FormatAmount(b.Subtotal))
	assert.Equal(t, "2.00", FormatAmount(b.Discount))
	assert.Equal(t, "8.00", FormatAmount(b.Total))
}

func TestTotals_OrderIndependent(t *testing.T) {
	a := Totals(items(1999, 2799, 3999), 0.15)
	b := Totals(items(3999, 1999, 2799), 0.15)
	assert.Equal(t, a.Subtotal, b.Subtotal)
	assert.Equal(t, a.Discount, b.Discount)
	assert.Equal(t, a.Total, b.Total)
}

func TestTotals_DiscountRounded(t *testing.T) {
	// 0.15 of 1999 is 299.85, rounded to 300
	b := Totals(items(1999), 0.15)
	assert.Equal(t, int64(300), b.Discount)
	assert.Equal(t, int64(1699), b.Total)
}

func TestTotals_NeverNegative(t *testing.T) {
	b := Totals(items(1000), 1.5) // invalid rate above 1
	assert.Equal(t, int64(0), b.Total)
}

func TestTotals_Empty(t *testing.T) {
	b := Totals(nil, 0.25)
	assert.Equal(t, Breakdown{}, b)
}

func TestTotals_InvariantHolds(t *testing.T) {
	rates := []float64{0, 0.1, 0.15, 0.2, 0.25, 0.5, 1}
	for _, rate := range rates {
		b := Totals(items(1234, 5678, 99), rate)
		expected := b.Subtotal - b.Discount
		if expected < 0 {
			expected = 0
		}
		assert.Equal(t, expected, b.Total, "rate %v", rate)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "24.99", FormatAmount(2499))
	assert.Equal(t, "0.00", FormatAmount(0))
	assert.Equal(t, "100.00", FormatAmount(10000))
	assert.Equal(t, "0.05", FormatAmount(5))
}

func TestCentsFromMajor(t *testing.T) {
	assert.Equal(t, int64(2599), CentsFromMajor(25.99))
	assert.Equal(t, int64(1999), CentsFromMajor(19.99))
	assert.Equal(t, int64(0), CentsFromMajor(0))
	assert.Equal(t, int64(1000), CentsFromMajor(10))
	// binary float representations of cent amounts still round clean
	assert.Equal(t, int64(2760), CentsFromMajor(9.2*3))
}
