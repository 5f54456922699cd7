package parking

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePricing_NoDiscount(t *testing.T) {
	// 60 minutes of car parking at 50.00/hr: 50.00 + 12% VAT = 56.00.
	p := computePricing(5000, 60, nil)

	assert.Equal(t, int64(5000), p.Subtotal)
	assert.Equal(t, int64(0), p.DiscountTotal)
	assert.Equal(t, int64(600), p.VATAmount)
	assert.Equal(t, int64(5600), p.Total)
}

func TestComputePricing_VATExemptDiscount(t *testing.T) {
	// Senior citizen: 20% off and VAT-exempt. 50.00 → 40.00, no VAT.
	p := computePricing(5000, 60, []Discount{DefaultDiscounts["SENIOR"]})

	assert.Equal(t, int64(5000), p.Subtotal)
	assert.Equal(t, int64(1000), p.DiscountTotal)
	assert.Equal(t, int64(0), p.VATAmount)
	assert.Equal(t, int64(4000), p.Total)
}

func TestComputePricing_StackedDiscountsMultiply(t *testing.T) {
	// Senior + PWD stack multiplicatively: 50.00 × 0.8 × 0.8 = 32.00.
	p := computePricing(5000, 60, []Discount{
		DefaultDiscounts["SENIOR"],
		DefaultDiscounts["PWD"],
	})

	assert.Equal(t, int64(1800), p.DiscountTotal)
	assert.Equal(t, int64(0), p.VATAmount)
	assert.Equal(t, int64(3200), p.Total)
}

func TestComputePricing_NonExemptDiscountKeepsVAT(t *testing.T) {
	// 10% promo is not VAT-exempt: 50.00 → 45.00 + 12% = 50.40.
	p := computePricing(5000, 60, []Discount{DefaultDiscounts["PROMO"]})

	assert.Equal(t, int64(500), p.DiscountTotal)
	assert.Equal(t, int64(540), p.VATAmount)
	assert.Equal(t, int64(5040), p.Total)
}

func TestComputePricing_RoundsHalfUpOnceAtTheEnd(t *testing.T) {
	// 25 minutes at 50.00/hr is 2083.33...; half-up lands on 2083, and the
	// fraction never compounds through the discount chain.
	p := computePricing(5000, 25, nil)
	assert.Equal(t, int64(2083), p.Subtotal)

	// 5000 × 25/60 × 0.8 = 1666.66... → 1667, not 0.8 × 2083 = 1666.4 → 1666.
	d := computePricing(5000, 25, []Discount{DefaultDiscounts["SENIOR"]})
	assert.Equal(t, int64(2083-1667), d.DiscountTotal)
	assert.Equal(t, int64(1667), d.Total)
}

func TestComputePricing_TotalIsSubtotalMinusDiscountPlusVAT(t *testing.T) {
	for _, discounts := range [][]Discount{
		nil,
		{DefaultDiscounts["PROMO"]},
		{DefaultDiscounts["SENIOR"]},
		{DefaultDiscounts["SENIOR"], DefaultDiscounts["PWD"]},
	} {
		p := computePricing(5000, 90, discounts)
		assert.Equal(t, p.Subtotal-p.DiscountTotal+p.VATAmount, p.Total)
	}
}
