package parking

// VATRatePercent is the statutory VAT applied to the discounted subtotal,
// unless an applied discount declares a VAT exemption.
const VATRatePercent = 12

// Pricing is the breakdown frozen onto the session at creation.
type Pricing struct {
	Subtotal      int64
	DiscountTotal int64
	VATAmount     int64
	Total         int64
}

// computePricing runs entirely in integer minor units. The running value is
// kept as an exact fraction while discounts stack multiplicatively, and
// round-half-up happens once per reported figure at the end.
func computePricing(hourlyRate, durationMinutes int64, discounts []Discount) Pricing {
	num := hourlyRate * durationMinutes
	den := int64(60)
	subtotal := roundHalfUp(num, den)

	vatExempt := false
	for _, d := range discounts {
		num *= 100 - d.Percent
		den *= 100
		if d.VATExempt {
			vatExempt = true
		}
	}
	discounted := roundHalfUp(num, den)

	var vat int64
	if !vatExempt {
		vat = roundHalfUp(discounted*VATRatePercent, 100)
	}

	return Pricing{
		Subtotal:      subtotal,
		DiscountTotal: subtotal - discounted,
		VATAmount:     vat,
		Total:         discounted + vat,
	}
}

// roundHalfUp divides num by den rounding halves away from zero toward
// positive infinity. Both arguments are positive in every call site.
func roundHalfUp(num, den int64) int64 {
	return (2*num + den) / (2 * den)
}
