package checkout

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
)

// minUnitAmountCents is the lowest per-unit price Stripe line items are
// allowed to reach after discount distribution.
const minUnitAmountCents int64 = 50

// cartLine is one cart entry with its catalog data resolved.
type cartLine struct {
	Name            string
	Quantity        int64
	UnitAmountCents int64
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// distributeDiscount spreads discountCents across the lines proportionally to
// each line's share of the subtotal. Per-unit prices never drop below
// minUnitAmountCents, so the distributed total can fall short of the
// requested discount; the shortfall is returned as residualCents.
func distributeDiscount(lines []cartLine, discountCents int64) ([]int64, int64) {
	units := make([]int64, len(lines))
	var subtotalCents int64
	for i, line := range lines {
		units[i] = line.UnitAmountCents
		subtotalCents += line.UnitAmountCents * line.Quantity
	}
	if discountCents <= 0 || subtotalCents <= 0 {
		return units, 0
	}

	var appliedCents int64
	for i, line := range lines {
		lineSubtotal := line.UnitAmountCents * line.Quantity
		share := discountCents * lineSubtotal / subtotalCents
		perUnit := (lineSubtotal - share) / line.Quantity
		if perUnit < minUnitAmountCents {
			perUnit = minUnitAmountCents
		}
		if perUnit > line.UnitAmountCents {
			perUnit = line.UnitAmountCents
		}
		units[i] = perUnit
		appliedCents += lineSubtotal - perUnit*line.Quantity
	}

	residual := discountCents - appliedCents
	if residual < 0 {
		residual = 0
	}
	return units, residual
}

// buildSessionLineItems assembles the Stripe line items for a checkout
// session: one item per cart line with the discount folded into unit prices,
// a negative residual line when the distribution could not absorb the whole
// discount, and single-quantity tax and shipping lines.
func buildSessionLineItems(
	lines []cartLine,
	discountCents int64,
	discountCode string,
	tax decimal.Decimal,
	shippingCost decimal.Decimal,
	currency string,
) []*stripe.CheckoutSessionCreateLineItemParams {
	units, residual := distributeDiscount(lines, discountCents)

	items := make([]*stripe.CheckoutSessionCreateLineItemParams, 0, len(lines)+3)
	for i, line := range lines {
		items = append(items, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(units[i]),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(line.Name),
				},
			},
			Quantity: stripe.Int64(line.Quantity),
		})
	}

	// Residuals of a single cent are absorbed silently.
	if residual > 1 {
		items = append(items, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(-residual),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("Discount (%s)", discountCode)),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	if tax.IsPositive() {
		items = append(items, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toCents(tax)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String("Tax"),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	if shippingCost.IsPositive() {
		items = append(items, &stripe.CheckoutSessionCreateLineItemParams{
			PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(toCents(shippingCost)),
				ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
					Name: stripe.String("Shipping"),
				},
			},
			Quantity: stripe.Int64(1),
		})
	}

	return items
}
