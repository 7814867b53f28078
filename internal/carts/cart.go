package carts

import (
	"github.com/shopspring/decimal"

	"github.com/cartrescue/cartrescue-backend/pkg/money"
)

// Item is one product line in a live cart. The price is frozen at add time so
// totals stay stable while the visitor shops.
type Item struct {
	ProductID  int64  `json:"product_id"`
	Title      string `json:"title"`
	Qty        int64  `json:"qty"`
	PriceCents int64  `json:"price_cents"`
}

// LineTotalCents returns qty times the frozen unit price.
func (i Item) LineTotalCents() int64 {
	return i.Qty * i.PriceCents
}

// Cart is the visitor's live cart as stored in Redis.
type Cart struct {
	Items   []Item   `json:"items"`
	Coupons []string `json:"coupons,omitempty"`
}

// IsEmpty reports whether the cart holds no items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// HasCoupon reports whether the code is already applied.
func (c *Cart) HasCoupon(code string) bool {
	if c == nil {
		return false
	}
	for _, applied := range c.Coupons {
		if applied == code {
			return true
		}
	}
	return false
}

// Totals summarizes the priced cart.
type Totals struct {
	SubtotalCents int64 `json:"subtotal_cents"`
	DiscountCents int64 `json:"discount_cents"`
	TotalCents    int64 `json:"total_cents"`
}

// ComputeTotals prices the cart. Each coupon's percentage applies to the
// subtotal; the total never drops below zero.
func ComputeTotals(cart *Cart, percentOffByCode map[string]decimal.Decimal) Totals {
	if cart == nil {
		return Totals{}
	}

	var subtotal int64
	for _, item := range cart.Items {
		subtotal += item.LineTotalCents()
	}

	discount := decimal.Zero
	subtotalDec := money.FromCents(subtotal)
	for _, code := range cart.Coupons {
		pct, ok := percentOffByCode[code]
		if !ok {
			continue
		}
		discount = discount.Add(subtotalDec.Mul(pct).Div(decimal.NewFromInt(100)))
	}

	discountCents := money.ToCents(discount)
	if discountCents > subtotal {
		discountCents = subtotal
	}

	return Totals{
		SubtotalCents: subtotal,
		DiscountCents: discountCents,
		TotalCents:    subtotal - discountCents,
	}
}
