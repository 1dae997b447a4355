package service

import (
	"github.com/shopspring/decimal"
)

// WACResult carries the detailed outcome of a weighted-average cost
// recalculation. PreservedPrice is set when stock reached zero and the last
// known price was kept instead of letting the average collapse.
type WACResult struct {
	NewCost        decimal.Decimal
	NewStock       decimal.Decimal
	PreservedPrice *decimal.Decimal
	Warnings       []string
}

// ComputeWAC returns the new weighted-average unit cost after adding qty units
// at unitPrice to a position of oldStock units averaged at oldWAC.
//
// Deterministic, side-effect free, safe for concurrent use. Negative inputs
// for cost, stock and price are treated as zero; qty may be negative (stock
// reversal).
//
// Rules, in order:
//  1. resulting stock <= 0 → keep oldWAC if positive, else unitPrice
//  2. no previous stock    → unitPrice (first-stock identity)
//  3. qty > 0 with unknown price → oldWAC unchanged; a zero price must never
//     silently erode the average
//  4. otherwise the quantity-weighted mean of both positions
func ComputeWAC(oldWAC, oldStock, qty, unitPrice decimal.Decimal) decimal.Decimal {
	return ComputeWACDetailed(oldWAC, oldStock, qty, unitPrice).NewCost
}

// ComputeWACDetailed is ComputeWAC plus the resulting stock level, warnings
// and the preserved price, for callers that need them (purchase reversal).
func ComputeWACDetailed(oldWAC, oldStock, qty, unitPrice decimal.Decimal) WACResult {
	res := WACResult{}

	safeWAC := clampNonNegative(oldWAC)
	safeStock := clampNonNegative(oldStock)
	safePrice := clampNonNegative(unitPrice)
	if oldWAC.IsNegative() || oldStock.IsNegative() || unitPrice.IsNegative() {
		res.Warnings = append(res.Warnings, "negative inputs normalized to zero")
	}

	newStock := safeStock.Add(qty)
	res.NewStock = newStock

	switch {
	case newStock.LessThanOrEqual(decimal.Zero):
		preserved := safePrice
		if safeWAC.IsPositive() {
			preserved = safeWAC
		}
		res.PreservedPrice = &preserved
		res.NewCost = preserved
		res.Warnings = append(res.Warnings, "stock reached zero or below, price preserved")

	case safeStock.LessThanOrEqual(decimal.Zero):
		res.NewCost = safePrice
		res.Warnings = append(res.Warnings, "first stock entry")

	case qty.IsPositive() && safePrice.LessThanOrEqual(decimal.Zero):
		res.NewCost = safeWAC
		res.Warnings = append(res.Warnings, "stock added without a usable price, cost unchanged")

	default:
		// Weighted mean: (oldStock*oldWAC + qty*unitPrice) / newStock.
		// newStock is strictly positive here, so the division is defined.
		wac := safeStock.Mul(safeWAC).Add(qty.Mul(safePrice)).Div(newStock)
		if wac.IsNegative() {
			if safeWAC.IsPositive() {
				wac = safeWAC
			} else {
				wac = safePrice
			}
			res.Warnings = append(res.Warnings, "invalid result, fallback applied")
		}
		res.NewCost = wac
	}

	return res
}

// DeriveUnitPrice resolves a line item's unit price: the explicit price when
// positive, the line subtotal divided by quantity when both are usable,
// otherwise zero ("price unknown").
func DeriveUnitPrice(explicit, subtotal, qty decimal.Decimal) decimal.Decimal {
	if explicit.IsPositive() {
		return explicit
	}
	if qty.IsPositive() && subtotal.IsPositive() {
		return subtotal.Div(qty)
	}
	return decimal.Zero
}

func clampNonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
