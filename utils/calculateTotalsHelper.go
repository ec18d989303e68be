package utils

import (
	"github.com/shopspring/decimal"
)

// LineItemAmounts is the monetary slice of a document line the totals
// calculator needs: the line amount plus one tax amount per bucket.
type LineItemAmounts struct {
	Amount     decimal.Decimal
	CgstAmount decimal.Decimal
	SgstAmount decimal.Decimal
	IgstAmount decimal.Decimal
}

// DocumentTotals holds the derived (or caller-supplied) aggregates of a
// billing document. Invariant when computed here:
// Total = Subtotal + Cgst + Sgst + Igst.
type DocumentTotals struct {
	Subtotal   decimal.Decimal
	CgstAmount decimal.Decimal
	SgstAmount decimal.Decimal
	IgstAmount decimal.Decimal
	Total      decimal.Decimal
}

func (t DocumentTotals) IsZero() bool {
	return t.Subtotal.IsZero() &&
		t.CgstAmount.IsZero() &&
		t.SgstAmount.IsZero() &&
		t.IgstAmount.IsZero() &&
		t.Total.IsZero()
}

// ComputeTotals derives document aggregates from line items.
//
// If supplied carries any non-zero aggregate it is trusted as-is (caller
// override). Otherwise subtotal is the sum of line amounts, each tax bucket
// the sum of its per-line amounts, and total the sum of all four.
// Callers replacing line items on update must pass supplied == nil so stale
// aggregates cannot survive an edit.
func ComputeTotals(lines []LineItemAmounts, supplied *DocumentTotals) DocumentTotals {
	if supplied != nil && !supplied.IsZero() {
		return *supplied
	}

	var totals DocumentTotals
	for _, line := range lines {
		totals.Subtotal = totals.Subtotal.Add(line.Amount)
		totals.CgstAmount = totals.CgstAmount.Add(line.CgstAmount)
		totals.SgstAmount = totals.SgstAmount.Add(line.SgstAmount)
		totals.IgstAmount = totals.IgstAmount.Add(line.IgstAmount)
	}
	totals.Total = totals.Subtotal.
		Add(totals.CgstAmount).
		Add(totals.SgstAmount).
		Add(totals.IgstAmount)
	return totals
}

// ComputeLineTax derives one tax bucket amount from the line amount and a
// percentage rate: (amount / 100) * rate, intermediate division rounded to 4
// places. Display rounding to 2 places happens at the presentation layer,
// never here.
func ComputeLineTax(amount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.Zero
	}
	return amount.DivRound(decimal.NewFromInt(100), 4).Mul(rate)
}

// ComputeLineAmount is qty * unit amount.
func ComputeLineAmount(qty decimal.Decimal, unitAmount decimal.Decimal) decimal.Decimal {
	return qty.Mul(unitAmount)
}
