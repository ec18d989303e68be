package models

import (
	"errors"

	"github.com/nexweave/vendordesk_backend/utils"
	"github.com/shopspring/decimal"
)

// TaxedLine is the monetary shape shared by every billing document's line
// items: quantity, unit amount, derived line amount, and the three tax
// buckets with their rates. Embedded into the per-document line tables.
type TaxedLine struct {
	Description string          `gorm:"size:255" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	UnitAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_amount"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	CgstRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cgst_rate"`
	CgstAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cgst_amount"`
	SgstRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sgst_rate"`
	SgstAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"sgst_amount"`
	IgstRate    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"igst_rate"`
	IgstAmount  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"igst_amount"`
}

// NewTaxedLine is the line-item input shared by every document's create and
// update payloads. Amount and tax amounts may be omitted; they are derived
// from quantity/unit amount and the per-bucket rates.
type NewTaxedLine struct {
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitAmount  decimal.Decimal `json:"unit_amount"`
	Amount      decimal.Decimal `json:"amount"`
	CgstRate    decimal.Decimal `json:"cgst_rate"`
	CgstAmount  decimal.Decimal `json:"cgst_amount"`
	SgstRate    decimal.Decimal `json:"sgst_rate"`
	SgstAmount  decimal.Decimal `json:"sgst_amount"`
	IgstRate    decimal.Decimal `json:"igst_rate"`
	IgstAmount  decimal.Decimal `json:"igst_amount"`
}

// toTaxedLine derives the missing amounts: line amount from qty * unit
// amount when absent, each tax bucket from its rate when the caller did not
// supply the amount directly.
func (in NewTaxedLine) toTaxedLine() TaxedLine {
	line := TaxedLine{
		Description: in.Description,
		Quantity:    in.Quantity,
		UnitAmount:  in.UnitAmount,
		Amount:      in.Amount,
		CgstRate:    in.CgstRate,
		CgstAmount:  in.CgstAmount,
		SgstRate:    in.SgstRate,
		SgstAmount:  in.SgstAmount,
		IgstRate:    in.IgstRate,
		IgstAmount:  in.IgstAmount,
	}
	if line.Amount.IsZero() && !line.Quantity.IsZero() {
		line.Amount = utils.ComputeLineAmount(line.Quantity, line.UnitAmount)
	}
	if line.CgstAmount.IsZero() {
		line.CgstAmount = utils.ComputeLineTax(line.Amount, line.CgstRate)
	}
	if line.SgstAmount.IsZero() {
		line.SgstAmount = utils.ComputeLineTax(line.Amount, line.SgstRate)
	}
	if line.IgstAmount.IsZero() {
		line.IgstAmount = utils.ComputeLineTax(line.Amount, line.IgstRate)
	}
	return line
}

func (l TaxedLine) amounts() utils.LineItemAmounts {
	return utils.LineItemAmounts{
		Amount:     l.Amount,
		CgstAmount: l.CgstAmount,
		SgstAmount: l.SgstAmount,
		IgstAmount: l.IgstAmount,
	}
}

// SuppliedTotals is the optional aggregate override a caller may send with a
// create payload. Any non-zero value makes the whole set authoritative.
type SuppliedTotals struct {
	Subtotal   decimal.Decimal `json:"subtotal"`
	CgstAmount decimal.Decimal `json:"cgst_amount"`
	SgstAmount decimal.Decimal `json:"sgst_amount"`
	IgstAmount decimal.Decimal `json:"igst_amount"`
	Total      decimal.Decimal `json:"total"`
}

func (s *SuppliedTotals) toDocumentTotals() *utils.DocumentTotals {
	if s == nil {
		return nil
	}
	return &utils.DocumentTotals{
		Subtotal:   s.Subtotal,
		CgstAmount: s.CgstAmount,
		SgstAmount: s.SgstAmount,
		IgstAmount: s.IgstAmount,
		Total:      s.Total,
	}
}

// resolveUpdateTotals decides a document's aggregates on edit. Replaced
// lines always recompute and override anything supplied or stored; without
// a line replacement, a non-zero supplied aggregate corrects the stored one.
func resolveUpdateTotals(stored utils.DocumentTotals, supplied *SuppliedTotals, amounts []utils.LineItemAmounts, replacingLines bool) utils.DocumentTotals {
	if replacingLines {
		return utils.ComputeTotals(amounts, nil)
	}
	if override := supplied.toDocumentTotals(); override != nil && !override.IsZero() {
		return utils.ComputeTotals(nil, override)
	}
	return stored
}

// buildTaxedLines validates and derives a document's line items plus the
// amount slices the totals calculator consumes.
func buildTaxedLines(inputs []NewTaxedLine) ([]TaxedLine, []utils.LineItemAmounts, error) {
	lines := make([]TaxedLine, 0, len(inputs))
	amounts := make([]utils.LineItemAmounts, 0, len(inputs))
	for _, in := range inputs {
		if in.Description == "" {
			return nil, nil, errors.New("line item description is required")
		}
		line := in.toTaxedLine()
		lines = append(lines, line)
		amounts = append(amounts, line.amounts())
	}
	return lines, amounts, nil
}
