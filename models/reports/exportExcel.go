package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/nexweave/vendordesk_backend/models"
	"github.com/xuri/excelize/v2"
)

// WriteInvoiceRegisterExcel renders the caller's visible invoices as an XLSX
// workbook, one row per invoice.
func WriteInvoiceRegisterExcel(ctx context.Context) (*excelize.File, error) {
	invoices, err := models.GetInvoices(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Invoices"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"InvoiceNumber", "Client", "Status", "InvoiceDate",
		"Subtotal", "CGST", "SGST", "IGST", "Total", "Subscription", "Quote"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, inv := range invoices {
		row := i + 2
		invoiceDate := ""
		if inv.InvoiceDate != nil {
			invoiceDate = inv.InvoiceDate.Format("2006-01-02")
		}
		values := []interface{}{
			inv.CustomInvoiceId,
			inv.ClientName,
			string(inv.Status),
			invoiceDate,
			inv.Subtotal.StringFixed(2),
			inv.CgstAmount.StringFixed(2),
			inv.SgstAmount.StringFixed(2),
			inv.IgstAmount.StringFixed(2),
			inv.Total.StringFixed(2),
			inv.SubscriptionId,
			inv.QuoteId,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}
	return f, nil
}

// WriteForecastExcel renders the revenue forecast as an XLSX workbook.
func WriteForecastExcel(ctx context.Context, months int) (*excelize.File, error) {
	forecast, err := GetRevenueForecast(ctx, months)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "Forecast"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	f.SetCellValue(sheet, "A1", "Month")
	f.SetCellValue(sheet, "B1", "ProjectedRevenue")
	for i, month := range forecast {
		f.SetCellValue(sheet, "A"+fmt.Sprint(i+2), month.Month)
		f.SetCellValue(sheet, "B"+fmt.Sprint(i+2), month.ProjectedRevenue.StringFixed(2))
	}

	f.SetCellValue(sheet, "D1", "GeneratedAt")
	f.SetCellValue(sheet, "E1", time.Now().UTC().Format(time.RFC3339))
	return f, nil
}
