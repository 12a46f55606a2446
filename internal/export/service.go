package export

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/abhay1maurya/receipt-digitizer/internal/repository"
)

// Service is a tiny façade over the bill repository that produces XLSX bytes
// for exports.
type Service struct {
	bills  repository.BillRepository
	logger *slog.Logger
}

func NewService(bills repository.BillRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{bills: bills, logger: logger}
}

// ExportBillsXLSX returns an XLSX workbook (as bytes) with one sheet of bill
// headers and one of line items, for the given profile.
func (s *Service) ExportBillsXLSX(ctx context.Context, profileID uuid.UUID) ([]byte, error) {
	start := time.Now()

	bills, err := s.bills.ListBills(ctx, profileID)
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}

	f := excelize.NewFile()
	const billsSheet = "Bills"
	const itemsSheet = "Line Items"

	if err := f.SetSheetName("Sheet1", billsSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}

	billHeaders := []string{
		"Invoice Number",
		"Vendor",
		"Purchase Date",
		"Purchase Time",
		"Currency",
		"Payment Method",
		"Subtotal",
		"Tax",
		"Total",
		"Original Currency",
		"Original Total",
		"Exchange Rate",
	}
	writeRow(f, billsSheet, 1, toAny(billHeaders))

	itemHeaders := []string{"Invoice Number", "Vendor", "S.No", "Item", "Quantity", "Unit Price", "Item Total"}
	writeRow(f, itemsSheet, 1, toAny(itemHeaders))

	billRow, itemRow := 2, 2
	for _, b := range bills {
		origCurrency := b.OriginalCurrency
		var origTotal, rate any
		if b.OriginalTotalAmount != nil {
			origTotal = *b.OriginalTotalAmount
		}
		if b.ExchangeRate != nil {
			rate = *b.ExchangeRate
		}
		writeRow(f, billsSheet, billRow, []any{
			b.InvoiceNumber, b.VendorName, b.PurchaseDate, b.PurchaseTime,
			b.Currency, b.PaymentMethod, b.Subtotal, b.TaxAmount, b.TotalAmount,
			origCurrency, origTotal, rate,
		})
		billRow++

		for _, it := range b.Items {
			writeRow(f, itemsSheet, itemRow, []any{
				b.InvoiceNumber, b.VendorName, it.SNo, it.ItemName, it.Quantity, it.UnitPrice, it.ItemTotal,
			})
			itemRow++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	s.logger.Info("export.bills.done",
		"profile_id", profileID, "bills", len(bills), "elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
