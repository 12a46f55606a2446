package extraction

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

// dateFormats tried in order when normalizing a purchase date.
var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
}

// timeFormats tried strictly before falling back to the permissive regex.
var timeFormats = []string{
	"15:04:05",
	"15:04",
	"3:04 PM",
	"3:04:05 PM",
}

var looseTimePattern = regexp.MustCompile(`^\s*(\d{1,2}):(\d{2})(?::(\d{2}))?\s*$`)

// NormalizeBill coerces every field to its canonical type and format
// regardless of which source produced it: strings truncated to schema limits
// and uppercased, dates to YYYY-MM-DD, times to HH:MM:SS, monetary values
// rounded to 2 decimals. Unparseable dates and times become "", never an
// error. Idempotent: normalizing an already-normalized bill is a no-op.
func NormalizeBill(b entity.Bill) entity.Bill {
	b.InvoiceNumber = truncate(strings.ToUpper(strings.TrimSpace(b.InvoiceNumber)), entity.MaxInvoiceNumberLen)

	vendor := strings.ToUpper(strings.TrimSpace(b.VendorName))
	if vendor == "" {
		vendor = "UNKNOWN"
	}
	b.VendorName = truncate(vendor, entity.MaxVendorNameLen)

	currency := strings.ToUpper(strings.TrimSpace(b.Currency))
	if currency == "" {
		currency = "USD"
	}
	b.Currency = truncate(currency, entity.MaxCurrencyLen)

	b.PaymentMethod = truncate(strings.ToUpper(strings.TrimSpace(b.PaymentMethod)), entity.MaxPaymentMethodLen)

	b.PurchaseDate = normalizeDate(b.PurchaseDate)
	b.PurchaseTime = normalizeTime(b.PurchaseTime)

	b.TaxAmount = Round2(b.TaxAmount)
	b.TotalAmount = Round2(b.TotalAmount)
	// extractors that never populate subtotal leave it at zero; recover it
	// from the total when possible
	if b.Subtotal == 0 && b.TotalAmount > 0 {
		b.Subtotal = b.TotalAmount - b.TaxAmount
	}
	b.Subtotal = Round2(b.Subtotal)

	b.Items = normalizeItems(b.Items)
	return b
}

func normalizeItems(items []entity.LineItem) []entity.LineItem {
	normalized := make([]entity.LineItem, 0, len(items))
	for idx, item := range items {
		if item.SNo == 0 {
			item.SNo = idx + 1
		}
		item.ItemName = strings.ToUpper(strings.TrimSpace(item.ItemName))
		if item.ItemTotal == 0 {
			item.ItemTotal = item.Quantity * item.UnitPrice
		}
		item.Quantity = Round2(item.Quantity)
		item.UnitPrice = Round2(item.UnitPrice)
		item.ItemTotal = Round2(item.ItemTotal)
		normalized = append(normalized, item)
	}
	return normalized
}

func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func normalizeTime(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range timeFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("15:04:05")
		}
	}
	// permissive H:MM[:SS] with range validation for formats OCR produces
	if m := looseTimePattern.FindStringSubmatch(s); m != nil {
		hh, _ := strconv.Atoi(m[1])
		mm, _ := strconv.Atoi(m[2])
		ss := 0
		if m[3] != "" {
			ss, _ = strconv.Atoi(m[3])
		}
		if hh <= 23 && mm <= 59 && ss <= 59 {
			return fmt.Sprintf("%02d:%02d:%02d", hh, mm, ss)
		}
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
