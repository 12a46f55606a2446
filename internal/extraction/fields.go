package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

// ExtractFields runs every pattern table over raw recognized text and
// returns a partial bill. Vendor names rarely follow a textual pattern, so
// vendor_name is left for the NER fallback. A field no pattern matched keeps
// its zero value; that is a recoverable "no information" outcome, never an
// error.
func ExtractFields(text string) *entity.Bill {
	return &entity.Bill{
		InvoiceNumber: extractInvoiceNumber(text),
		PurchaseDate:  FindFirst(datePatterns, text),
		PurchaseTime:  FindFirst(timePatterns, text),
		Currency:      extractCurrency(text),
		PaymentMethod: extractPaymentMethod(text),
		TaxAmount:     AmountAfterLabel(taxAmountPatterns, text),
		Subtotal:      AmountAfterLabel(subtotalAmountPatterns, text),
		TotalAmount:   AmountAfterLabel(totalAmountPatterns, text),
		Items:         ExtractLineItems(text),
	}
}

// FindFirst tries each pattern in order and returns the first capture.
func FindFirst(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// AmountAfterLabel locates a labeled amount ("Total: $1,250.00") using
// pre-composed label+amount patterns and returns it as a float. Commas are
// stripped before conversion.
func AmountAfterLabel(patterns []*regexp.Regexp, text string) float64 {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return parseAmount(m[1])
		}
	}
	return 0
}

func extractInvoiceNumber(text string) string {
	for _, p := range invoicePatterns {
		if m := p.re.FindStringSubmatch(text); m != nil {
			return m[p.group]
		}
	}
	return ""
}

func extractCurrency(text string) string {
	for _, p := range currencyPatterns {
		if p.re.MatchString(text) {
			return p.code
		}
	}
	return ""
}

func extractPaymentMethod(text string) string {
	for _, p := range paymentMethodPatterns {
		if p.re.MatchString(text) {
			return p.method
		}
	}
	return ""
}

// ExtractLineItems applies the generic positional item pattern to each line
// of text. Item totals are computed as quantity times unit price.
func ExtractLineItems(text string) []entity.LineItem {
	var items []entity.LineItem
	for _, line := range strings.Split(text, "\n") {
		m := lineItemPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		sno, _ := strconv.Atoi(m[1])
		qty := parseAmount(m[3])
		price := parseAmount(m[4])
		items = append(items, entity.LineItem{
			SNo:       sno,
			ItemName:  strings.TrimSpace(m[2]),
			Quantity:  qty,
			UnitPrice: price,
			ItemTotal: Round2(qty * price),
		})
	}
	return items
}

// parseAmount converts a matched amount to a float, returning 0 on any
// conversion error.
func parseAmount(s string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return 0
	}
	return v
}
