package extraction

import "regexp"

// Pattern tables for recovering fields from raw recognized text. Kept as
// declarative ordered data, not code branches, so each table can be unit
// tested independently of control flow. Order matters: patterns go from most
// to least reliable for a field, and the first match wins.

// datePatterns: regional variations mean ISO, DD/MM/YYYY, DD-MM-YYYY and
// DD.MM.YYYY all show up on receipts. ISO first, it is unambiguous.
var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`),
	regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`),
	regexp.MustCompile(`\b(\d{2}-\d{2}-\d{4})\b`),
	regexp.MustCompile(`\b(\d{2}\.\d{2}\.\d{4})\b`),
}

// timePatterns: HH:MM before HH:MM:SS because OCR often truncates seconds.
var timePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{2}:\d{2})\b`),
	regexp.MustCompile(`\b(\d{2}:\d{2}:\d{2})\b`),
}

// invoicePatterns: vendors label the number inconsistently (Invoice, Bill,
// Receipt, INV#, ...). Each entry records which capture group holds the
// actual number.
var invoicePatterns = []struct {
	re    *regexp.Regexp
	group int
}{
	{regexp.MustCompile(`(?i)(invoice|bill|receipt)[\s\-:#]*([A-Z0-9][A-Z0-9\-/]*)`), 2},
	{regexp.MustCompile(`(?i)\bINV[\s\-:]?([A-Z0-9]+)\b`), 1},
	{regexp.MustCompile(`(?i)\bBILL[\s\-:]?([A-Z0-9\-/]+)\b`), 1},
}

// currencyPatterns: scanned in order, symbol alternatives before textual
// codes elsewhere in the same pattern; symbols survive OCR corruption better
// than letter sequences.
var currencyPatterns = []struct {
	code string
	re   *regexp.Regexp
}{
	{"USD", regexp.MustCompile(`(?i)\bUSD\b|\$`)},
	{"INR", regexp.MustCompile(`(?i)\bINR\b|₹`)},
	{"MYR", regexp.MustCompile(`(?i)\bMYR\b|\bRM\b`)},
	{"EUR", regexp.MustCompile(`(?i)\bEUR\b|€`)},
	{"GBP", regexp.MustCompile(`(?i)\bGBP\b|£`)},
}

// paymentMethodPatterns: multiple aliases per method catch OCR variations
// (PAYTM, PayTM, paytm).
var paymentMethodPatterns = []struct {
	method string
	re     *regexp.Regexp
}{
	{"CASH", regexp.MustCompile(`(?i)\bCASH\b`)},
	{"CARD", regexp.MustCompile(`(?i)\bCARD\b|\bCREDIT\b|\bDEBIT\b`)},
	{"UPI", regexp.MustCompile(`(?i)\bUPI\b`)},
	{"NET BANKING", regexp.MustCompile(`(?i)\bNET BANKING\b|\bONLINE\b`)},
	{"WALLET", regexp.MustCompile(`(?i)\bPAYTM\b|\bPHONEPE\b|\bGPAY\b`)},
}

// AmountPattern matches currency values with optional thousands separators
// and two-decimal fractions (1000, 1,000, 1000.50).
const AmountPattern = `\b\d{1,3}(?:,\d{3})+(?:\.\d{2})?\b|\b\d+(?:\.\d{2})?\b`

// Label tables for labeled-amount extraction. A label token optionally
// followed by a separator and an amount.
var (
	// specific tax forms appear alongside the generic ones; generic first so
	// a receipt that prints both "TAX" and "CGST" resolves to the grand tax
	taxLabels = []string{
		`\bTAX\b`,
		`\bGST\b`,
		`\bVAT\b`,
		`\bCGST\b`,
		`\bSGST\b`,
		`\bIGST\b`,
	}
	totalLabels = []string{
		`\bTOTAL\b`,
		`\bAMOUNT DUE\b`,
		`\bGRAND TOTAL\b`,
	}
	subtotalLabels = []string{
		`\bSUBTOTAL\b`,
		`\bSUB TOTAL\b`,
	}
)

var (
	taxAmountPatterns      = compileAmountLabels(taxLabels)
	totalAmountPatterns    = compileAmountLabels(totalLabels)
	subtotalAmountPatterns = compileAmountLabels(subtotalLabels)
)

// lineItemPattern parses one item row: serial number, name, quantity, unit
// price. Matched per line; the lazy name group keeps quantity and price from
// being swallowed into the item name.
var lineItemPattern = regexp.MustCompile(`^\s*(\d+)\s+([A-Za-z0-9][A-Za-z0-9\s\-.]*?)\s+(\d+(?:\.\d+)?)\s+(\d+(?:\.\d+)?)\s*$`)

// amountLabelSuffix joins a label to its amount: optional separator, then an
// optional currency symbol or code ("TOTAL: $10.00", "TAX RM 2.10").
const amountLabelSuffix = `\s*[:\-]?\s*(?:USD|INR|MYR|EUR|GBP|RM|[$₹€£])?\s*(` + AmountPattern + `)`

func compileAmountLabels(labels []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(labels))
	for _, label := range labels {
		out = append(out, regexp.MustCompile(`(?i)`+label+amountLabelSuffix))
	}
	return out
}

// CompileAmountLabel composes a label pattern with the amount pattern the
// same way the built-in tables are built. Used for vendor-tuned labels
// loaded at runtime.
func CompileAmountLabel(label string) (*regexp.Regexp, error) {
	return regexp.Compile(`(?i)` + label + amountLabelSuffix)
}
