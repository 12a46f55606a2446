package template

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
	"github.com/abhay1maurya/receipt-digitizer/internal/extraction"
)

// amountFields are the canonical field names parsed as labeled amounts;
// every other field name is treated as a string pattern field.
var amountFields = map[string]struct{}{
	"tax_amount":   {},
	"subtotal":     {},
	"total_amount": {},
}

// Parse applies a vendor template to raw text and returns a partial bill
// containing only what the template could detect. The caller merges it into
// weak fields; template output is advisory infill, never an authority
// override.
func Parse(text string, tpl *VendorTemplate) *entity.Bill {
	partial := &entity.Bill{}

	// static fields let template authors pin vendor labels or defaults
	for name, value := range tpl.StaticFields {
		switch v := value.(type) {
		case string:
			setString(partial, name, v)
		case float64:
			setAmount(partial, name, v)
		}
	}

	for name, rule := range tpl.Fields {
		if _, isAmount := amountFields[name]; isAmount {
			if v := extraction.AmountAfterLabel(rule.labelCompiled, text); v != 0 {
				setAmount(partial, name, v)
				continue
			}
			// a bare pattern rule captures the amount itself
			if m := extraction.FindFirst(rule.compiled, text); m != "" {
				if v := parseFloatDefault(m, 0); v != 0 {
					setAmount(partial, name, v)
				}
			}
			continue
		}
		if v := extraction.FindFirst(rule.compiled, text); v != "" {
			setString(partial, name, v)
		}
	}

	if tpl.LineItems != nil {
		partial.Items = parseLineItems(text, tpl.LineItems)
	}

	return partial
}

func setString(b *entity.Bill, name, v string) {
	switch name {
	case "invoice_number":
		b.InvoiceNumber = v
	case "vendor_name":
		b.VendorName = v
	case "purchase_date":
		b.PurchaseDate = v
	case "purchase_time":
		b.PurchaseTime = v
	case "currency":
		b.Currency = v
	case "payment_method":
		b.PaymentMethod = v
	}
}

func setAmount(b *entity.Bill, name string, v float64) {
	switch name {
	case "tax_amount":
		b.TaxAmount = v
	case "subtotal":
		b.Subtotal = v
	case "total_amount":
		b.TotalAmount = v
	}
}

func parseLineItems(text string, rule *LineItemRule) []entity.LineItem {
	lines := make([]string, 0, 64)
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	lines = sliceByMarkers(lines, rule.startCompiled, rule.endCompiled)

	re := rule.lineCompiled[0]
	var items []entity.LineItem
	for _, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		name, qty, price, total := groupValues(re.SubexpNames(), m, rule.LineGroups)
		if name == "" {
			continue
		}

		qtyVal := parseFloatDefault(qty, 1.0)
		priceVal := parseFloatDefault(price, 0.0)
		totalVal := parseFloatDefault(total, qtyVal*priceVal)

		items = append(items, entity.LineItem{
			SNo:       len(items) + 1,
			ItemName:  strings.TrimSpace(name),
			Quantity:  qtyVal,
			UnitPrice: priceVal,
			ItemTotal: extraction.Round2(totalVal),
		})
	}
	return items
}

// sliceByMarkers keeps the lines between header and footer markers so store
// info and totals do not parse as items. Either marker defaults to the
// respective end of the text when absent or unmatched.
func sliceByMarkers(lines []string, start, end []*regexp.Regexp) []string {
	startIdx := 0
	endIdx := len(lines)

	if len(start) > 0 {
		for i, line := range lines {
			if anyMatch(start, line) {
				startIdx = i + 1
				break
			}
		}
	}
	if len(end) > 0 {
		for i := startIdx; i < len(lines); i++ {
			if anyMatch(end, lines[i]) {
				endIdx = i
				break
			}
		}
	}
	return lines[startIdx:endIdx]
}

func anyMatch(patterns []*regexp.Regexp, line string) bool {
	for _, re := range patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// groupValues resolves item columns from named capture groups first, then
// from an index-based group mapping.
func groupValues(names []string, match []string, groups map[string]int) (name, qty, price, total string) {
	byName := make(map[string]string, len(names))
	for i, n := range names {
		if n != "" && i < len(match) {
			byName[n] = match[i]
		}
	}
	if len(byName) > 0 {
		name = firstOf(byName, "item_name", "name")
		qty = firstOf(byName, "quantity", "qty")
		price = firstOf(byName, "unit_price", "price")
		total = firstOf(byName, "item_total", "total")
	}
	if name == "" && groups != nil {
		name = groupAt(match, groups, "item_name")
		qty = groupAt(match, groups, "quantity")
		price = groupAt(match, groups, "unit_price")
		total = groupAt(match, groups, "item_total")
	}
	return name, qty, price, total
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

func groupAt(match []string, groups map[string]int, key string) string {
	idx, ok := groups[key]
	if !ok || idx <= 0 || idx >= len(match) {
		return ""
	}
	return match[idx]
}

func parseFloatDefault(s string, def float64) float64 {
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return def
	}
	return v
}
