package vision

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"
	"strings"
)

// NormalizeAndSanitizeJSON
// - Renames known synonyms (tax -> tax_amount, vendor -> vendor_name, ...)
// - Drops null/empty values
// - Coerces money-ish fields to float64
// - Removes unknown keys (strict additionalProperties = false friendliness)
func NormalizeAndSanitizeJSON(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	renamed := func(from, to string) {
		if v, ok := m[from]; ok {
			// don't overwrite existing value if already present
			if _, exists := m[to]; !exists {
				m[to] = v
			}
			delete(m, from)
			dropped = append(dropped, from+"->"+to)
		}
	}

	// 1) rename synonyms to our schema
	renamed("tax", "tax_amount")
	renamed("total", "total_amount")
	renamed("grand_total", "total_amount")
	renamed("sub_total", "subtotal")
	renamed("vendor", "vendor_name")
	renamed("merchant_name", "vendor_name")
	renamed("date", "purchase_date")
	renamed("time", "purchase_time")
	renamed("invoice_no", "invoice_number")
	renamed("receipt_number", "invoice_number")
	renamed("line_items", "items")

	// 2) coerce money fields to float64; drop nulls and junk
	moneyFields := []string{"subtotal", "tax_amount", "total_amount"}
	for _, k := range moneyFields {
		if v, ok := m[k]; ok {
			f, ok := coerceMoney(v)
			if !ok {
				delete(m, k)
				dropped = append(dropped, k+"(uncoercible)")
				continue
			}
			m[k] = f
		}
	}

	// 3) sanitize the items array; anything that is not a list of objects
	// with a usable name is dropped wholesale
	if v, ok := m["items"]; ok {
		items, itemDropped := sanitizeItems(v)
		dropped = append(dropped, itemDropped...)
		if items == nil {
			delete(m, "items")
		} else {
			m["items"] = items
		}
	}

	// 4) remove unknown keys
	allowed := map[string]struct{}{
		"ocr_text": {}, "invoice_number": {}, "vendor_name": {},
		"purchase_date": {}, "purchase_time": {}, "currency": {},
		"payment_method": {}, "subtotal": {}, "tax_amount": {},
		"total_amount": {}, "items": {},
	}
	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			dropped = append(dropped, k+"(unknown)")
		}
	}

	// 5) trim string fields; null or empty becomes absent
	stringKeys := []string{"ocr_text", "invoice_number", "vendor_name",
		"purchase_date", "purchase_time", "currency", "payment_method"}
	for _, k := range stringKeys {
		v, ok := m[k]
		if !ok {
			continue
		}
		s, isStr := v.(string)
		if !isStr {
			if v == nil {
				delete(m, k)
				dropped = append(dropped, k+"(null)")
			} else {
				delete(m, k)
				dropped = append(dropped, k+"(type)")
			}
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" {
			delete(m, k)
			dropped = append(dropped, k+"(empty)")
		} else {
			m[k] = s
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("vision.extract.normalize_sanitize", "dropped", dropped)
	}
	return out, dropped, nil
}

func coerceMoney(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if s == "" || strings.EqualFold(s, "null") {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func sanitizeItems(v any) ([]any, []string) {
	list, ok := v.([]any)
	if !ok {
		return nil, []string{"items(type)"}
	}

	var dropped []string
	out := make([]any, 0, len(list))
	for i, raw := range list {
		item, ok := raw.(map[string]any)
		if !ok {
			dropped = append(dropped, fmt.Sprintf("items[%d](type)", i))
			continue
		}
		if v, ok := item["name"]; ok {
			if _, exists := item["item_name"]; !exists {
				item["item_name"] = v
			}
			delete(item, "name")
		}
		name, _ := item["item_name"].(string)
		if strings.TrimSpace(name) == "" {
			dropped = append(dropped, fmt.Sprintf("items[%d](no_name)", i))
			continue
		}
		clean := map[string]any{"item_name": strings.TrimSpace(name)}
		if f, ok := coerceMoney(item["s_no"]); ok {
			clean["s_no"] = int(f)
		}
		for _, k := range []string{"quantity", "unit_price", "item_total"} {
			if f, ok := coerceMoney(item[k]); ok {
				clean[k] = f
			}
		}
		out = append(out, clean)
	}
	return out, dropped
}
