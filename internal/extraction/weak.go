package extraction

import "github.com/abhay1maurya/receipt-digitizer/internal/entity"

// IsWeak reports whether a field value is equivalent to "not extracted":
// nil, an empty string, numeric zero, or an empty sequence. Every fallback
// decision in the pipeline goes through this single predicate so that
// "missing" and "present-but-useless" are treated identically.
func IsWeak(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case float64:
		return v == 0
	case float32:
		return v == 0
	case int:
		return v == 0
	case []entity.LineItem:
		return len(v) == 0
	case []string:
		return len(v) == 0
	default:
		return false
	}
}
