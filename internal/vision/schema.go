package vision

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildBillJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map, used locally to validate sanitized model output.
func BuildBillJSONSchema() map[string]any {
	itemProps := map[string]any{
		"s_no":       map[string]any{"type": "integer"},
		"item_name":  map[string]any{"type": "string", "minLength": 1},
		"quantity":   map[string]any{"type": "number", "minimum": 0},
		"unit_price": map[string]any{"type": "number", "minimum": 0},
		"item_total": map[string]any{"type": "number", "minimum": 0},
	}

	props := map[string]any{
		"ocr_text":       map[string]any{"type": "string"},
		"invoice_number": map[string]any{"type": "string"},
		"vendor_name":    map[string]any{"type": "string"},
		"purchase_date":  map[string]any{"type": "string"},
		"purchase_time":  map[string]any{"type": "string"},
		"currency":       map[string]any{"type": "string"},
		"payment_method": map[string]any{"type": "string"},
		"subtotal":       map[string]any{"type": "number"},
		"tax_amount":     map[string]any{"type": "number"},
		"total_amount":   map[string]any{"type": "number"},
		"items": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           itemProps,
				"required":             []string{"item_name"},
			},
		},
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
