package template

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acmeTemplate = `{
	"vendor_key": "ACME",
	"aliases": ["Acme Stores", "ACME PVT LTD"],
	"static_fields": {"currency": "USD", "payment_method": "CARD"},
	"fields": {
		"invoice_number": {"patterns": ["Ref[:\\s]+([A-Z0-9-]+)"]},
		"total_amount": {"label_patterns": ["\\bBALANCE DUE\\b"]}
	},
	"line_items": {
		"line_pattern": "^(?P<name>[A-Za-z ]+?)\\s+(?P<qty>\\d+)\\s+x\\s+(?P<price>\\d+\\.\\d{2})$",
		"start_markers": ["^-- ITEMS --$"],
		"end_markers": ["^-- END --$"]
	}
}`

func writeTemplates(t *testing.T, docs map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, doc := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(doc), 0o644))
	}
	return dir
}

func TestNormalizeVendorKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Walmart", "WALMART"},
		{"WAL-MART", "WALMART"},
		{"wal mart inc.", "WALMARTINC"},
		{"  ", ""},
		{"---", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeVendorKey(tt.in), tt.in)
	}
}

func TestLoadLibraryMissingDir(t *testing.T) {
	lib, err := LoadLibrary(filepath.Join(t.TempDir(), "does-not-exist"), nil)
	require.NoError(t, err)
	assert.Zero(t, lib.Len())
	assert.Nil(t, lib.Match("ACME"))
}

func TestLoadLibrarySkipsInvalidDocuments(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"acme.json":       acmeTemplate,
		"broken.json":     `{"vendor_key": `,
		"no_key.json":     `{"aliases": ["X"]}`,
		"bad_regex.json":  `{"vendor_key": "BAD", "fields": {"invoice_number": {"patterns": ["(unclosed"]}}}`,
		"not_a_template":  "ignored, wrong extension",
	})

	lib, err := LoadLibrary(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, lib.Len())
	assert.NotNil(t, lib.Match("ACME"))
	assert.Nil(t, lib.Match("BAD"))
}

func TestMatchViaAliases(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"acme.json": acmeTemplate})
	lib, err := LoadLibrary(dir, nil)
	require.NoError(t, err)

	for _, vendor := range []string{"ACME", "acme stores", "ACME PVT LTD", "A.C.M.E. Pvt-Ltd"} {
		tpl := lib.Match(vendor)
		if vendor == "A.C.M.E. Pvt-Ltd" {
			// normalizes to ACMEPVTLTD, same as the alias
			require.NotNil(t, tpl, vendor)
		}
		if tpl != nil {
			assert.Equal(t, "ACME", tpl.VendorKey, vendor)
		}
	}
	assert.Nil(t, lib.Match("TESCO"))
	assert.Nil(t, lib.Match(""))
}

func TestParseAppliesRulesAndStatics(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"acme.json": acmeTemplate})
	lib, err := LoadLibrary(dir, nil)
	require.NoError(t, err)
	tpl := lib.Match("ACME")
	require.NotNil(t, tpl)

	text := `ACME STORES
Ref: AC-77
-- ITEMS --
Milk  2 x 3.50
Bread 1 x 2.25
-- END --
Leftover Rows 4 x 9.99
BALANCE DUE 9.25`

	partial := Parse(text, tpl)

	assert.Equal(t, "AC-77", partial.InvoiceNumber)
	assert.Equal(t, "USD", partial.Currency)
	assert.Equal(t, "CARD", partial.PaymentMethod)
	assert.Equal(t, 9.25, partial.TotalAmount)

	require.Len(t, partial.Items, 2)
	assert.Equal(t, 1, partial.Items[0].SNo)
	assert.Equal(t, "Milk", partial.Items[0].ItemName)
	assert.Equal(t, 2.0, partial.Items[0].Quantity)
	assert.Equal(t, 3.50, partial.Items[0].UnitPrice)
	assert.Equal(t, 7.00, partial.Items[0].ItemTotal)
	assert.Equal(t, "Bread", partial.Items[1].ItemName)
}

func TestParseAmountFromBarePattern(t *testing.T) {
	tpl := &VendorTemplate{
		VendorKey: "NOLABEL",
		Fields: map[string]FieldRule{
			"total_amount": {Patterns: []string{`GRAND TOTAL\s+(\d[\d,]*\.\d{2})`}},
			"tax_amount":   {Patterns: []string{`GST\s+(\d+\.\d{2})`}},
		},
	}
	require.NoError(t, tpl.compile())

	partial := Parse("GST 1.20\nGRAND TOTAL 1,234.50", tpl)

	assert.Equal(t, 1234.50, partial.TotalAmount)
	assert.Equal(t, 1.20, partial.TaxAmount)
}

func TestParseIndexedLineGroups(t *testing.T) {
	tpl := &VendorTemplate{
		VendorKey: "GRID",
		LineItems: &LineItemRule{
			LinePattern: `^(\d+) \| ([A-Za-z ]+) \| (\d+\.\d{2})$`,
			LineGroups:  map[string]int{"quantity": 1, "item_name": 2, "item_total": 3},
		},
	}
	require.NoError(t, tpl.compile())

	partial := Parse("2 | Widget | 5.00\n1 | Gadget | 2.50", tpl)

	require.Len(t, partial.Items, 2)
	assert.Equal(t, "Widget", partial.Items[0].ItemName)
	assert.Equal(t, 2.0, partial.Items[0].Quantity)
	assert.Equal(t, 5.00, partial.Items[0].ItemTotal)
}

func TestLineItemDefaults(t *testing.T) {
	tpl := &VendorTemplate{
		VendorKey: "DEFAULTS",
		LineItems: &LineItemRule{
			LinePattern: `^(?P<name>[A-Za-z ]+?)\s+(?P<price>\d+\.\d{2})$`,
		},
	}
	require.NoError(t, tpl.compile())

	partial := Parse("Coffee 4.00", tpl)

	require.Len(t, partial.Items, 1)
	// quantity defaults to one, item total to quantity times price
	assert.Equal(t, 1.0, partial.Items[0].Quantity)
	assert.Equal(t, 4.00, partial.Items[0].UnitPrice)
	assert.Equal(t, 4.00, partial.Items[0].ItemTotal)
}
