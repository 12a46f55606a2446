// Package template implements the vendor template store: a collection of
// keyed, vendor-specific parsing rule sets loaded once at startup and used
// as a last-resort structured fallback when generic extraction leaves fields
// weak.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/abhay1maurya/receipt-digitizer/internal/extraction"
)

// FieldRule extracts one field: a prioritized pattern list whose first
// capture is the value, or label patterns for a labeled amount. Monetary
// fields try labels first, then parse a bare pattern capture as a float.
type FieldRule struct {
	Patterns      []string `json:"patterns,omitempty"`
	LabelPatterns []string `json:"label_patterns,omitempty"`

	compiled      []*regexp.Regexp
	labelCompiled []*regexp.Regexp
}

// LineItemRule parses line items from the text region between optional
// start/end marker lines, mapping capture groups by name or index.
type LineItemRule struct {
	LinePattern  string         `json:"line_pattern"`
	StartMarkers []string       `json:"start_markers,omitempty"`
	EndMarkers   []string       `json:"end_markers,omitempty"`
	LineGroups   map[string]int `json:"line_groups,omitempty"`

	lineCompiled  []*regexp.Regexp // single entry; slice keeps compile helper uniform
	startCompiled []*regexp.Regexp
	endCompiled   []*regexp.Regexp
}

// VendorTemplate is one vendor's rule set. Immutable after load.
type VendorTemplate struct {
	VendorKey    string               `json:"vendor_key"`
	Aliases      []string             `json:"aliases,omitempty"`
	StaticFields map[string]any       `json:"static_fields,omitempty"`
	Fields       map[string]FieldRule `json:"fields,omitempty"`
	LineItems    *LineItemRule        `json:"line_items,omitempty"`
}

// Library indexes vendor templates by normalized alias key. Loaded once per
// process; concurrent readers need no locking.
type Library struct {
	templates map[string]*VendorTemplate
	aliases   map[string]string
	logger    *slog.Logger
}

// templateSchema is the structural contract every template document must
// meet before it is indexed.
const templateSchema = `{
	"type": "object",
	"required": ["vendor_key"],
	"properties": {
		"vendor_key": {"type": "string", "minLength": 1},
		"aliases": {"type": "array", "items": {"type": "string"}},
		"static_fields": {"type": "object"},
		"fields": {
			"type": "object",
			"additionalProperties": {
				"type": "object",
				"properties": {
					"patterns": {"type": "array", "items": {"type": "string"}},
					"label_patterns": {"type": "array", "items": {"type": "string"}}
				}
			}
		},
		"line_items": {
			"type": "object",
			"required": ["line_pattern"],
			"properties": {
				"line_pattern": {"type": "string", "minLength": 1},
				"start_markers": {"type": "array", "items": {"type": "string"}},
				"end_markers": {"type": "array", "items": {"type": "string"}},
				"line_groups": {"type": "object", "additionalProperties": {"type": "integer"}}
			}
		}
	}
}`

var nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]+`)

// NormalizeVendorKey normalizes vendor labels into a lookup key: strip
// non-alphanumerics, uppercase. "WAL-MART" and "Walmart" resolve the same.
func NormalizeVendorKey(value string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToUpper(value), "")
}

// LoadLibrary reads every *.json template document from dir, validates it
// structurally, compiles its patterns, and builds the alias index. Invalid
// documents are logged and skipped; a missing directory yields an empty
// library.
func LoadLibrary(dir string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lib := &Library{
		templates: make(map[string]*VendorTemplate),
		aliases:   make(map[string]string),
		logger:    logger,
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Warn("template.dir_missing", "dir", dir)
			return lib, nil
		}
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("template.json", bytes.NewReader([]byte(templateSchema))); err != nil {
		return nil, fmt.Errorf("add template schema: %w", err)
	}
	schema, err := compiler.Compile("template.json")
	if err != nil {
		return nil, fmt.Errorf("compile template schema: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("template.read_failed", "path", path, "error", err)
			continue
		}

		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			logger.Warn("template.invalid_json", "path", path, "error", err)
			continue
		}
		if err := schema.Validate(doc); err != nil {
			logger.Warn("template.schema_rejected", "path", path, "error", err)
			continue
		}

		var tpl VendorTemplate
		if err := json.Unmarshal(raw, &tpl); err != nil {
			logger.Warn("template.decode_failed", "path", path, "error", err)
			continue
		}
		if err := tpl.compile(); err != nil {
			logger.Warn("template.pattern_rejected", "path", path, "error", err)
			continue
		}

		lib.add(&tpl)
	}

	logger.Info("template.library_loaded", "dir", dir, "templates", len(lib.templates), "aliases", len(lib.aliases))
	return lib, nil
}

func (l *Library) add(tpl *VendorTemplate) {
	l.templates[tpl.VendorKey] = tpl
	for _, alias := range append([]string{tpl.VendorKey}, tpl.Aliases...) {
		if key := NormalizeVendorKey(alias); key != "" {
			l.aliases[key] = tpl.VendorKey
		}
	}
}

// Match finds the template for a vendor name via the normalized alias
// index. Returns nil when the vendor is unknown.
func (l *Library) Match(vendorName string) *VendorTemplate {
	if l == nil || vendorName == "" {
		return nil
	}
	key := NormalizeVendorKey(vendorName)
	if key == "" {
		return nil
	}
	vendorKey, ok := l.aliases[key]
	if !ok {
		return nil
	}
	return l.templates[vendorKey]
}

// Len reports the number of loaded templates.
func (l *Library) Len() int {
	if l == nil {
		return 0
	}
	return len(l.templates)
}

func (t *VendorTemplate) compile() error {
	for name, rule := range t.Fields {
		var err error
		if rule.compiled, err = compileAll(rule.Patterns); err != nil {
			return fmt.Errorf("field %s: %w", name, err)
		}
		rule.labelCompiled = make([]*regexp.Regexp, 0, len(rule.LabelPatterns))
		for _, label := range rule.LabelPatterns {
			re, err := extraction.CompileAmountLabel(label)
			if err != nil {
				return fmt.Errorf("field %s: %w", name, err)
			}
			rule.labelCompiled = append(rule.labelCompiled, re)
		}
		t.Fields[name] = rule
	}
	if t.LineItems != nil {
		re, err := regexp.Compile(`(?i)` + t.LineItems.LinePattern)
		if err != nil {
			return fmt.Errorf("line_pattern: %w", err)
		}
		t.LineItems.lineCompiled = []*regexp.Regexp{re}
		if t.LineItems.startCompiled, err = compileAll(t.LineItems.StartMarkers); err != nil {
			return fmt.Errorf("start_markers: %w", err)
		}
		if t.LineItems.endCompiled, err = compileAll(t.LineItems.EndMarkers); err != nil {
			return fmt.Errorf("end_markers: %w", err)
		}
	}
	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`(?i)` + p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
