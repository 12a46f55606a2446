package extraction

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/jdkato/prose/v2"
)

// EntityRecognizer yields organization-like entity spans from raw text.
// Implementations must be safe for concurrent use.
type EntityRecognizer interface {
	Organizations(text string) ([]string, error)
}

// ProseRecognizer runs the prose NER model over text. Small NER models tag
// storefront headers as ORG or GPE interchangeably, so both labels are
// accepted as organization candidates.
type ProseRecognizer struct{}

func NewProseRecognizer() *ProseRecognizer {
	return &ProseRecognizer{}
}

func (r *ProseRecognizer) Organizations(text string) ([]string, error) {
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return nil, err
	}
	var orgs []string
	for _, ent := range doc.Entities() {
		if ent.Label == "ORG" || ent.Label == "GPE" {
			orgs = append(orgs, ent.Text)
		}
	}
	return orgs, nil
}

// VendorFromEntities recovers a vendor name from raw text via named-entity
// recognition. Candidates shorter than 3 characters are dropped and the
// shortest survivor wins: longer organization spans on receipts tend to
// include street addresses or boilerplate, not the vendor name. Returns ""
// when nothing qualifies or the recognizer fails; recognizer unavailability
// is a missed fallback, never fatal.
func VendorFromEntities(rec EntityRecognizer, text string, logger *slog.Logger) string {
	if logger == nil {
		logger = slog.Default()
	}
	if len(strings.TrimSpace(text)) < 10 {
		return ""
	}
	orgs, err := rec.Organizations(text)
	if err != nil {
		logger.Debug("ner.vendor.skipped", "error", err)
		return ""
	}
	candidates := orgs[:0]
	for _, org := range orgs {
		org = strings.TrimSpace(org)
		if len(org) > 2 {
			candidates = append(candidates, org)
		}
	}
	if len(candidates) == 0 {
		logger.Debug("ner.vendor.no_candidates")
		return ""
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return len(candidates[i]) < len(candidates[j])
	})
	logger.Debug("ner.vendor.recovered", "vendor", candidates[0], "candidates", len(candidates))
	return candidates[0]
}
