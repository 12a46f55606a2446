package template

import (
	"context"
	"log/slog"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
	"github.com/abhay1maurya/receipt-digitizer/internal/extraction"
)

// Stage recovers fields using the vendor template matched against the
// bill's current vendor name. No matching template is a no-op, not an
// error.
type Stage struct {
	Library *Library
	Logger  *slog.Logger
}

func (Stage) Name() string { return "template" }

func (Stage) Fields() []extraction.Field { return extraction.AllFields }

func (s Stage) Run(_ context.Context, text string, current *entity.Bill) (*entity.Bill, error) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tpl := s.Library.Match(current.VendorName)
	if tpl == nil {
		logger.Debug("template.no_match", "vendor", current.VendorName)
		return nil, nil
	}
	logger.Info("template.matched", "vendor_key", tpl.VendorKey)
	return Parse(text, tpl), nil
}
