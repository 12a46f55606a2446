package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/abhay1maurya/receipt-digitizer/constants"
	"github.com/abhay1maurya/receipt-digitizer/internal/common"
	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
	"github.com/abhay1maurya/receipt-digitizer/internal/extraction"
	"github.com/abhay1maurya/receipt-digitizer/internal/template"
	"github.com/abhay1maurya/receipt-digitizer/internal/validation"
	"github.com/abhay1maurya/receipt-digitizer/internal/vision"
)

// Result is everything one record's run produced. CanSave reflects the final
// gate: amounts consistent and no hard duplicate.
type Result struct {
	Bill          *entity.Bill       `json:"bill"`
	RawText       string             `json:"-"`
	FilledFields  []string           `json:"filled_fields,omitempty"`
	ParseSalvaged bool               `json:"parse_salvaged,omitempty"`
	Validation    validation.Result  `json:"validation"`
	Duplicate     validation.Verdict `json:"duplicate"`
	Warnings      []string           `json:"warnings,omitempty"`
	CanSave       bool               `json:"can_save"`
}

// Processor coordinates extraction, fallbacks, normalization, conversion,
// and validation for one record at a time.
type Processor struct {
	logger       *slog.Logger
	extractor    vision.BillExtractor
	recognizer   extraction.EntityRecognizer
	templates    *template.Library
	detector     *validation.Detector
	baseCurrency string
	tolerance    float64
}

func NewProcessor(
	logger *slog.Logger,
	extractor vision.BillExtractor,
	recognizer extraction.EntityRecognizer,
	templates *template.Library,
	detector *validation.Detector,
	baseCurrency string,
	tolerance float64,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if baseCurrency == "" {
		baseCurrency = constants.BaseCurrency
	}
	if tolerance <= 0 {
		tolerance = validation.DefaultTolerance
	}
	return &Processor{
		logger:       logger,
		extractor:    extractor,
		recognizer:   recognizer,
		templates:    templates,
		detector:     detector,
		baseCurrency: baseCurrency,
		tolerance:    tolerance,
	}
}

// Process runs one image through the full pipeline. Errors are terminal for
// the record only: a service failure or an unrecoverable response. Weak
// fields, validation failures, and duplicates are reported in the Result,
// not as errors.
func (p *Processor) Process(ctx context.Context, image []byte, mimeType string, profileID uuid.UUID) (*Result, error) {
	start := time.Now()

	raw, err := p.extractor.ExtractBill(ctx, image, mimeType)
	if err != nil {
		return nil, common.NewAppError("EXTRACTION_FAILED", "extraction service request failed", err)
	}

	rawBill, salvaged, err := vision.DecodeBill(raw, p.logger)
	if err != nil {
		return nil, common.NewAppError("PARSE_FAILED", "model response could not be decoded", err)
	}

	bill := rawBill.ToBill()
	res := &Result{
		Bill:          bill,
		RawText:       rawBill.OCRText,
		ParseSalvaged: salvaged,
	}

	// 1) fallbacks fill whatever the model left weak, in confidence order
	stages := []extraction.FallbackStage{
		extraction.RegexStage{},
		extraction.NERStage{Recognizer: p.recognizer, Logger: p.logger},
		template.Stage{Library: p.templates, Logger: p.logger},
	}
	filled := extraction.ApplyFallbacks(ctx, stages, bill, rawBill.OCRText, p.logger)
	for _, f := range filled {
		res.FilledFields = append(res.FilledFields, string(f))
	}

	// 2) normalize and convert
	*bill = extraction.NormalizeBill(*bill)
	*bill = extraction.ConvertToBase(*bill, p.baseCurrency)
	if bill.ConversionWarning != "" {
		res.Warnings = append(res.Warnings, bill.ConversionWarning)
	}

	// 3) validate amounts
	res.Validation = validation.ValidateAmounts(bill, p.tolerance)

	// 4) duplicate check
	if p.detector != nil {
		verdict, err := p.detector.Detect(ctx, bill, profileID)
		if err != nil {
			return nil, common.NewAppError("DUPLICATE_CHECK_FAILED", "duplicate lookup failed", err)
		}
		res.Duplicate = verdict
		if verdict.SoftDuplicate {
			res.Warnings = append(res.Warnings, verdict.Reason)
		}
	}

	res.CanSave = res.Validation.IsValid && !res.Duplicate.Duplicate

	p.logger.Info("pipeline.process.done",
		"vendor", bill.VendorName,
		"total", bill.TotalAmount,
		"filled_fields", res.FilledFields,
		"salvaged", salvaged,
		"valid", res.Validation.IsValid,
		"duplicate", res.Duplicate.Duplicate,
		"can_save", res.CanSave,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
