package extraction

import (
	"context"
	"log/slog"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

// Field names the bill fields a fallback stage may fill.
type Field string

const (
	FieldInvoiceNumber Field = "invoice_number"
	FieldVendorName    Field = "vendor_name"
	FieldPurchaseDate  Field = "purchase_date"
	FieldPurchaseTime  Field = "purchase_time"
	FieldCurrency      Field = "currency"
	FieldPaymentMethod Field = "payment_method"
	FieldTaxAmount     Field = "tax_amount"
	FieldSubtotal      Field = "subtotal"
	FieldTotalAmount   Field = "total_amount"
	FieldItems         Field = "items"
)

// AllFields lists every fallback-fillable field in canonical order.
var AllFields = []Field{
	FieldInvoiceNumber,
	FieldVendorName,
	FieldPurchaseDate,
	FieldPurchaseTime,
	FieldCurrency,
	FieldPaymentMethod,
	FieldTaxAmount,
	FieldSubtotal,
	FieldTotalAmount,
	FieldItems,
}

// FallbackStage recovers values for a declared subset of fields from raw
// text. Stages see the current bill so vendor-dependent stages can key off
// already-recovered values, but only the driver writes to it.
type FallbackStage interface {
	Name() string
	Fields() []Field
	Run(ctx context.Context, text string, current *entity.Bill) (*entity.Bill, error)
}

// FieldValue reads a named field off a bill.
func FieldValue(b *entity.Bill, f Field) any {
	switch f {
	case FieldInvoiceNumber:
		return b.InvoiceNumber
	case FieldVendorName:
		return b.VendorName
	case FieldPurchaseDate:
		return b.PurchaseDate
	case FieldPurchaseTime:
		return b.PurchaseTime
	case FieldCurrency:
		return b.Currency
	case FieldPaymentMethod:
		return b.PaymentMethod
	case FieldTaxAmount:
		return b.TaxAmount
	case FieldSubtotal:
		return b.Subtotal
	case FieldTotalAmount:
		return b.TotalAmount
	case FieldItems:
		return b.Items
	}
	return nil
}

func setFieldValue(b *entity.Bill, f Field, v any) {
	switch f {
	case FieldInvoiceNumber:
		b.InvoiceNumber, _ = v.(string)
	case FieldVendorName:
		b.VendorName, _ = v.(string)
	case FieldPurchaseDate:
		b.PurchaseDate, _ = v.(string)
	case FieldPurchaseTime:
		b.PurchaseTime, _ = v.(string)
	case FieldCurrency:
		b.Currency, _ = v.(string)
	case FieldPaymentMethod:
		b.PaymentMethod, _ = v.(string)
	case FieldTaxAmount:
		b.TaxAmount, _ = v.(float64)
	case FieldSubtotal:
		b.Subtotal, _ = v.(float64)
	case FieldTotalAmount:
		b.TotalAmount, _ = v.(float64)
	case FieldItems:
		b.Items, _ = v.([]entity.LineItem)
	}
}

// WeakFields returns the subset of fields currently weak on the bill.
func WeakFields(b *entity.Bill) []Field {
	var weak []Field
	for _, f := range AllFields {
		if IsWeak(FieldValue(b, f)) {
			weak = append(weak, f)
		}
	}
	return weak
}

// ApplyFallbacks runs each stage in order, merging stage output only into
// fields that are still weak. A confident upstream value is never
// overwritten, and a stage never fills fields outside its declared set. A
// failing stage is logged and skipped; fallback is best effort. Returns the
// fields that were filled.
func ApplyFallbacks(ctx context.Context, stages []FallbackStage, b *entity.Bill, text string, logger *slog.Logger) []Field {
	if logger == nil {
		logger = slog.Default()
	}
	var filled []Field
	if text == "" {
		return filled
	}
	for _, stage := range stages {
		pending := weakSubset(b, stage.Fields())
		if len(pending) == 0 {
			continue
		}
		partial, err := stage.Run(ctx, text, b)
		if err != nil {
			logger.Warn("fallback.stage_failed", "stage", stage.Name(), "error", err)
			continue
		}
		if partial == nil {
			continue
		}
		var applied []Field
		for _, f := range pending {
			v := FieldValue(partial, f)
			if IsWeak(v) {
				continue
			}
			setFieldValue(b, f, v)
			applied = append(applied, f)
		}
		if len(applied) > 0 {
			logger.Info("fallback.applied", "stage", stage.Name(), "fields", fieldNames(applied))
			filled = append(filled, applied...)
		}
	}
	return filled
}

func weakSubset(b *entity.Bill, fields []Field) []Field {
	var weak []Field
	for _, f := range fields {
		if IsWeak(FieldValue(b, f)) {
			weak = append(weak, f)
		}
	}
	return weak
}

func fieldNames(fields []Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}

// RegexStage recovers every patterned field from raw text.
type RegexStage struct{}

func (RegexStage) Name() string { return "regex" }

func (RegexStage) Fields() []Field {
	return []Field{
		FieldInvoiceNumber,
		FieldPurchaseDate,
		FieldPurchaseTime,
		FieldCurrency,
		FieldPaymentMethod,
		FieldTaxAmount,
		FieldSubtotal,
		FieldTotalAmount,
		FieldItems,
	}
}

func (RegexStage) Run(_ context.Context, text string, _ *entity.Bill) (*entity.Bill, error) {
	return ExtractFields(text), nil
}

// NERStage recovers the vendor name via named-entity recognition. Runs only
// when vendor_name is still weak after the regex stage.
type NERStage struct {
	Recognizer EntityRecognizer
	Logger     *slog.Logger
}

func (NERStage) Name() string { return "ner" }

func (NERStage) Fields() []Field { return []Field{FieldVendorName} }

func (s NERStage) Run(_ context.Context, text string, _ *entity.Bill) (*entity.Bill, error) {
	return &entity.Bill{VendorName: VendorFromEntities(s.Recognizer, text, s.Logger)}, nil
}
