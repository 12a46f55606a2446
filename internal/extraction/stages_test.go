package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

type stubStage struct {
	name    string
	fields  []Field
	partial *entity.Bill
	err     error
	runs    int
}

func (s *stubStage) Name() string    { return s.name }
func (s *stubStage) Fields() []Field { return s.fields }

func (s *stubStage) Run(_ context.Context, _ string, _ *entity.Bill) (*entity.Bill, error) {
	s.runs++
	return s.partial, s.err
}

func TestApplyFallbacksFillsOnlyWeakFields(t *testing.T) {
	b := &entity.Bill{VendorName: "ACME", TotalAmount: 0}
	stage := &stubStage{
		name:    "stub",
		fields:  []Field{FieldVendorName, FieldTotalAmount},
		partial: &entity.Bill{VendorName: "OVERRIDE", TotalAmount: 99},
	}

	filled := ApplyFallbacks(context.Background(), []FallbackStage{stage}, b, "some text", nil)

	// confident vendor survives; weak total is filled
	assert.Equal(t, "ACME", b.VendorName)
	assert.Equal(t, 99.0, b.TotalAmount)
	assert.Equal(t, []Field{FieldTotalAmount}, filled)
}

func TestApplyFallbacksSkipsStageWithNothingPending(t *testing.T) {
	b := &entity.Bill{VendorName: "ACME"}
	stage := &stubStage{
		name:    "vendor-only",
		fields:  []Field{FieldVendorName},
		partial: &entity.Bill{VendorName: "OTHER"},
	}

	ApplyFallbacks(context.Background(), []FallbackStage{stage}, b, "some text", nil)

	assert.Zero(t, stage.runs)
	assert.Equal(t, "ACME", b.VendorName)
}

func TestApplyFallbacksWeakPartialValuesIgnored(t *testing.T) {
	b := &entity.Bill{}
	stage := &stubStage{
		name:    "empty-handed",
		fields:  AllFields,
		partial: &entity.Bill{},
	}

	filled := ApplyFallbacks(context.Background(), []FallbackStage{stage}, b, "some text", nil)

	assert.Empty(t, filled)
	assert.Equal(t, entity.Bill{}, *b)
}

func TestApplyFallbacksStageOrder(t *testing.T) {
	b := &entity.Bill{}
	first := &stubStage{
		name:    "first",
		fields:  []Field{FieldCurrency},
		partial: &entity.Bill{Currency: "INR"},
	}
	second := &stubStage{
		name:    "second",
		fields:  []Field{FieldCurrency},
		partial: &entity.Bill{Currency: "EUR"},
	}

	ApplyFallbacks(context.Background(), []FallbackStage{first, second}, b, "some text", nil)

	// earlier stages win; the later stage sees the field already filled
	assert.Equal(t, "INR", b.Currency)
	assert.Zero(t, second.runs)
}

func TestApplyFallbacksFailingStageIsSkipped(t *testing.T) {
	b := &entity.Bill{}
	broken := &stubStage{
		name:   "broken",
		fields: []Field{FieldVendorName},
		err:    errors.New("model unavailable"),
	}
	working := &stubStage{
		name:    "working",
		fields:  []Field{FieldVendorName},
		partial: &entity.Bill{VendorName: "TESCO"},
	}

	filled := ApplyFallbacks(context.Background(), []FallbackStage{broken, working}, b, "some text", nil)

	assert.Equal(t, "TESCO", b.VendorName)
	assert.Equal(t, []Field{FieldVendorName}, filled)
}

func TestApplyFallbacksNoTextNoWork(t *testing.T) {
	b := &entity.Bill{}
	stage := &stubStage{name: "stub", fields: AllFields, partial: &entity.Bill{VendorName: "X"}}

	filled := ApplyFallbacks(context.Background(), []FallbackStage{stage}, b, "", nil)

	assert.Empty(t, filled)
	assert.Zero(t, stage.runs)
}

func TestRegexStageRecoversFromText(t *testing.T) {
	b := &entity.Bill{}
	filled := ApplyFallbacks(context.Background(), []FallbackStage{RegexStage{}}, b, sampleReceipt, nil)

	assert.NotEmpty(t, filled)
	assert.Equal(t, "AC-2024-0042", b.InvoiceNumber)
	assert.Equal(t, 10.00, b.TotalAmount)
	assert.Len(t, b.Items, 2)
}
