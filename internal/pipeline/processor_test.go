package pipeline

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
	"github.com/abhay1maurya/receipt-digitizer/internal/repository"
	"github.com/abhay1maurya/receipt-digitizer/internal/template"
	"github.com/abhay1maurya/receipt-digitizer/internal/validation"
	"github.com/abhay1maurya/receipt-digitizer/internal/vision"
)

type fakeExtractor struct {
	response []byte
	err      error
}

func (f fakeExtractor) ExtractBill(context.Context, []byte, string) ([]byte, error) {
	return f.response, f.err
}

type fakeRecognizer struct {
	orgs []string
}

func (f fakeRecognizer) Organizations(string) ([]string, error) { return f.orgs, nil }

type fakeBillRepo struct {
	matches []*entity.StoredBill
}

func (f *fakeBillRepo) Insert(_ context.Context, profileID uuid.UUID, bill *entity.Bill) (*entity.StoredBill, error) {
	return &entity.StoredBill{ID: uuid.New(), ProfileID: profileID, Bill: *bill}, nil
}

func (f *fakeBillRepo) FindSimilar(context.Context, repository.SimilarQuery) ([]*entity.StoredBill, error) {
	return f.matches, nil
}

func (f *fakeBillRepo) ListBills(context.Context, uuid.UUID) ([]*entity.StoredBill, error) {
	return nil, nil
}

func newTestProcessor(t *testing.T, extractor vision.BillExtractor, recognizer fakeRecognizer, repo *fakeBillRepo) *Processor {
	t.Helper()
	lib, err := template.LoadLibrary(t.TempDir(), nil)
	require.NoError(t, err)
	detector := validation.NewDetector(repo, validation.DefaultTolerance, nil)
	return NewProcessor(nil, extractor, recognizer, lib, detector, "", validation.DefaultTolerance)
}

func TestProcessCleanExtraction(t *testing.T) {
	response := []byte(`{
		"ocr_text": "ACME\n2024-03-15\nTOTAL: 10.00",
		"invoice_number": "INV-9",
		"vendor_name": "ACME",
		"purchase_date": "2024-03-15",
		"currency": "USD",
		"tax_amount": 0.75,
		"total_amount": 10.00,
		"items": [
			{"s_no": 1, "item_name": "Milk", "quantity": 2, "unit_price": 3.5, "item_total": 7.0},
			{"s_no": 2, "item_name": "Bread", "quantity": 1, "unit_price": 2.25, "item_total": 2.25}
		]
	}`)
	p := newTestProcessor(t, fakeExtractor{response: response}, fakeRecognizer{}, &fakeBillRepo{})

	res, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.NoError(t, err)
	assert.False(t, res.ParseSalvaged)
	assert.True(t, res.Validation.IsValid)
	assert.False(t, res.Duplicate.Duplicate)
	assert.True(t, res.CanSave)
	assert.Equal(t, "ACME", res.Bill.VendorName)
	assert.Equal(t, "INV-9", res.Bill.InvoiceNumber)
	// converted in place even for the base currency
	assert.Equal(t, "USD", res.Bill.Currency)
	assert.Equal(t, 10.0, res.Bill.TotalAmount)
}

func TestProcessWeakFieldsRecoveredFromText(t *testing.T) {
	// structured answer is mostly empty; the OCR text carries everything
	response := []byte(`{
		"ocr_text": "ACME STORES LTD\nInvoice# AC-42\nDate: 15/03/2024\n1 Widget 2 5.00\nTAX: 0.75\nTOTAL: $10.00\nPaid CASH",
		"vendor_name": "",
		"total_amount": 0
	}`)
	p := newTestProcessor(t, fakeExtractor{response: response},
		fakeRecognizer{orgs: []string{"ACME STORES LTD", "ACME"}}, &fakeBillRepo{})

	res, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.NoError(t, err)
	assert.Contains(t, res.FilledFields, "invoice_number")
	assert.Contains(t, res.FilledFields, "vendor_name")
	assert.Equal(t, "AC-42", res.Bill.InvoiceNumber)
	assert.Equal(t, "ACME", res.Bill.VendorName)
	assert.Equal(t, "2024-03-15", res.Bill.PurchaseDate)
	assert.Equal(t, "CASH", res.Bill.PaymentMethod)
	assert.Equal(t, 10.0, res.Bill.TotalAmount)
	require.Len(t, res.Bill.Items, 1)
	assert.Equal(t, "WIDGET", res.Bill.Items[0].ItemName)
	assert.True(t, res.CanSave)
}

func TestProcessSalvagedResponseRunsFallbacks(t *testing.T) {
	// malformed JSON; only the OCR text is recoverable
	response := []byte(`{"ocr_text": "Invoice# AC-42\nTOTAL: 10.00\n1 Milk 2 5.00", "vendor_name": "ACM`)
	p := newTestProcessor(t, fakeExtractor{response: response}, fakeRecognizer{}, &fakeBillRepo{})

	res, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.NoError(t, err)
	assert.True(t, res.ParseSalvaged)
	assert.Equal(t, "AC-42", res.Bill.InvoiceNumber)
	assert.Equal(t, 10.0, res.Bill.TotalAmount)
	require.Len(t, res.Bill.Items, 1)
	assert.Equal(t, "MILK", res.Bill.Items[0].ItemName)
	// no recognizer hit, so the vendor falls back to the normalizer default
	assert.Equal(t, "UNKNOWN", res.Bill.VendorName)
}

func TestProcessUnrecoverableResponseIsTerminal(t *testing.T) {
	p := newTestProcessor(t, fakeExtractor{response: []byte("sorry, unreadable")}, fakeRecognizer{}, &fakeBillRepo{})

	_, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, vision.ErrNoExtractableText)
}

func TestProcessServiceFailureIsTerminal(t *testing.T) {
	p := newTestProcessor(t, fakeExtractor{err: vision.ErrServiceFailure}, fakeRecognizer{}, &fakeBillRepo{})

	_, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)
	assert.ErrorIs(t, err, vision.ErrServiceFailure)
}

func TestProcessCurrencyConversionWarning(t *testing.T) {
	response := []byte(`{
		"ocr_text": "x",
		"vendor_name": "ACME",
		"currency": "XYZ",
		"total_amount": 100,
		"items": [{"s_no": 1, "item_name": "Widget", "quantity": 1, "unit_price": 100, "item_total": 100}]
	}`)
	p := newTestProcessor(t, fakeExtractor{response: response}, fakeRecognizer{}, &fakeBillRepo{})

	res, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.NoError(t, err)
	assert.Equal(t, "XYZ", res.Bill.Currency)
	assert.Equal(t, 100.0, res.Bill.TotalAmount)
	assert.NotEmpty(t, res.Bill.ConversionWarning)
	assert.Contains(t, res.Warnings, res.Bill.ConversionWarning)
	// a conversion warning alone does not block saving
	assert.True(t, res.CanSave)
}

func TestProcessUsesConfiguredBaseCurrency(t *testing.T) {
	response := []byte(`{
		"ocr_text": "x",
		"vendor_name": "ACME",
		"currency": "INR",
		"total_amount": 1000,
		"items": [{"s_no": 1, "item_name": "Rice", "quantity": 1, "unit_price": 1000, "item_total": 1000}]
	}`)
	lib, err := template.LoadLibrary(t.TempDir(), nil)
	require.NoError(t, err)
	detector := validation.NewDetector(&fakeBillRepo{}, validation.DefaultTolerance, nil)
	p := NewProcessor(nil, fakeExtractor{response: response}, fakeRecognizer{}, lib, detector,
		"EUR", validation.DefaultTolerance)

	res, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.NoError(t, err)
	assert.Equal(t, "EUR", res.Bill.Currency)
	assert.InDelta(t, 11.11, res.Bill.TotalAmount, 1e-9)
	assert.Equal(t, "INR", res.Bill.OriginalCurrency)
	assert.True(t, res.CanSave)
}

func TestProcessAmountMismatchBlocksSave(t *testing.T) {
	response := []byte(`{
		"ocr_text": "x",
		"vendor_name": "ACME",
		"total_amount": 120,
		"tax_amount": 20,
		"items": [{"s_no": 1, "item_name": "Widget", "quantity": 1, "unit_price": 90, "item_total": 90}]
	}`)
	p := newTestProcessor(t, fakeExtractor{response: response}, fakeRecognizer{}, &fakeBillRepo{})

	res, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.NoError(t, err)
	assert.False(t, res.Validation.IsValid)
	require.NotEmpty(t, res.Validation.Errors)
	assert.Equal(t, validation.KindAmountMismatch, res.Validation.Errors[0].Kind)
	assert.False(t, res.CanSave)
}

func TestProcessHardDuplicateBlocksSave(t *testing.T) {
	response := []byte(`{
		"ocr_text": "x",
		"invoice_number": "INV-1",
		"vendor_name": "ACME",
		"purchase_date": "2024-03-15",
		"total_amount": 120,
		"items": [{"s_no": 1, "item_name": "Widget", "quantity": 1, "unit_price": 120, "item_total": 120}]
	}`)
	repo := &fakeBillRepo{matches: []*entity.StoredBill{{}}}
	p := newTestProcessor(t, fakeExtractor{response: response}, fakeRecognizer{}, repo)

	res, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.NoError(t, err)
	assert.True(t, res.Duplicate.Duplicate)
	assert.False(t, res.CanSave)
}

func TestProcessSoftDuplicateWarnsButSaves(t *testing.T) {
	response := []byte(`{
		"ocr_text": "x",
		"vendor_name": "ACME",
		"purchase_date": "2024-03-15",
		"total_amount": 120,
		"items": [{"s_no": 1, "item_name": "Widget", "quantity": 1, "unit_price": 120, "item_total": 120}]
	}`)
	repo := &fakeBillRepo{matches: []*entity.StoredBill{{}}}
	p := newTestProcessor(t, fakeExtractor{response: response}, fakeRecognizer{}, repo)

	res, err := p.Process(context.Background(), []byte("img"), "image/png", uuid.Nil)

	require.NoError(t, err)
	assert.False(t, res.Duplicate.Duplicate)
	assert.True(t, res.Duplicate.SoftDuplicate)
	assert.True(t, res.CanSave)
	assert.NotEmpty(t, res.Warnings)
}
