package vision

import (
	"context"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

// RawItem is one line item as returned by the model, before normalization.
type RawItem struct {
	SNo       int     `json:"s_no"`
	ItemName  string  `json:"item_name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	ItemTotal float64 `json:"item_total"`
}

// RawBill is the model's answer: the structured fields plus the raw OCR text
// that drives every downstream fallback.
type RawBill struct {
	OCRText       string    `json:"ocr_text"`
	InvoiceNumber string    `json:"invoice_number"`
	VendorName    string    `json:"vendor_name"`
	PurchaseDate  string    `json:"purchase_date"`
	PurchaseTime  string    `json:"purchase_time"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	Subtotal      float64   `json:"subtotal"`
	TaxAmount     float64   `json:"tax_amount"`
	TotalAmount   float64   `json:"total_amount"`
	Items         []RawItem `json:"items"`
}

// ToBill converts the raw answer into the pipeline's bill shape.
func (r *RawBill) ToBill() *entity.Bill {
	b := &entity.Bill{
		InvoiceNumber: r.InvoiceNumber,
		VendorName:    r.VendorName,
		PurchaseDate:  r.PurchaseDate,
		PurchaseTime:  r.PurchaseTime,
		Currency:      r.Currency,
		PaymentMethod: r.PaymentMethod,
		Subtotal:      r.Subtotal,
		TaxAmount:     r.TaxAmount,
		TotalAmount:   r.TotalAmount,
		Items:         make([]entity.LineItem, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		b.Items = append(b.Items, entity.LineItem{
			SNo:       it.SNo,
			ItemName:  it.ItemName,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			ItemTotal: it.ItemTotal,
		})
	}
	return b
}

// BillExtractor is the interface the pipeline depends on.
type BillExtractor interface {
	ExtractBill(ctx context.Context, image []byte, mimeType string) ([]byte, error)
}
