package entity

import (
	"time"

	"github.com/google/uuid"
)

// Schema limits enforced by the normalizer before persistence.
const (
	MaxInvoiceNumberLen = 100
	MaxVendorNameLen    = 255
	MaxCurrencyLen      = 10
	MaxPaymentMethodLen = 50
)

// Bill is the canonical digitized record produced by the extraction pipeline.
// Monetary fields are always populated (0.0 when nothing was recovered) and
// Items is never nil after normalization.
type Bill struct {
	InvoiceNumber string `json:"invoice_number"`
	VendorName    string `json:"vendor_name"`
	PurchaseDate  string `json:"purchase_date"` // YYYY-MM-DD, "" when unknown
	PurchaseTime  string `json:"purchase_time"` // HH:MM:SS, "" when unknown
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`

	Subtotal    float64 `json:"subtotal"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`

	// Pre-conversion values, set by the currency converter. Nil/empty until a
	// conversion has been applied; a converted bill is always traceable back
	// to its original amount and rate.
	OriginalCurrency    string   `json:"original_currency,omitempty"`
	OriginalTotalAmount *float64 `json:"original_total_amount,omitempty"`
	ExchangeRate        *float64 `json:"exchange_rate,omitempty"`

	// ConversionWarning is attached when the currency code is not in the rate
	// table. The bill is returned unconverted in that case.
	ConversionWarning string `json:"conversion_warning,omitempty"`

	Items []LineItem `json:"items"`
}

// LineItem is one itemized row on a bill. SNo is assigned by extraction
// order, not inherent to the item.
type LineItem struct {
	SNo       int     `json:"s_no"`
	ItemName  string  `json:"item_name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	ItemTotal float64 `json:"item_total"`
}

// StoredBill is a persisted bill header for data transfer between layers.
type StoredBill struct {
	ID        uuid.UUID `json:"id"`
	ProfileID uuid.UUID `json:"profile_id"`
	Bill
	CreatedAt time.Time `json:"created_at"`
}
