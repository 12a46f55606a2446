package validation

import (
	"fmt"
	"math"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
	"github.com/abhay1maurya/receipt-digitizer/internal/extraction"
)

// DefaultTolerance absorbs rounding drift between summed line items and the
// printed total.
const DefaultTolerance = 0.02

const KindAmountMismatch = "AMOUNT_MISMATCH"

// AmountError records one failed consistency check with the numbers that
// drove the decision.
type AmountError struct {
	Kind           string  `json:"kind"`
	Message        string  `json:"message"`
	ItemsSum       float64 `json:"items_sum"`
	TaxAmount      float64 `json:"tax_amount"`
	ExtractedTotal float64 `json:"extracted_total"`
}

func (e AmountError) Error() string { return e.Message }

// Result is the outcome of amount validation.
type Result struct {
	IsValid     bool          `json:"is_valid"`
	ItemsSum    float64       `json:"items_sum"`
	TaxAmount   float64       `json:"tax_amount"`
	TotalAmount float64       `json:"total_amount"`
	Errors      []AmountError `json:"errors,omitempty"`
}

// ValidateAmounts checks the summed line items against the extracted total
// under both tax conventions: item totals already tax-inclusive, or tax added
// on top. Either matching within tolerance passes. A bill with no line items
// sums to zero, so a nonzero extracted total fails both models.
func ValidateAmounts(bill *entity.Bill, tolerance float64) Result {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	itemsSum := 0.0
	for _, item := range bill.Items {
		itemsSum += item.ItemTotal
	}
	itemsSum = extraction.Round2(itemsSum)

	res := Result{
		IsValid:     true,
		ItemsSum:    itemsSum,
		TaxAmount:   bill.TaxAmount,
		TotalAmount: bill.TotalAmount,
	}

	inclusive := math.Abs(itemsSum-bill.TotalAmount) <= tolerance
	exclusive := math.Abs(itemsSum+bill.TaxAmount-bill.TotalAmount) <= tolerance
	if inclusive || exclusive {
		return res
	}

	res.IsValid = false
	res.Errors = append(res.Errors, AmountError{
		Kind: KindAmountMismatch,
		Message: fmt.Sprintf("line items sum to %.2f (%.2f with tax) but extracted total is %.2f",
			itemsSum, extraction.Round2(itemsSum+bill.TaxAmount), bill.TotalAmount),
		ItemsSum:       itemsSum,
		TaxAmount:      bill.TaxAmount,
		ExtractedTotal: bill.TotalAmount,
	})
	return res
}
