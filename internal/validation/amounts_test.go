package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

func billWithItems(tax, total float64, itemTotals ...float64) *entity.Bill {
	b := &entity.Bill{TaxAmount: tax, TotalAmount: total}
	for i, it := range itemTotals {
		b.Items = append(b.Items, entity.LineItem{SNo: i + 1, ItemTotal: it})
	}
	return b
}

func TestValidateAmountsTaxExclusive(t *testing.T) {
	// items 100, tax 20, printed total 120
	res := ValidateAmounts(billWithItems(20, 120, 60, 40), DefaultTolerance)

	assert.True(t, res.IsValid)
	assert.Equal(t, 100.0, res.ItemsSum)
	assert.Empty(t, res.Errors)
}

func TestValidateAmountsTaxInclusive(t *testing.T) {
	// item totals already include tax
	res := ValidateAmounts(billWithItems(20, 120, 70, 50), DefaultTolerance)
	assert.True(t, res.IsValid)
}

func TestValidateAmountsMismatch(t *testing.T) {
	// items 90 match neither 120 nor 110
	res := ValidateAmounts(billWithItems(20, 120, 50, 40), DefaultTolerance)

	assert.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindAmountMismatch, res.Errors[0].Kind)
	assert.Equal(t, 90.0, res.Errors[0].ItemsSum)
	assert.Equal(t, 20.0, res.Errors[0].TaxAmount)
	assert.Equal(t, 120.0, res.Errors[0].ExtractedTotal)
	assert.NotEmpty(t, res.Errors[0].Error())
}

func TestValidateAmountsWithinTolerance(t *testing.T) {
	// one cent of rounding drift passes
	res := ValidateAmounts(billWithItems(0, 10.00, 3.33, 3.33, 3.33), DefaultTolerance)
	assert.True(t, res.IsValid)
}

func TestValidateAmountsJustOutsideTolerance(t *testing.T) {
	res := ValidateAmounts(billWithItems(0, 10.00, 3.33, 3.33, 3.31), DefaultTolerance)
	assert.False(t, res.IsValid)
}

func TestValidateAmountsNoItemsNonzeroTotalFails(t *testing.T) {
	res := ValidateAmounts(&entity.Bill{TotalAmount: 55}, DefaultTolerance)

	assert.False(t, res.IsValid)
	assert.Zero(t, res.ItemsSum)
	assert.Equal(t, 55.0, res.TotalAmount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, KindAmountMismatch, res.Errors[0].Kind)
}

func TestValidateAmountsNoItemsZeroTotalPasses(t *testing.T) {
	res := ValidateAmounts(&entity.Bill{}, DefaultTolerance)

	assert.True(t, res.IsValid)
	assert.Zero(t, res.ItemsSum)
	assert.Empty(t, res.Errors)
}

func TestValidateAmountsZeroToleranceUsesDefault(t *testing.T) {
	res := ValidateAmounts(billWithItems(0, 10.00, 9.99), 0)
	assert.True(t, res.IsValid)
}
