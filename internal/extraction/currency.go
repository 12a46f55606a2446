package extraction

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/abhay1maurya/receipt-digitizer/constants"
	"github.com/abhay1maurya/receipt-digitizer/internal/entity"
)

// ConvertToUSD rescales the bill to the default base currency. See
// ConvertToBase.
func ConvertToUSD(b entity.Bill) entity.Bill {
	return ConvertToBase(b, constants.BaseCurrency)
}

// ConvertToBase rescales every monetary field on the bill to the given base
// currency using the static rate table, preserving the original currency,
// total and rate so a converted bill stays traceable to its pre-conversion
// amount. The rate table is quoted against USD, so a non-USD base converts
// through the cross rate. An unrecognized currency (or base) attaches a
// conversion warning and returns the bill unconverted; it never blocks the
// pipeline.
func ConvertToBase(b entity.Bill, base string) entity.Bill {
	base = strings.ToUpper(strings.TrimSpace(base))
	if base == "" {
		base = constants.BaseCurrency
	}
	baseRate, ok := constants.CurrencyRatesToUSD[base]
	if !ok {
		b.ConversionWarning = fmt.Sprintf("unsupported base currency: %s", base)
		return b
	}

	currency := strings.ToUpper(strings.TrimSpace(b.Currency))
	if currency == "" {
		currency = base
	}

	usdRate, ok := constants.CurrencyRatesToUSD[currency]
	if !ok {
		b.ConversionWarning = fmt.Sprintf("unsupported currency: %s", currency)
		return b
	}

	rateDec := decimal.NewFromFloat(usdRate).Div(decimal.NewFromFloat(baseRate))
	rate, _ := rateDec.Float64()
	mul := func(v float64) float64 {
		f, _ := decimal.NewFromFloat(v).Mul(rateDec).Round(2).Float64()
		return f
	}

	originalTotal := b.TotalAmount
	b.OriginalCurrency = currency
	b.OriginalTotalAmount = &originalTotal
	b.ExchangeRate = &rate

	b.Subtotal = mul(b.Subtotal)
	b.TaxAmount = mul(b.TaxAmount)
	b.TotalAmount = mul(b.TotalAmount)

	items := make([]entity.LineItem, len(b.Items))
	for i, item := range b.Items {
		item.UnitPrice = mul(item.UnitPrice)
		item.ItemTotal = mul(item.ItemTotal)
		items[i] = item
	}
	b.Items = items

	b.Currency = base
	return b
}
