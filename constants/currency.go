package constants

// BaseCurrency is the currency every bill is rescaled to before storage.
const BaseCurrency = "USD"

// CurrencyRatesToUSD is the static conversion table used by the currency
// converter. "RM" is kept as an alias for MYR because receipts in Malaysia
// print the symbol, not the ISO code.
var CurrencyRatesToUSD = map[string]float64{
	"USD": 1.0,
	"INR": 0.012,
	"MYR": 0.21,
	"RM":  0.21,
	"EUR": 1.08,
	"GBP": 1.27,
}
