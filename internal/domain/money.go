package domain

import "strings"

// Currencies whose smallest unit is not a hundredth of the major unit, as
// listed by ISO 4217 and the card networks.
var currencyExponents = map[string]int32{
	"bif": 0, "clp": 0, "djf": 0, "gnf": 0, "jpy": 0, "kmf": 0, "krw": 0, "mga": 0,
	"pyg": 0, "rwf": 0, "ugx": 0, "vnd": 0, "vuv": 0, "xaf": 0, "xof": 0, "xpf": 0,
	"bhd": 3, "jod": 3, "kwd": 3, "omr": 3, "tnd": 3,
}

// PriceScale is the number of decimal places prices and totals are kept to.
const PriceScale int32 = 2

// CurrencyExponent returns how many decimal places the minor unit of an ISO
// 4217 currency code sits below the major unit.
func CurrencyExponent(currency string) int32 {
	if exp, ok := currencyExponents[strings.ToLower(currency)]; ok {
		return exp
	}
	return 2
}
