package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is assumed when a tariff snapshot carries no currency.
const DefaultCurrency = "EUR"

// currencyPrecision maps lowercase ISO currency codes to their minor-unit
// precision. Unlisted currencies default to 2.
var currencyPrecision = map[string]int32{
	"bif": 0,
	"clp": 0,
	"djf": 0,
	"gnf": 0,
	"jpy": 0,
	"kmf": 0,
	"krw": 0,
	"mga": 0,
	"pyg": 0,
	"rwf": 0,
	"ugx": 0,
	"vnd": 0,
	"vuv": 0,
	"xaf": 0,
	"xof": 0,
	"xpf": 0,
	"bhd": 3,
	"jod": 3,
	"kwd": 3,
	"omr": 3,
	"tnd": 3,
}

// GetCurrencyPrecision returns the minor-unit precision for a currency code.
func GetCurrencyPrecision(currency string) int {
	if p, ok := currencyPrecision[strings.ToLower(currency)]; ok {
		return int(p)
	}
	return 2
}

// RoundToCurrencyPrecision rounds half-up to the currency's minor unit.
func RoundToCurrencyPrecision(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(int32(GetCurrencyPrecision(currency)))
}

// RoundToCents rounds half-up to two decimal places. This is the rounding
// applied to every billing component before it is summed, so rounding error
// never compounds across components. Idempotent: rounding a rounded value
// returns it unchanged.
func RoundToCents(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

