// Package money converts integer minor-unit amounts into display values.
package money

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Scale is the number of minor-unit digits of cur (2 for USD, 0 for JPY).
func Scale(cur currency.Unit) int32 {
	scale, _ := currency.Standard.Rounding(cur)
	return int32(scale)
}

// ToMajor turns an amount in minor units into its decimal major-unit value.
func ToMajor(minor int64, cur currency.Unit) decimal.Decimal {
	return decimal.New(minor, -Scale(cur))
}

// Format renders minor units as a localized amount with the currency symbol.
func Format(minor int64, cur currency.Unit, tag language.Tag) string {
	p := message.NewPrinter(tag)
	major := ToMajor(minor, cur).InexactFloat64()
	return p.Sprint(currency.Symbol(cur.Amount(major)))
}
