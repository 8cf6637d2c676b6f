package common

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// FormatNumber renders v with English digit grouping and at most three
// fraction digits, e.g. 1234567.891 → "1,234,567.891".
func FormatNumber(v float64) string {
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
