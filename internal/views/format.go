package views

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatAmount renders an amount with en-US digit grouping and at most two
// decimals, followed by the currency code when one is given.
func FormatAmount(d decimal.Decimal, currency string) string {
	f, _ := d.Round(2).Float64()
	var s string
	if d.Round(2).IsInteger() {
		s = printer.Sprintf("%d", d.Round(0).IntPart())
	} else {
		s = printer.Sprintf("%.2f", f)
	}
	if currency != "" {
		s += " " + currency
	}
	return s
}
