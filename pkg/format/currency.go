// Package format renders amounts and rates for people.
package format

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency returns an amount with thousands separators and two decimals (e.g., "-1,234.56").
// Amounts carry no currency symbol.
func Currency(amount float64) string {
	return printer.Sprintf("%.2f", normalize(amount))
}

// WholeCurrency returns an amount rounded to whole units with separators (e.g., "4,440,733").
func WholeCurrency(amount float64) string {
	return printer.Sprintf("%.0f", normalize(math.Round(amount)))
}

// Percent renders a whole percentage (e.g., 4.1 -> "4.10%").
func Percent(percent float64) string {
	return printer.Sprintf("%.2f%%", normalize(percent))
}

// Ratio renders a fraction as a percentage (e.g., 0.405 -> "40.50%").
func Ratio(ratio float64) string {
	return Percent(ratio * 100)
}

// normalize avoids printing "-0.00".
func normalize(v float64) float64 {
	if math.Abs(v) < 0.005 {
		return 0
	}
	return v
}
