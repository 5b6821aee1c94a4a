// Package money форматирует денежные суммы для отображения клиенту.
package money

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usdPrinter = message.NewPrinter(language.AmericanEnglish)

// RoundCents округляет сумму до центов.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}

// FormatUSD возвращает сумму в виде "$1,234.50"; отрицательные суммы как "-$1,234.50".
func FormatUSD(amount float64) string {
	rounded := RoundCents(amount)
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) {
		return "$0.00"
	}

	sign := ""
	if rounded == 0 {
		rounded = 0 // -0
	}
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + "$" + usdPrinter.Sprintf("%.2f", rounded)
}
