package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatMoney renders amount with two decimals and a thousands separator,
// e.g. 15000.5 -> "15,000.50".
func FormatMoney(amount float64) string {
	formatted := decimal.NewFromFloat(amount).StringFixed(2)

	negative := strings.HasPrefix(formatted, "-")
	formatted = strings.TrimPrefix(formatted, "-")

	parts := strings.SplitN(formatted, ".", 2)
	integerPart := parts[0]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	out := strings.Join(groups, ",") + "." + parts[1]
	if negative {
		out = "-" + out
	}
	return out
}
