// ABOUTME: Currency formatting and parsing for deal values stored in cents
// ABOUTME: Shared by the dashboard, graph labels, CLI tables and the TUI
package viz

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Money renders cents as dollars with thousands separators, e.g. $48,000.00.
func Money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(cents/100), cents%100)
}

// MoneyShort renders whole thousands, e.g. $48K, for tight columns.
func MoneyShort(cents int64) string {
	dollars := cents / 100
	if dollars < 1000 {
		return fmt.Sprintf("$%d", dollars)
	}
	return fmt.Sprintf("$%sK", humanize.Comma(dollars/1000))
}

// ParseMoney turns a dollar amount like "12,500.50" or "$900" into cents.
func ParseMoney(raw string) (int64, error) {
	s := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if s == "" {
		return 0, nil
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if strings.Trim(s, "0123456789.") != "" || strings.Count(s, ".") > 1 {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, fmt.Errorf("invalid amount %q: use at most two decimal places", raw)
	}
	dollars, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	cents := int64(0)
	if hasFrac {
		if len(frac) == 1 {
			frac += "0"
		}
		if cents, err = strconv.ParseInt(frac, 10, 64); err != nil {
			return 0, fmt.Errorf("invalid amount %q", raw)
		}
	}
	total := dollars*100 + cents
	if neg {
		total = -total
	}
	return total, nil
}
