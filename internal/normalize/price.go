package normalize

import (
	"math"
	"strconv"
	"strings"
)

// currencyStripper removes symbols and separators commonly seen in upstream
// price strings before numeric parsing.
var currencyStripper = strings.NewReplacer(
	"$", "", "€", "", "£", "", "¥", "",
	"USD", "", "usd", "",
	",", "", " ", "", " ", "",
)

// ParsePrice normalizes an upstream price into integer minor currency units.
// Accepted shapes: a structured {amount, display} object, a bare number in
// major units, or a string possibly carrying currency symbols/separators.
// Absent or unparseable input returns nil, never zero.
func ParsePrice(v any) *int64 {
	switch p := v.(type) {
	case nil:
		return nil
	case map[string]any:
		if amount, ok := numberField(p, "amount", "value"); ok {
			return centsOf(amount)
		}
		if s := stringField(p, "display", "formatted"); s != "" {
			return parsePriceString(s)
		}
		return nil
	case float64:
		return centsOf(p)
	case int:
		return centsOf(float64(p))
	case int64:
		return centsOf(float64(p))
	case string:
		return parsePriceString(p)
	default:
		return nil
	}
}

func parsePriceString(s string) *int64 {
	s = strings.TrimSpace(currencyStripper.Replace(s))
	if s == "" {
		return nil
	}
	amount, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return centsOf(amount)
}

func centsOf(major float64) *int64 {
	if math.IsNaN(major) || math.IsInf(major, 0) || major < 0 {
		return nil
	}
	cents := int64(math.Round(major * 100))
	return &cents
}
