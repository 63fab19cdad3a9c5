package helpers

import (
	"strconv"
	"strings"
)

// ParsePrice parses a positive price entered in a wizard flow. Both "150"
// and "150.00" are accepted; the result is in minor currency units.
func ParsePrice(input string) (int64, bool) {
	s := strings.TrimSpace(strings.ReplaceAll(input, ",", "."))
	if s == "" {
		return 0, false
	}
	whole, frac, found := strings.Cut(s, ".")
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || major < 0 {
		return 0, false
	}
	minor := int64(0)
	if found {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, false
		}
		if len(frac) == 1 {
			frac += "0"
		}
		m, err := strconv.ParseInt(frac, 10, 64)
		if err != nil || m < 0 {
			return 0, false
		}
		minor = m
	}
	total := major*100 + minor
	if total <= 0 {
		return 0, false
	}
	return total, true
}

// FormatPrice renders minor currency units back into a display string.
func FormatPrice(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	if minor%100 == 0 {
		return sign + strconv.FormatInt(minor/100, 10)
	}
	return sign + strconv.FormatInt(minor/100, 10) + "." + pad2(minor%100)
}

func pad2(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}
	return strconv.FormatInt(n, 10)
}

// ParseTelegramID parses a numeric Telegram user id entered as text.
func ParseTelegramID(input string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(input), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
