package util

import (
	"math"
	"strconv"
	"unicode"
)

// ParseNumber interprets the leading part of the given tag value as number. Leading whitespace is skipped and a
// trailing unit or other text is ignored, so "50 mph" results in 50. The boolean is false when the value does not
// start with a number at all, in which case NaN is returned.
func ParseNumber(s string) (float64, bool) {
	prefix := extractNumberPrefix(s)
	if prefix == "" {
		return math.NaN(), false
	}

	value, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return math.NaN(), false
	}
	return value, true
}

// IsNumber returns true when the whole string (ignoring surrounding whitespace) is a plain decimal number.
func IsNumber(s string) bool {
	runes := []rune(s)
	start, end := 0, len(runes)
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start == end {
		return false
	}
	return len(extractNumberPrefix(string(runes[start:end]))) == len(string(runes[start:end]))
}

func extractNumberPrefix(s string) string {
	runes := []rune(s)
	i := 0
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	start := i

	if i < len(runes) && runes[i] == '-' {
		i++
	}

	seenDigit := false
	seenDecimalPoint := false
	for ; i < len(runes); i++ {
		r := runes[i]
		if r >= '0' && r <= '9' {
			seenDigit = true
			continue
		}
		if r == '.' && !seenDecimalPoint {
			seenDecimalPoint = true
			continue
		}
		break
	}

	if !seenDigit {
		return ""
	}

	prefix := string(runes[start:i])
	if prefix[len(prefix)-1] == '.' {
		// "5." is a valid number but strconv wants digits after the point
		prefix = prefix[:len(prefix)-1]
	}
	return prefix
}
