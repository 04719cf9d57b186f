package extstrgutils

import (
	"fmt"
	"strconv"
	"strings"
)

// SplitMultiValueParam splits a string into multiple values using space, comma or semicolon as separator
func SplitMultiValueParam(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';'
	})
}

// ParseFloats parses exactly n float values of a multi value param, e.g. "7.1,50.7"
func ParseFloats(value string, n int) ([]float64, error) {
	parts := SplitMultiValueParam(value)
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d: %q", n, len(parts), value)
	}
	fs := make([]float64, 0, n)
	for _, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		fs = append(fs, f)
	}
	return fs, nil
}
