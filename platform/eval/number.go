package eval

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robbyt/go-polycalc/platform"
)

// ParseNumber converts literal text to a float64.
//
// Strict mode requires the whole text to be a valid literal. Permissive mode
// keeps the longest prefix that parses and yields zero when none does, which
// is how C's atof treats text such as "1abc" or "2.5.1". In both modes a
// literal too large for float64 becomes an infinity rather than an error.
//
// Underscore digit separators are not part of the literal syntax: strict mode
// rejects them and permissive mode stops reading at the first one. A hex
// mantissa without a binary exponent, such as "0x1", reads as in atof.
func ParseNumber(text string, permissive bool) (float64, error) {
	sep := strings.IndexByte(text, '_')
	if sep < 0 {
		if v, ok := parseFloat(text); ok {
			return v, nil
		}
	}
	if !permissive {
		return 0, fmt.Errorf("%w: %q", platform.ErrInvalidNumber, text)
	}
	if sep >= 0 {
		text = text[:sep]
	}
	for end := len(text); end > 0; end-- {
		if v, ok := parseFloat(text[:end]); ok {
			return v, nil
		}
	}
	return 0, nil
}

func parseFloat(text string) (float64, bool) {
	v, err := strconv.ParseFloat(text, 64)
	if err == nil || errors.Is(err, strconv.ErrRange) {
		return v, true
	}
	if isHexMantissa(text) {
		v, err = strconv.ParseFloat(text+"p0", 64)
		return v, err == nil || errors.Is(err, strconv.ErrRange)
	}
	return 0, false
}

// isHexMantissa reports whether text is a signed 0x-prefixed literal with no
// binary exponent.
func isHexMantissa(text string) bool {
	t := strings.TrimLeft(text, "+-")
	if len(t) < 3 || t[0] != '0' || (t[1] != 'x' && t[1] != 'X') {
		return false
	}
	return !strings.ContainsAny(t, "pP")
}
