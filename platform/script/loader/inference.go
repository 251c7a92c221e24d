package loader

import (
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
)

// InferLoader returns a loader for input:
//   - string: a file:// URL or an absolute path loads from disk, anything
//     else is inline formula text
//   - []byte: FromBytes
//   - io.Reader: FromIoReader
//   - Loader: returned as-is
func InferLoader(input any) (Loader, error) {
	switch v := input.(type) {
	case Loader:
		return v, nil
	case string:
		return inferFromString(v)
	case []byte:
		return NewFromBytes(v)
	case io.Reader:
		return NewFromIoReader(v, "inferred")
	default:
		return nil, fmt.Errorf("unsupported input type: %T", input)
	}
}

// inferFromString tells file references from inline text. Formula text
// always starts with a parenthesis, and may contain "/" as an operator, so
// only explicit references are read from disk.
func inferFromString(input string) (Loader, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("%w: empty string input", ErrFormulaNotAvailable)
	}
	if strings.HasPrefix(input, "(") {
		return NewFromString(input)
	}

	if u, err := url.Parse(input); err == nil && u.Scheme == "file" {
		path := u.Path
		if !filepath.IsAbs(path) {
			abs, err := filepath.Abs(path)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidPath, err)
			}
			path = abs
		}
		return NewFromDisk(path)
	}
	if filepath.IsAbs(input) {
		return NewFromDisk(input)
	}
	return NewFromString(input)
}
