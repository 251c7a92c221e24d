// Package loader reads formula source text from strings, byte slices, files
// and readers.
package loader

import (
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/robbyt/go-polycalc/platform/sexpr"
)

var (
	ErrFormulaNotAvailable = errors.New("formula not available")
	ErrInvalidPath         = errors.New("invalid formula path")
)

// Loader is an interface used by the engines to load formulas.
type Loader interface {
	GetReader() (io.ReadCloser, error)
	GetSourceURL() *url.URL
}

// ReadAll returns the full content of l.
func ReadAll(l Loader) ([]byte, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: loader is nil", ErrFormulaNotAvailable)
	}
	r, err := l.GetReader()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormulaNotAvailable, err)
	}
	defer func() { _ = r.Close() }()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormulaNotAvailable, err)
	}
	return b, nil
}

// ReadFormula reads and parses the formula l provides.
func ReadFormula(l Loader) (*sexpr.Formula, error) {
	b, err := ReadAll(l)
	if err != nil {
		return nil, err
	}
	f, err := sexpr.ParseFormula(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", l.GetSourceURL(), err)
	}
	return f, nil
}
