package loader

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/robbyt/go-polycalc/internal/helpers"
	"github.com/robbyt/go-polycalc/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const formulaText = "((x y) (+ (* x y) 10.5))"

func readString(t *testing.T, l Loader) string {
	t.Helper()
	b, err := ReadAll(l)
	require.NoError(t, err)
	return string(b)
}

func writeFormula(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "formula.sexp")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestNewFromString(t *testing.T) {
	t.Parallel()

	l, err := NewFromString("  " + formulaText + "\n")
	require.NoError(t, err)
	assert.Equal(t, formulaText, readString(t, l))
	// The reader can be taken more than once.
	assert.Equal(t, formulaText, readString(t, l))
	assert.Equal(t, "string://inline/"+helpers.ShortID(formulaText), l.GetSourceURL().String())
	assert.Equal(t, "loader.FromString{Chars: 24}", l.String())

	_, err = NewFromString(" \t\n")
	require.ErrorIs(t, err, ErrFormulaNotAvailable)
}

func TestNewFromBytes(t *testing.T) {
	t.Parallel()

	src := []byte(formulaText)
	l, err := NewFromBytes(src)
	require.NoError(t, err)
	src[0] = 'X'
	assert.Equal(t, formulaText, readString(t, l))
	assert.Equal(t, "bytes", l.GetSourceURL().Scheme)
	assert.Equal(t, "loader.FromBytes{Bytes: 24}", l.String())

	for _, content := range [][]byte{nil, {}, []byte("  \r\n\t")} {
		_, err := NewFromBytes(content)
		require.ErrorIs(t, err, ErrFormulaNotAvailable)
	}
}

func TestNewFromDisk(t *testing.T) {
	t.Parallel()

	path := writeFormula(t, formulaText)
	l, err := NewFromDisk(path)
	require.NoError(t, err)
	assert.Equal(t, formulaText, readString(t, l))
	assert.Equal(t, "file", l.GetSourceURL().Scheme)
	assert.Contains(t, l.String(), "formula.sexp")

	// Edits are seen by the next read.
	require.NoError(t, os.WriteFile(path, []byte("((x) x)"), 0o600))
	assert.Equal(t, "((x) x)", readString(t, l))

	_, err = NewFromDisk("")
	require.ErrorIs(t, err, ErrInvalidPath)
	_, err = NewFromDisk("relative/formula.sexp")
	require.ErrorIs(t, err, ErrInvalidPath)

	missing, err := NewFromDisk(filepath.Join(t.TempDir(), "missing.sexp"))
	require.NoError(t, err)
	_, err = missing.GetReader()
	require.ErrorIs(t, err, ErrFormulaNotAvailable)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewFromIoReader(t *testing.T) {
	t.Parallel()

	l, err := NewFromIoReader(strings.NewReader(formulaText), "stdin")
	require.NoError(t, err)
	assert.Equal(t, formulaText, readString(t, l))
	assert.Equal(t, formulaText, readString(t, l))
	assert.Equal(t, "reader://stdin", l.GetSourceURL().String())

	l, err = NewFromIoReader(strings.NewReader(formulaText), "")
	require.NoError(t, err)
	assert.Equal(t, "stream", l.GetSourceURL().Host)

	_, err = NewFromIoReader(nil, "x")
	require.ErrorIs(t, err, ErrFormulaNotAvailable)
	_, err = NewFromIoReader(strings.NewReader("  "), "x")
	require.ErrorIs(t, err, ErrFormulaNotAvailable)
	_, err = NewFromIoReader(failingReader{}, "x")
	require.ErrorIs(t, err, ErrFormulaNotAvailable)
}

func TestInferLoader(t *testing.T) {
	t.Parallel()
	path := writeFormula(t, "((a) (/ a 2))")

	tests := []struct {
		name     string
		input    any
		wantType any
		wantText string
	}{
		{"inline formula with division", "((a b) (/ a b))", &FromString{}, "((a b) (/ a b))"},
		{"absolute path", path, &FromDisk{}, "((a) (/ a 2))"},
		{"file url", "file://" + filepath.ToSlash(path), &FromDisk{}, "((a) (/ a 2))"},
		{"bytes", []byte("((a) a)"), &FromBytes{}, "((a) a)"},
		{"reader", strings.NewReader("((a) a)"), &FromIoReader{}, "((a) a)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := InferLoader(tt.input)
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, l)
			assert.Equal(t, tt.wantText, readString(t, l))
		})
	}

	t.Run("loader passes through", func(t *testing.T) {
		orig, err := NewFromString("((a) a)")
		require.NoError(t, err)
		l, err := InferLoader(orig)
		require.NoError(t, err)
		assert.Same(t, orig, l)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := InferLoader(42)
		require.Error(t, err)
		_, err = InferLoader("   ")
		require.ErrorIs(t, err, ErrFormulaNotAvailable)
	})
}

func TestReadFormula(t *testing.T) {
	t.Parallel()

	l, err := NewFromString(formulaText)
	require.NoError(t, err)
	f, err := ReadFormula(l)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, f.Params)

	bad, err := NewFromString("((x) (+ x 1)")
	require.NoError(t, err)
	_, err = ReadFormula(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "string://inline/")

	dup, err := NewFromString("((x x) x)")
	require.NoError(t, err)
	_, err = ReadFormula(dup)
	require.ErrorIs(t, err, platform.ErrMalformedTree)

	_, err = ReadFormula(nil)
	require.ErrorIs(t, err, ErrFormulaNotAvailable)

	missing, err := NewFromDisk(filepath.Join(t.TempDir(), "missing.sexp"))
	require.NoError(t, err)
	_, err = ReadFormula(missing)
	require.ErrorIs(t, err, ErrFormulaNotAvailable)
}
