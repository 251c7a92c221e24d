package loader

import (
	"bytes"
	"fmt"
	"io"
	"net/url"
)

// FromIoReader implements the Loader interface for a reader. The reader is
// drained once at construction, so the loader can be read repeatedly.
type FromIoReader struct {
	content   []byte
	sourceURL *url.URL
}

// NewFromIoReader reads r to the end. name identifies the source in errors.
func NewFromIoReader(r io.Reader, name string) (*FromIoReader, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: reader is nil", ErrFormulaNotAvailable)
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormulaNotAvailable, err)
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, fmt.Errorf("%w: content is empty", ErrFormulaNotAvailable)
	}
	if name == "" {
		name = "stream"
	}

	return &FromIoReader{
		content:   content,
		sourceURL: &url.URL{Scheme: "reader", Host: name},
	}, nil
}

func (l *FromIoReader) String() string {
	return fmt.Sprintf("loader.FromIoReader{Bytes: %d}", len(l.content))
}

// GetReader returns a new reader for the drained content.
func (l *FromIoReader) GetReader() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(l.content)), nil
}

// GetSourceURL returns the source URL of the formula.
func (l *FromIoReader) GetSourceURL() *url.URL {
	return l.sourceURL
}
