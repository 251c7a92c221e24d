package loader

import (
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
)

// FromDisk implements the Loader interface for a formula file. The file is
// opened on every GetReader call, so edits are picked up on the next load.
type FromDisk struct {
	path      string
	sourceURL *url.URL
}

// NewFromDisk creates a loader for the file at path, which must be absolute.
func NewFromDisk(path string) (*FromDisk, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrInvalidPath)
	}
	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: %q is not absolute", ErrInvalidPath, path)
	}
	path = filepath.Clean(path)

	return &FromDisk{
		path:      path,
		sourceURL: &url.URL{Scheme: "file", Path: filepath.ToSlash(path)},
	}, nil
}

func (l *FromDisk) String() string {
	return fmt.Sprintf("loader.FromDisk{Path: %s}", l.path)
}

// GetReader opens the file.
func (l *FromDisk) GetReader() (io.ReadCloser, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormulaNotAvailable, err)
	}
	return f, nil
}

// GetSourceURL returns the file URL of the formula.
func (l *FromDisk) GetSourceURL() *url.URL {
	return l.sourceURL
}
