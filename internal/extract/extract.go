// Package extract turns downloaded document bytes into plain text.
// Dispatch is by file name suffix only. Length is not capped here.
package extract

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrUnsupportedFormat matches every *UnsupportedFormatError.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// UnsupportedFormatError is returned for a file name with no extractor.
type UnsupportedFormatError struct {
	Filename  string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported file format: %q has no extension", e.Filename)
	}
	return fmt.Sprintf("unsupported file format %q (%s)", e.Extension, e.Filename)
}

// NewUnsupportedFormatError builds the error for filename.
func NewUnsupportedFormatError(filename string) *UnsupportedFormatError {
	return &UnsupportedFormatError{Filename: filename, Extension: extension(filename)}
}

func (e *UnsupportedFormatError) Is(target error) bool {
	return target == ErrUnsupportedFormat
}

type extractor func(content []byte) (string, error)

var extractors = map[string]extractor{
	".pdf":  extractPDF,
	".docx": extractDocx,
	".txt":  decodeText,
	".md":   decodeText,
	".csv":  decodeText,
}

// Extensions lists the supported suffixes.
func Extensions() []string {
	return []string{".pdf", ".docx", ".txt", ".md", ".csv"}
}

// Supported reports whether filename has a known suffix.
func Supported(filename string) bool {
	_, ok := extractors[extension(filename)]
	return ok
}

// Extract returns the plain text of content, choosing the strategy from
// filename's suffix (case-insensitive).
func Extract(content []byte, filename string) (string, error) {
	ext := extension(filename)
	fn, ok := extractors[ext]
	if !ok {
		return "", NewUnsupportedFormatError(filename)
	}
	text, err := fn(content)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", path.Base(filename), err)
	}
	return text, nil
}

func extension(filename string) string {
	return strings.ToLower(path.Ext(filename))
}
