// Package export renders career materials to HTML and PDF.
package export

import (
	"errors"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatHTML Format = "html"
)

// ParseFormat defaults to PDF.
func ParseFormat(value string) (Format, bool) {
	switch Format(value) {
	case "", FormatPDF:
		return FormatPDF, true
	case FormatHTML:
		return FormatHTML, true
	}
	return "", false
}

// Document is a material ready for rendering.
type Document struct {
	Title     string
	Kind      string // cv, cover_letter, speech, template
	Author    string
	Company   string // target company for tailored materials
	Content   string // plain text with light markdown
	UpdatedAt time.Time
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrContentUnavailable indicates the material has nothing to render.
	ErrContentUnavailable = errors.New("export content unavailable")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
	ErrUnsupportedFormat    = errors.New("unsupported export format")
)
