package export

import (
	"context"
	"fmt"
)

type pdfRenderer func(ctx context.Context, html, title string) (*Result, error)

// Service provides material export functionality
type Service struct {
	pdf pdfRenderer
}

// NewService creates an export service backed by headless Chrome.
func NewService() *Service {
	return &Service{pdf: renderPDF}
}

// Export renders the document in the requested format.
func (s *Service) Export(ctx context.Context, doc Document, format Format) (*Result, error) {
	html, err := RenderDocumentHTML(doc)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	switch format {
	case FormatPDF:
		return s.pdf(ctx, html, doc.Title)
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: sanitizeFilename(doc.Title) + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
