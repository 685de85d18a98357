// Package pdf provides PDFExtractor implementations.
package pdf

import (
	"bytes"
	"context"
	"fmt"

	pdfreader "github.com/ledongthuc/pdf"

	"github.com/custodia-labs/policyqa/internal/core/domain"
	"github.com/custodia-labs/policyqa/internal/core/ports/driven"
)

// Ensure NativeExtractor implements PDFExtractor
var _ driven.PDFExtractor = (*NativeExtractor)(nil)

// NativeExtractor reads page text in-process. It does not detect tables,
// so every page comes back with Tables empty.
type NativeExtractor struct{}

// NewNativeExtractor creates a native extractor
func NewNativeExtractor() *NativeExtractor {
	return &NativeExtractor{}
}

// Name identifies the extractor in logs
func (e *NativeExtractor) Name() string {
	return "native"
}

// Extract returns one Page per PDF page. Pages whose text cannot be
// decoded come back empty rather than failing the document.
func (e *NativeExtractor) Extract(ctx context.Context, data []byte) (pages []domain.Page, err error) {
	// the reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("%w: %v", domain.ErrExtraction, r)
		}
	}()

	reader, err := pdfreader.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open PDF: %v", domain.ErrExtraction, err)
	}

	numPages := reader.NumPage()
	pages = make([]domain.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := domain.Page{Number: i}
		p := reader.Page(i)
		if !p.V.IsNull() {
			if text, err := p.GetPlainText(nil); err == nil {
				page.Text = text
			}
		}
		pages = append(pages, page)
	}

	return pages, nil
}
