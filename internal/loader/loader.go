// Package loader extracts per-page text from PDF files.
package loader

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"kbingest/internal/domain"
)

// NativeLoader parses PDFs in-process.
type NativeLoader struct{}

func NewNativeLoader() *NativeLoader { return &NativeLoader{} }

func (l *NativeLoader) Name() string { return "native" }

// Load returns one page per PDF page in file order. Pages without a content
// stream yield an empty Text rather than being skipped, so page numbers stay
// aligned with the document.
func (l *NativeLoader) Load(ctx context.Context, path string) ([]domain.Page, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]domain.Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := domain.Page{Source: path, Number: i, Total: total}
		p := r.Page(i)
		if !p.V.IsNull() {
			text, err := p.GetPlainText(nil)
			if err != nil {
				return nil, fmt.Errorf("extracting page %d: %w", i, err)
			}
			page.Text = normalizeText(text)
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// normalizeText unifies line endings and drops form feeds left by extractors.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.Trim(s, "\f")
}
