package cv

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/ternarybob/peto/internal/common"
)

// extractPDF reads the document page by page, yielding between pages so a
// long parse never monopolises the session. Unreadable pages are skipped.
func (p *Parser) extractPDF(ctx context.Context, path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", common.ErrFileUnreadable, path, err)
	}
	defer f.Close()

	delay := p.config.PDFPageParseDelay()
	var text strings.Builder

	for i := 1; i <= reader.NumPage(); i++ {
		if i > 1 && delay > 0 {
			if err := common.SleepContext(ctx, delay); err != nil {
				return "", err
			}
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			p.logger.Warn().Err(err).Int("page", i).Str("path", path).Msg("Skipping unreadable PDF page")
			continue
		}
		pageText = strings.TrimSpace(pageText)
		if pageText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
	}

	return strings.TrimSpace(text.String()), nil
}

// validatePDF runs a structural check over the document before upload.
func validatePDF(path string) error {
	return pdfapi.ValidateFile(path, nil)
}
