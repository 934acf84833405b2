package ingest

import (
	"errors"
	"fmt"
	"time"

	"github.com/akolanti/DocGuard/internal/domain/docModel"
	"github.com/akolanti/DocGuard/pkg/logger_i"
	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"
)

var extractLogger = logger_i.NewLogger("PageExtraction")

// a single malformed page must not stall the whole document
const pageExtractTimeout = 10 * time.Second

func extractPDF(path string) ([]docModel.Page, int, error) {
	f, err := pdf.Open(path)
	if err != nil {
		extractLogger.Error("failed opening of pdf file", "error", err)
		return nil, 0, fmt.Errorf("failed to open pdf: %w", err)
	}

	var pages []docModel.Page
	numPages := f.NumPage()
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			continue
		}

		content, err := protectExtract(page)
		if err != nil {
			// skip the broken page, keep the rest of the document
			extractLogger.Error("Error parsing page content", "page", i, "error", err)
			continue
		}

		pages = append(pages, docModel.Page{
			PageNumber: i,
			Text:       content,
		})
	}
	return pages, numPages, nil
}

// extractDocxTxtRtf reads a .odt, .docx, .rtf or plaintext file. These
// extractors yield one text blob with no page markers, so the chunker's
// page estimation takes over downstream.
func extractDocxTxtRtf(path string) ([]docModel.Page, int, error) {
	text, err := cat.File(path)
	if err != nil {
		extractLogger.Error("Error extracting content from doc", "error", err)
		return nil, 0, fmt.Errorf("failed to extract document text: %w", err)
	}

	return []docModel.Page{
		{
			PageNumber: 1,
			Text:       text,
		},
	}, 0, nil
}

func protectExtract(page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	go func() {
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-time.After(pageExtractTimeout):
		extractLogger.Error("pageExtract", "timeout", pageExtractTimeout)
		return "", errors.New("timeout")
	}
}
