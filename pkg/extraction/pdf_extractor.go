package extraction

import (
	"bytes"
	"context"

	"github.com/ledongthuc/pdf"

	"github.com/localsearch/engine/pkg/errs"
)

// maxPDFPages caps PDF extraction at the first 100 pages per §4.3.
const maxPDFPages = 100

// PDFExtractor extracts text page-by-page via github.com/ledongthuc/pdf,
// grounded directly on the teacher's PDFParser (pkg/context/native_parsers.go),
// which drives the same pdf.NewReader / NumPage / GetPlainText API.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (e *PDFExtractor) Name() string  { return "pdf" }
func (e *PDFExtractor) Priority() int { return 20 }

func (e *PDFExtractor) CanExtract(path string) bool {
	return extLower(path) == ".pdf"
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return ExtractedContent{}, classifyPDFError(err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	if numPages > maxPDFPages {
		numPages = maxPDFPages
	}

	var buf bytes.Buffer
	for i := 1; i <= numPages; i++ {
		select {
		case <-ctx.Done():
			return ExtractedContent{}, errs.ErrTimeout
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteByte('\n')
	}

	result := buf.String()
	return ExtractedContent{Text: result, Chars: len([]rune(result))}, nil
}

func classifyPDFError(err error) error {
	msg := err.Error()
	switch {
	case containsFold(msg, "password") || containsFold(msg, "encrypt"):
		return errs.ErrPasswordProtected
	case containsFold(msg, "EOF") || containsFold(msg, "invalid") || containsFold(msg, "damaged"):
		return errs.ErrCorrupted
	default:
		return &errs.ParseError{Detail: msg}
	}
}
