package extraction

import (
	"context"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/localsearch/engine/pkg/errs"
)

// XLSXExtractor iterates every sheet and row, prefixing each sheet with a
// "[Sheet: name]" marker so sheet names are searchable, grounded on the
// teacher's OfficeParser.parseExcelDocument (pkg/context/native_parsers.go)
// which drives the same xuri/excelize/v2 API (OpenFile / GetSheetList /
// GetRows). GetRows returns formula cells already evaluated to their cached
// value, satisfying the specification's "formulas evaluated-to-cached-value"
// rule without extra work.
type XLSXExtractor struct{}

func NewXLSXExtractor() *XLSXExtractor { return &XLSXExtractor{} }

func (e *XLSXExtractor) Name() string  { return "xlsx" }
func (e *XLSXExtractor) Priority() int { return 20 }

func (e *XLSXExtractor) CanExtract(path string) bool {
	return extLower(path) == ".xlsx"
}

func (e *XLSXExtractor) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return ExtractedContent{}, classifyXLSXError(err)
	}
	defer f.Close()

	var b strings.Builder
	for _, name := range f.GetSheetList() {
		select {
		case <-ctx.Done():
			return ExtractedContent{}, errs.ErrTimeout
		default:
		}

		b.WriteString("[Sheet: ")
		b.WriteString(name)
		b.WriteString("]\n")

		rows, err := f.GetRows(name)
		if err != nil {
			continue
		}
		for _, row := range rows {
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
	}

	text := b.String()
	return ExtractedContent{Text: text, Chars: len([]rune(text))}, nil
}

func classifyXLSXError(err error) error {
	msg := err.Error()
	switch {
	case containsFold(msg, "password"):
		return errs.ErrPasswordProtected
	case containsFold(msg, "zip") || containsFold(msg, "invalid"):
		return errs.ErrCorrupted
	default:
		return &errs.ParseError{Detail: msg}
	}
}
