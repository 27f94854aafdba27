package extraction

import (
	"context"

	"github.com/nguyenthenguyen/docx"

	"github.com/localsearch/engine/pkg/errs"
)

// DOCXExtractor parses the zip-based Word format, grounded on the teacher's
// OfficeParser.parseWordDocument (pkg/context/native_parsers.go), which
// uses the same nguyenthenguyen/docx reader.
type DOCXExtractor struct{}

func NewDOCXExtractor() *DOCXExtractor { return &DOCXExtractor{} }

func (e *DOCXExtractor) Name() string  { return "docx" }
func (e *DOCXExtractor) Priority() int { return 20 }

func (e *DOCXExtractor) CanExtract(path string) bool {
	return extLower(path) == ".docx"
}

func (e *DOCXExtractor) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	reader, err := docx.ReadDocxFile(path)
	if err != nil {
		return ExtractedContent{}, classifyDocxError(err)
	}
	defer reader.Close()

	content := reader.Editable().GetContent()
	return ExtractedContent{Text: content, Chars: len([]rune(content))}, nil
}

func classifyDocxError(err error) error {
	msg := err.Error()
	switch {
	case containsAny(msg, "password", "encrypted"):
		return errs.ErrPasswordProtected
	case containsAny(msg, "zip: not a valid zip file", "invalid"):
		return errs.ErrCorrupted
	default:
		return &errs.ParseError{Detail: msg}
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if containsFold(s, sub) {
			return true
		}
	}
	return false
}
