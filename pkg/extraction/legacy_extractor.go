package extraction

import (
	"bytes"
	"context"
	"io"
	"os"
	"unicode/utf16"

	"github.com/richardlehane/mscfb"

	"github.com/localsearch/engine/pkg/errs"
)

// LegacyOfficeExtractor handles the pre-XML binary Office formats
// (.doc, .ppt, .xls) and .hwp, all of which are CFB/OLE2 compound-file
// containers. The specification's original COM-automation approach
// (§4.3, §9 "Legacy DOC/PPT/XLS/HWP... delegate to the OS's office-
// automation facility") has no portable Go equivalent — there is no
// Windows COM binding anywhere in the example pack — so, per §9's own
// escape hatch ("register a stub on hosts lacking the backend"), this
// extractor instead walks the CFB container directly and performs a
// best-effort scan for UTF-16LE text runs in the relevant streams. This
// recovers the bulk of readable text without an OS automation dependency,
// at the cost of formatting fidelity the COM path would have kept.
//
// github.com/richardlehane/mscfb (and its msoleps companion for property
// streams) were already present as transitive dependencies of excelize in
// the teacher's go.mod; this extractor promotes mscfb to direct use for
// CFB container parsing.
type LegacyOfficeExtractor struct{}

func NewLegacyOfficeExtractor() *LegacyOfficeExtractor { return &LegacyOfficeExtractor{} }

func (e *LegacyOfficeExtractor) Name() string  { return "legacy-office" }
func (e *LegacyOfficeExtractor) Priority() int { return 30 }

var legacyExtensions = map[string]struct{}{
	".doc": {}, ".ppt": {}, ".xls": {}, ".hwp": {},
}

func (e *LegacyOfficeExtractor) CanExtract(path string) bool {
	_, ok := legacyExtensions[extLower(path)]
	return ok
}

// legacyStreamNames lists the CFB streams known to hold the bulk of a
// legacy document's text: Word's WordDocument stream, PowerPoint's
// PowerPoint Document stream, and HWP's PrvText (preview text) stream,
// which is UTF-16LE by format definition and the cheapest reliable text
// source in an .hwp container, and Excel's Workbook stream. The Workbook
// stream is BIFF-encoded; its record structure is not parsed, and it goes
// through the same UTF-16LE run scan as the other streams.
var legacyStreamNames = map[string]struct{}{
	"WordDocument":      {},
	"PowerPoint Document": {},
	"PrvText":           {},
	"Workbook":          {},
}

func (e *LegacyOfficeExtractor) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	file, err := os.Open(path)
	if err != nil {
		return ExtractedContent{}, errs.ErrFileLocked
	}
	defer file.Close()

	f, err := mscfb.New(file)
	if err != nil {
		return ExtractedContent{}, classifyLegacyError(err)
	}

	var texts []string
	for entry, err := f.Next(); err == nil; entry, err = f.Next() {
		select {
		case <-ctx.Done():
			return ExtractedContent{}, errs.ErrTimeout
		default:
		}

		if _, relevant := legacyStreamNames[entry.Name]; !relevant {
			continue
		}
		data := make([]byte, entry.Size)
		if _, err := io.ReadFull(entry, data); err != nil {
			continue
		}
		texts = append(texts, scanUTF16LETextRuns(data)...)
	}

	if len(texts) == 0 {
		return ExtractedContent{}, errs.ErrUnsupportedFormat
	}

	joined := joinLines(texts)
	return ExtractedContent{Text: joined, Chars: len([]rune(joined))}, nil
}

func classifyLegacyError(err error) error {
	msg := err.Error()
	switch {
	case containsFold(msg, "password"):
		return errs.ErrPasswordProtected
	default:
		return errs.ErrCorrupted
	}
}

// scanUTF16LETextRuns walks data looking for contiguous runs of plausible
// UTF-16LE text (printable BMP code units), returning each run found. This
// is the best-effort substitute for actually parsing the binary record
// structure of each format.
func scanUTF16LETextRuns(data []byte) []string {
	const minRunUnits = 4
	var runs []string
	var current []uint16

	flush := func() {
		if len(current) >= minRunUnits {
			runs = append(runs, string(utf16.Decode(current)))
		}
		current = nil
	}

	for i := 0; i+1 < len(data); i += 2 {
		unit := uint16(data[i]) | uint16(data[i+1])<<8
		if isPlausibleTextUnit(unit) {
			current = append(current, unit)
		} else {
			flush()
		}
	}
	flush()

	return runs
}

func isPlausibleTextUnit(u uint16) bool {
	if u == 0x09 || u == 0x0A || u == 0x0D {
		return true
	}
	return u >= 0x20 && u < 0xD800
}

func joinLines(texts []string) string {
	var b bytes.Buffer
	for _, t := range texts {
		b.WriteString(t)
		b.WriteByte('\n')
	}
	return b.String()
}
