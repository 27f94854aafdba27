package extraction

import (
	"context"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/localsearch/engine/pkg/errs"
)

// TextExtractor handles plain-text source files. Decoding follows the
// cascade the original implementation's chardet-based detection used: try
// UTF-8, then the legacy Korean codepage (CP949 via the closest available
// Go decoder, EUC-KR), then a byte-level heuristic over a 1 MiB
// prefix, finally UTF-8 with replacement — grounded on the teacher's
// TextExtractor (pkg/context/extraction/text_extractor.go), which runs the
// same UTF-8-first / cleanup-fallback shape.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor { return &TextExtractor{} }

func (e *TextExtractor) Name() string     { return "text" }
func (e *TextExtractor) Priority() int    { return 50 }

var textExtensionSet = map[string]struct{}{
	".txt": {}, ".log": {}, ".md": {}, ".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {},
	".java": {}, ".cpp": {}, ".c": {}, ".h": {}, ".cs": {}, ".json": {}, ".xml": {}, ".html": {},
	".css": {}, ".sql": {}, ".sh": {}, ".bat": {}, ".ps1": {}, ".yaml": {}, ".yml": {},
}

func (e *TextExtractor) CanExtract(path string) bool {
	_, ok := textExtensionSet[extLower(path)]
	return ok
}

func (e *TextExtractor) Extract(ctx context.Context, path string) (ExtractedContent, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ExtractedContent{}, errs.ErrTransientIO
	}
	text := decodeBestEffort(raw)
	return ExtractedContent{Text: text, Chars: len([]rune(text))}, nil
}

// decodeBestEffort runs the UTF-8 → CP949 → heuristic → UTF-8-replacement
// cascade over raw bytes.
func decodeBestEffort(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	if decoded, ok := decodeCP949(raw); ok {
		return decoded
	}

	prefix := raw
	if len(prefix) > 1<<20 {
		prefix = prefix[:1<<20]
	}
	if looksLikeValidUTF8Majority(prefix) {
		// Already mostly valid UTF-8; the few bad bytes are isolated noise,
		// so just coerce them to the replacement character in place.
		return strings.ToValidUTF8(string(raw), "�")
	}

	// Mostly non-UTF-8 bytes: the strict CP949 decode above already failed
	// its full-buffer validity check, but a lossy decode is still better
	// than replacing the whole document.
	if decoded, ok := decodeCP949Lossy(raw); ok {
		return decoded
	}
	return strings.ToValidUTF8(string(raw), "�")
}

// decodeCP949 decodes raw as EUC-KR, the closest available Go stdlib/
// x/text decoder to Windows codepage 949, returning ok=false if the bytes
// don't decode cleanly.
func decodeCP949(raw []byte) (string, bool) {
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return "", false
	}
	// The decoder substitutes U+FFFD for byte sequences it cannot map
	// instead of returning an error, so a clean decode is one with none.
	if !utf8.Valid(decoded) || strings.ContainsRune(string(decoded), utf8.RuneError) {
		return "", false
	}
	return string(decoded), true
}

// decodeCP949Lossy decodes raw as EUC-KR without requiring the result to be
// fully valid UTF-8, accepting a partially garbled decode over discarding
// the document entirely; any bytes the decoder still can't place are
// coerced to the replacement character.
func decodeCP949Lossy(raw []byte) (string, bool) {
	decoded, _, err := transform.Bytes(korean.EUCKR.NewDecoder(), raw)
	if err != nil {
		return "", false
	}
	return strings.ToValidUTF8(string(decoded), "�"), true
}

// looksLikeValidUTF8Majority scans prefix and reports whether the majority
// of bytes look like plausible text bytes (ASCII or a valid UTF-8 rune)
// rather than high-bit noise — a cheap substitute for full charset
// detection, sufficient to pick between "already fine" and "needs
// replacement" once the CP949 branch has been tried and failed.
func looksLikeValidUTF8Majority(prefix []byte) bool {
	if len(prefix) == 0 {
		return true
	}
	valid := 0
	total := 0
	for i := 0; i < len(prefix); {
		r, size := utf8.DecodeRune(prefix[i:])
		total++
		if r != utf8.RuneError {
			valid++
		}
		i += size
	}
	return float64(valid)/float64(total) >= 0.9
}

func extLower(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 {
		return ""
	}
	return strings.ToLower(path[i:])
}
