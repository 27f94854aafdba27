package store

import (
	"database/sql"
	"strings"

	"github.com/localsearch/engine/pkg/errs"
	"github.com/localsearch/engine/pkg/model"
)

// ftsSpecialChars is the set the specification requires escaping before any
// unquoted token reaches the FTS engine.
var ftsSpecialChars = []rune{'-', '(', ')', '[', ']', '"', '*'}

func escapeFTSToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		for _, special := range ftsSpecialChars {
			if r == special {
				b.WriteByte('\\')
				break
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// buildMatchQuery turns escaped tokens into an FTS5 MATCH expression. Each
// token is wrapped as its own quoted phrase (doubling any literal quote, the
// one character FTS5 itself requires escaping inside a phrase) so that the
// backslash-escaped special characters above stay inert literal content
// rather than being reinterpreted as FTS5 query syntax; the quoted phrases
// are joined with AND, which is exactly the single-token / multi-token-AND
// semantics the specification calls for.
func buildMatchQuery(tokens []string) string {
	phrases := make([]string, 0, len(tokens))
	for _, t := range tokens {
		escaped := escapeFTSToken(t)
		quoted := strings.ReplaceAll(escaped, `"`, `""`)
		phrases = append(phrases, `"`+quoted+`"`)
	}
	return strings.Join(phrases, " AND ")
}

// Search implements the three query interpretations from §4.1.2: a quoted
// phrase bypasses FTS for a literal case-sensitive substring match (rank 0),
// a single token is an FTS MATCH, and multiple whitespace-separated tokens
// are a conjunctive FTS MATCH. Only live entries are returned, ordered by
// rank ascending then path ascending, limited to limit rows.
func (s *Store) Search(query string, limit int) ([]model.SearchHit, error) {
	trimmed := strings.TrimSpace(query)

	if strings.HasPrefix(trimmed, `"`) && strings.HasSuffix(trimmed, `"`) && len(trimmed) >= 2 {
		phrase := trimmed[1 : len(trimmed)-1]
		return s.searchLiteral(phrase, limit)
	}

	tokens := strings.Fields(trimmed)
	if len(tokens) == 0 {
		return nil, nil
	}
	return s.searchFTS(tokens, limit)
}

func (s *Store) searchLiteral(phrase string, limit int) ([]model.SearchHit, error) {
	if phrase == "" {
		return nil, nil
	}
	rows, err := s.readDB.Query(`
		SELECT path, content, mtime FROM documents
		WHERE deleted = 0 AND instr(content, ?) > 0
		ORDER BY path ASC
		LIMIT ?
	`, phrase, limit)
	if err != nil {
		return nil, errs.NewStoreError("Search", "literal query failed", "", err)
	}
	defer rows.Close()

	var hits []model.SearchHit
	for rows.Next() {
		var path, content string
		var mtime float64
		if err := rows.Scan(&path, &content, &mtime); err != nil {
			return nil, errs.NewStoreError("Search", "literal scan failed", "", err)
		}
		hits = append(hits, model.SearchHit{
			Path:    path,
			Snippet: snippet(content, phrase),
			MTime:   fromEpoch(mtime),
			Rank:    0,
		})
	}
	return hits, rows.Err()
}

func (s *Store) searchFTS(tokens []string, limit int) ([]model.SearchHit, error) {
	matchQuery := buildMatchQuery(tokens)

	rows, err := s.readDB.Query(`
		SELECT d.path, d.content, d.mtime, bm25(documents_fts) AS rank
		FROM documents_fts
		JOIN documents d ON d.id = documents_fts.rowid
		WHERE documents_fts MATCH ? AND d.deleted = 0
		ORDER BY rank ASC, d.path ASC
		LIMIT ?
	`, matchQuery, limit)
	if err != nil {
		// A query built entirely from escaped special characters can still
		// leave FTS5 nothing to match against; that is zero results, not a
		// crash, per the specification's boundary behavior.
		if isNoMatchError(err) {
			return nil, nil
		}
		return nil, errs.NewStoreError("Search", "fts query failed", "", err)
	}
	defer rows.Close()

	var hits []model.SearchHit
	for rows.Next() {
		var path, content string
		var mtime, rank float64
		if err := rows.Scan(&path, &content, &mtime, &rank); err != nil {
			return nil, errs.NewStoreError("Search", "fts scan failed", "", err)
		}
		hits = append(hits, model.SearchHit{
			Path:    path,
			Snippet: snippet(content, tokens[0]),
			MTime:   fromEpoch(mtime),
			Rank:    rank,
		})
	}
	return hits, rows.Err()
}

func isNoMatchError(err error) bool {
	return err != nil && err != sql.ErrNoRows && strings.Contains(err.Error(), "fts5: syntax error")
}

// snippet returns a bounded window of content around the first occurrence
// of needle (case-insensitive), for use as search-result highlighting
// context. Falls back to the content's leading characters if needle isn't
// found verbatim (e.g. multi-token queries where no single token literal
// appears contiguously).
func snippet(content, needle string) string {
	const (
		window  = 80
		maxChar = 200
	)
	lowerContent := strings.ToLower(content)
	lowerNeedle := strings.ToLower(needle)

	idx := strings.Index(lowerContent, lowerNeedle)
	if idx < 0 {
		if len(content) > maxChar {
			return content[:maxChar]
		}
		return content
	}

	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + window
	if end > len(content) {
		end = len(content)
	}
	return content[start:end]
}
