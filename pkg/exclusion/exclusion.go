// Package exclusion implements the pure predicate that decides whether a
// path should be crawled, grounded on the teacher's PatternFilter /
// PatternCache (pkg/context/indexing/pattern_filter.go): precomputed
// lookup sets for directory/file exclusions plus glob pattern matching via
// filepath.Match.
package exclusion

import (
	"path/filepath"
	"strings"
	"unicode"
)

var excludedDirNames = map[string]struct{}{
	".git": {}, "node_modules": {}, "venv": {}, "env": {}, "__pycache__": {},
	".vscode": {}, ".idea": {}, "dist": {}, "build": {}, "out": {}, "target": {},
	".next": {}, ".nuxt": {}, ".cache": {}, ".temp": {}, ".tmp": {}, "vendor": {},
	"packages": {}, "bower_components": {},
}

var excludedFileNames = map[string]struct{}{
	"desktop.ini": {}, "thumbs.db": {}, "ehthumbs.db": {},
	".ds_store": {}, ".gitignore": {}, ".gitattributes": {},
}

var excludedFilePrefixes = []string{"~$", "~wrl"}

var excludedExtensions = map[string]struct{}{
	".exe": {}, ".dll": {}, ".so": {}, ".dylib": {}, ".bin": {}, ".com": {}, ".msi": {},
	".zip": {}, ".rar": {}, ".7z": {}, ".tar": {}, ".gz": {}, ".bz2": {}, ".iso": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".bmp": {}, ".ico": {}, ".svg": {}, ".webp": {},
	".mp3": {}, ".mp4": {}, ".avi": {}, ".mov": {}, ".wmv": {}, ".flv": {}, ".mkv": {}, ".wav": {}, ".flac": {},
	".ttf": {}, ".otf": {}, ".woff": {}, ".woff2": {}, ".eot": {},
}

var textExtensions = map[string]struct{}{
	".txt": {}, ".log": {}, ".md": {}, ".py": {}, ".js": {}, ".ts": {}, ".jsx": {}, ".tsx": {},
	".java": {}, ".cpp": {}, ".c": {}, ".h": {}, ".cs": {}, ".json": {}, ".xml": {}, ".html": {},
	".css": {}, ".sql": {}, ".sh": {}, ".bat": {}, ".ps1": {}, ".yaml": {}, ".yml": {},
}

var documentExtensions = map[string]struct{}{
	".docx": {}, ".doc": {}, ".pptx": {}, ".ppt": {}, ".xlsx": {}, ".xls": {},
	".csv": {}, ".pdf": {}, ".hwp": {},
}

// windowsSystemPrefixes lists absolute-path prefixes excluded on Windows
// hosts: system directories, the recycle bin, the pagefile.
var windowsSystemPrefixes = []string{
	`C:\Windows`, `C:\Program Files`, `C:\Program Files (x86)`,
	`C:\$Recycle.Bin`, `C:\System Volume Information`, `C:\pagefile.sys`, `C:\hiberfil.sys`,
}

// Filter is a pure predicate over candidate paths, combining the built-in
// rules with user-supplied glob patterns.
type Filter struct {
	globExcludes []string
	isWindows    bool
}

// Option configures a Filter at construction time.
type Option func(*Filter)

// WithGlobPatterns adds user-defined case-insensitive glob patterns; a file
// or directory whose base name or full path matches one of them is
// excluded. Other components of the path are not matched individually.
func WithGlobPatterns(patterns []string) Option {
	return func(f *Filter) { f.globExcludes = append(f.globExcludes, patterns...) }
}

// WithWindowsPaths enables the Windows absolute-path-prefix exclusions,
// useful for tests that want deterministic cross-platform behavior.
func WithWindowsPaths(enabled bool) Option {
	return func(f *Filter) { f.isWindows = enabled }
}

// New builds a Filter from the built-in rule tables plus opts.
func New(opts ...Option) *Filter {
	f := &Filter{}
	for _, o := range opts {
		o(f)
	}
	return f
}

// IncludeDir reports whether a directory should be descended into. Callers
// should prune the entire subtree when this returns false.
func (f *Filter) IncludeDir(path string) bool {
	base := filepath.Base(path)
	if _, excluded := excludedDirNames[strings.ToLower(base)]; excluded {
		return false
	}
	if f.matchesGlob(base) || f.matchesGlob(path) {
		return false
	}
	if f.isWindows && hasWindowsSystemPrefix(path) {
		return false
	}
	return true
}

// Include reports whether a file path should be crawled.
func (f *Filter) Include(path string) bool {
	base := filepath.Base(path)
	lowerBase := strings.ToLower(base)

	if _, excluded := excludedFileNames[lowerBase]; excluded {
		return false
	}
	for _, prefix := range excludedFilePrefixes {
		if strings.HasPrefix(lowerBase, prefix) {
			return false
		}
	}

	ext := strings.ToLower(filepath.Ext(base))
	if _, excluded := excludedExtensions[ext]; excluded {
		return false
	}

	if f.isWindows && hasWindowsSystemPrefix(path) {
		return false
	}

	if f.matchesGlob(base) || f.matchesGlob(path) {
		return false
	}

	if !isValidName(base) {
		return false
	}

	_, isText := textExtensions[ext]
	_, isDoc := documentExtensions[ext]
	if !isText && !isDoc {
		return false
	}

	return true
}

func (f *Filter) matchesGlob(s string) bool {
	lower := strings.ToLower(s)
	for _, pattern := range f.globExcludes {
		if ok, _ := filepath.Match(strings.ToLower(pattern), lower); ok {
			return true
		}
	}
	return false
}

func hasWindowsSystemPrefix(path string) bool {
	for _, prefix := range windowsSystemPrefixes {
		if strings.HasPrefix(strings.ToLower(path), strings.ToLower(prefix)) {
			return true
		}
	}
	return false
}

// isValidName requires the first rune to be alphanumeric or a CJK
// character, rejecting dotfiles and control-prefixed names.
func isValidName(name string) bool {
	if name == "" {
		return false
	}
	r := []rune(name)[0]
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	return isCJK(r)
}

func isCJK(r rune) bool {
	switch {
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK Extension A
		return true
	case r >= 0xAC00 && r <= 0xD7A3: // Hangul syllables
		return true
	case r >= 0x3040 && r <= 0x30FF: // Hiragana + Katakana
		return true
	default:
		return false
	}
}
