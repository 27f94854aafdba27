package exclusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIncludeDirExcludesKnownNames(t *testing.T) {
	f := New()
	assert.False(t, f.IncludeDir("/home/user/project/.git"))
	assert.False(t, f.IncludeDir("/home/user/project/node_modules"))
	assert.True(t, f.IncludeDir("/home/user/project/src"))
}

func TestIncludeRejectsExcludedFilenames(t *testing.T) {
	f := New()
	assert.False(t, f.Include("/home/user/desktop.ini"))
	assert.False(t, f.Include("/home/user/Thumbs.db"))
	assert.False(t, f.Include("/home/user/.DS_Store"))
}

func TestIncludeRejectsOfficeTransientFiles(t *testing.T) {
	f := New()
	assert.False(t, f.Include("/home/user/~$report.docx"))
}

func TestIncludeRejectsBinaryExtensions(t *testing.T) {
	f := New()
	assert.False(t, f.Include("/home/user/app.exe"))
	assert.False(t, f.Include("/home/user/photo.png"))
}

func TestIncludeAcceptsTextAndDocumentExtensions(t *testing.T) {
	f := New()
	assert.True(t, f.Include("/home/user/notes.txt"))
	assert.True(t, f.Include("/home/user/report.docx"))
	assert.True(t, f.Include("/home/user/data.csv"))
}

func TestIncludeRejectsUnknownExtensions(t *testing.T) {
	f := New()
	assert.False(t, f.Include("/home/user/archive.dat"))
}

func TestIncludeRejectsUserGlobPattern(t *testing.T) {
	f := New(WithGlobPatterns([]string{"*draft*"}))
	assert.False(t, f.Include("/home/user/draft-notes.txt"))
	assert.True(t, f.Include("/home/user/final-notes.txt"))
}

func TestIncludeRejectsInvalidFirstChar(t *testing.T) {
	f := New()
	assert.False(t, f.Include("/home/user/.hidden.txt"))
}

func TestIncludeAcceptsCJKNames(t *testing.T) {
	f := New()
	assert.True(t, f.Include("/home/user/보고서.docx"))
}
