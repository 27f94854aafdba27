package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeFTSTokenEscapesSpecialChars(t *testing.T) {
	assert.Equal(t, `foo\-bar\(baz\)`, escapeFTSToken(`foo-bar(baz)`))
	assert.Equal(t, `a\*b`, escapeFTSToken(`a*b`))
}

func TestBuildMatchQueryConjoinsTokens(t *testing.T) {
	q := buildMatchQuery([]string{"foo", "bar"})
	assert.Equal(t, `"foo" AND "bar"`, q)
}
