package extraction

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextExtractorDecodesUTF8(t *testing.T) {
	path := writeTempFile(t, "a.txt", "hello world")
	e := NewTextExtractor()
	require.True(t, e.CanExtract(path))

	result, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello world", result.Text)
}

func TestCSVExtractorTabJoinsCells(t *testing.T) {
	path := writeTempFile(t, "a.csv", "a,b,c\n1,2,3\n")
	e := NewCSVExtractor()
	result, err := e.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, result.Text, "a\tb\tc")
	assert.Contains(t, result.Text, "1\t2\t3")
}

func TestRegistryDispatchesByExtension(t *testing.T) {
	reg := DefaultRegistry()

	assert.Equal(t, "text", reg.Find("/tmp/a.txt").Name())
	assert.Equal(t, "csv", reg.Find("/tmp/a.csv").Name())
	assert.Equal(t, "docx", reg.Find("/tmp/a.docx").Name())
	assert.Equal(t, "xlsx", reg.Find("/tmp/a.xlsx").Name())
	assert.Equal(t, "pptx", reg.Find("/tmp/a.pptx").Name())
	assert.Equal(t, "pdf", reg.Find("/tmp/a.pdf").Name())
	assert.Equal(t, "legacy-office", reg.Find("/tmp/a.doc").Name())
	assert.Equal(t, "legacy-office", reg.Find("/tmp/a.hwp").Name())
	assert.Nil(t, reg.Find("/tmp/a.exe"))
}

func TestDispatcherTruncatesToMaxScalarValues(t *testing.T) {
	big := make([]byte, 0, 150_000)
	for i := 0; i < 150_000; i++ {
		big = append(big, 'a')
	}
	path := writeTempFile(t, "big.txt", string(big))

	d := NewDispatcher(DefaultRegistry(), 5*time.Second, 2*time.Second)
	result, err := d.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 100_000, result.Chars)
}

func TestDispatcherUnsupportedFormat(t *testing.T) {
	path := writeTempFile(t, "a.bin", "whatever")
	d := NewDispatcher(DefaultRegistry(), 5*time.Second, 2*time.Second)
	_, err := d.Extract(context.Background(), path)
	require.Error(t, err)
}

func TestRunWithDeadlineTimesOut(t *testing.T) {
	slow := func(ctx context.Context) (ExtractedContent, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return ExtractedContent{Text: "done"}, nil
		case <-ctx.Done():
			return ExtractedContent{}, ctx.Err()
		}
	}
	_, err := runWithDeadline(context.Background(), 10*time.Millisecond, slow)
	require.Error(t, err)
}
