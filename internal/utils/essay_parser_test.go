package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTextFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay.txt")
	content := "one two three four five six seven eight"
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// 截断到前N个词
	text, err := ExtractTextFile(path, 5)
	assert.NoError(t, err)
	assert.Equal(t, "one two three four five", text)

	// 词数不足时返回全文
	text, err = ExtractTextFile(path, 100)
	assert.NoError(t, err)
	assert.Equal(t, content, text)
}

func TestExtractTextFile_NormalizesWhitespace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "essay.txt")
	assert.NoError(t, os.WriteFile(path, []byte("one\n\ntwo\t three  "), 0o644))

	text, err := ExtractTextFile(path, 10)
	assert.NoError(t, err)
	assert.Equal(t, "one two three", text)
	assert.False(t, strings.Contains(text, "\n"))
}

func TestExtractTextFile_Missing(t *testing.T) {
	_, err := ExtractTextFile(filepath.Join(t.TempDir(), "nonexistent.txt"), 5)
	assert.Error(t, err)
}

func TestExtractFirstNWords_InvalidPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	assert.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	_, err := ExtractFirstNWords(path, 10)
	assert.Error(t, err)
}
