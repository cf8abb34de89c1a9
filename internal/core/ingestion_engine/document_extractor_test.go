package ingestion_engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/salesbrain/internal/core"
)

func TestExtractText_PlainTextPassesThrough(t *testing.T) {
	e := NewDocconvExtractor()

	for _, name := range []string{"notes.txt", "README.MD"} {
		got, err := e.ExtractText([]byte("# Title\nbody ünïcode"), name)
		require.NoError(t, err)
		assert.Equal(t, "# Title\nbody ünïcode", got.Text)
		assert.Nil(t, got.PageCount)
	}
}

func TestExtractText_UnsupportedExtension(t *testing.T) {
	_, err := NewDocconvExtractor().ExtractText([]byte("x"), "deck.pptx")

	var unsupported *core.UnsupportedFileTypeError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, ".pptx", unsupported.Ext)
}

func TestPageCount(t *testing.T) {
	n := pageCount(map[string]string{"Pages": " 12 "})
	require.NotNil(t, n)
	assert.Equal(t, 12, *n)

	assert.Nil(t, pageCount(map[string]string{}))
	assert.Nil(t, pageCount(map[string]string{"Pages": "many"}))
}

func TestSupported(t *testing.T) {
	for _, name := range []string{"a.pdf", "b.DOCX", "c.doc", "d.txt", "e.md"} {
		assert.True(t, Supported(name), name)
	}
	for _, name := range []string{"deck.pptx", "sheet.xlsx", "noext"} {
		assert.False(t, Supported(name), name)
	}
}
