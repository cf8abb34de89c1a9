package ingestion_engine

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"code.sajari.com/docconv"
	"github.com/kart-io/logger"

	"github.com/markdave123-py/salesbrain/internal/core"
)

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct{}

var _ core.DocumentExtractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor() *DocconvExtractor {
	return &DocconvExtractor{}
}

// ExtractText picks a converter from the filename extension. Plain text and
// markdown pass through untouched.
func (e *DocconvExtractor) ExtractText(data []byte, filename string) (*core.ExtractedText, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".pdf":
		body, meta, err := docconv.ConvertPDF(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &core.ExtractedText{Text: body, PageCount: pageCount(meta)}, nil
	case ".docx":
		body, _, err := docconv.ConvertDocx(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &core.ExtractedText{Text: body}, nil
	case ".doc":
		body, _, err := docconv.ConvertDoc(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		return &core.ExtractedText{Text: body}, nil
	case ".txt", ".md":
		return &core.ExtractedText{Text: string(data)}, nil
	default:
		return nil, &core.UnsupportedFileTypeError{Ext: ext}
	}
}

// Supported reports whether ExtractText can handle the file's extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".doc", ".txt", ".md":
		return true
	}
	return false
}

// pageCount reads the "Pages" entry pdfinfo reports.
func pageCount(meta map[string]string) *int {
	raw, ok := meta["Pages"]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		logger.Warnw("ignoring unreadable pdf page count", "value", raw)
		return nil
	}
	return &n
}
