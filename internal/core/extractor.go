package core

// ExtractedText represents the result of text extraction.
type ExtractedText struct {
	Text      string
	PageCount *int
}

// DocumentExtractor turns a raw file into linear text, dispatching on the
// filename extension.
type DocumentExtractor interface {
	ExtractText(data []byte, filename string) (*ExtractedText, error)
}
