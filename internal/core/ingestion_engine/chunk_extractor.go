package ingestion_engine

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/markdave123-py/salesbrain/internal/models"
)

const (
	// ChunkSize is the token budget of one chunk.
	ChunkSize = 512
	// ChunkOverlap is the number of tokens shared by consecutive windows of a section.
	ChunkOverlap = 128

	defaultSectionTitle = "Introduction"
)

var headingPrefix = regexp.MustCompile(`^#+\s*`)

// TextChunk is one chunker output before embedding.
type TextChunk struct {
	Content  string
	Metadata models.ChunkMetadata
}

type section struct {
	title   string
	content string
}

// ChunkText splits text into titled sections and slides a token-budgeted
// window over sections that exceed ChunkSize. Output is deterministic and
// every chunk carries the final chunk count.
func ChunkText(text, filename string, pageCount *int) []TextChunk {
	var out []TextChunk
	for _, sec := range splitIntoSections(text) {
		for _, body := range chunkSection(sec) {
			out = append(out, TextChunk{
				Content: "[" + sec.title + "]\n" + body,
				Metadata: models.ChunkMetadata{
					FileName:     filename,
					SectionTitle: sec.title,
					ChunkIndex:   len(out),
				},
			})
		}
	}

	// Single-page documents pin every chunk to page 1; otherwise the page is unknown.
	var page *int
	if pageCount != nil && *pageCount == 1 {
		one := 1
		page = &one
	}
	for i := range out {
		out[i].Metadata.TotalChunks = len(out)
		out[i].Metadata.PageNumber = page
	}
	return out
}

// isHeading recognises markdown headings and short all-caps lines.
func isHeading(trimmed string) bool {
	if strings.HasPrefix(trimmed, "#") {
		return true
	}
	n := len([]rune(trimmed))
	if n <= 3 || n >= 80 {
		return false
	}
	// caseless scripts never count as all-caps
	return trimmed == strings.ToUpper(trimmed) && strings.IndexFunc(trimmed, unicode.IsUpper) >= 0
}

func splitIntoSections(text string) []section {
	var (
		sections []section
		title    = defaultSectionTitle
		lines    []string
	)
	flush := func() {
		if len(lines) == 0 {
			return
		}
		content := strings.TrimSpace(strings.Join(lines, "\n"))
		if content != "" {
			sections = append(sections, section{title: title, content: content})
		}
		lines = lines[:0]
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if isHeading(trimmed) {
			flush()
			title = headingPrefix.ReplaceAllString(trimmed, "")
			continue
		}
		lines = append(lines, line)
	}
	flush()
	return sections
}

// chunkSection returns the bodies of a section's chunks, without the title prefix.
func chunkSection(sec section) []string {
	tokens := approxTokens(sec.content)
	if tokens <= ChunkSize {
		return []string{sec.content}
	}

	words := strings.Fields(sec.content)
	tokensPerWord := float64(tokens) / float64(max(len(words), 1))
	wordsPerChunk := max(int(float64(ChunkSize)/tokensPerWord), 1)
	overlapWords := min(int(float64(ChunkOverlap)/tokensPerWord), wordsPerChunk-1)

	var out []string
	for start := 0; start < len(words); {
		end := min(start+wordsPerChunk, len(words))
		out = append(out, strings.Join(words[start:end], " "))
		if end >= len(words) {
			break
		}
		start = max(end-overlapWords, 0)
	}
	return out
}

// approxTokens is a cheap token estimator (~4 chars ≈ 1 token).
func approxTokens(s string) int {
	n := len([]rune(s))
	if n <= 0 {
		return 0
	}
	return (n + 3) / 4
}
