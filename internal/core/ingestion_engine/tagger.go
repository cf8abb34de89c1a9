package ingestion_engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/markdave123-py/salesbrain/internal/core"
)

const (
	maxTags        = 5
	tagSampleRunes = 6000
)

const taggingPrompt = `You classify sales and product documentation.
Return a JSON array of at most 5 short lowercase tags describing the document
(for example "pricing", "security", "onboarding", "competitive", "integration").
Return only the JSON array.`

// Tagger derives classification tags for a document with an auxiliary model call.
type Tagger struct {
	llm core.LLMProvider
}

func NewTagger(llm core.LLMProvider) *Tagger {
	return &Tagger{llm: llm}
}

// Tag looks at the leading part of the document text only.
func (t *Tagger) Tag(ctx context.Context, filename, text string) ([]string, error) {
	sample := []rune(text)
	if len(sample) > tagSampleRunes {
		sample = sample[:tagSampleRunes]
	}
	out, err := t.llm.Generate(ctx, taggingPrompt, "Filename: "+filename+"\n\n"+string(sample))
	if err != nil {
		return nil, err
	}
	return parseTags(out), nil
}

// parseTags accepts a JSON array, optionally fenced, or a comma separated list.
func parseTags(raw string) []string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var candidates []string
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		candidates = strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' })
	}

	seen := make(map[string]bool)
	tags := make([]string, 0, maxTags)
	for _, c := range candidates {
		tag := strings.ToLower(strings.Trim(strings.TrimSpace(c), `"'-*`))
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
