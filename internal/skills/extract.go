package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/llm"
	"github.com/jonathan/resume-rag/internal/parsing"
	"github.com/jonathan/resume-rag/internal/types"
)

// Extractor finds the skills a resume lists or demonstrates.
type Extractor interface {
	Extract(ctx context.Context, text string) ([]string, error)
}

// DictionaryExtractor matches text against the taxonomy and reads the
// items of any "Skills" section verbatim.
type DictionaryExtractor struct {
	Taxonomy *Taxonomy
}

// NewDictionaryExtractor creates a DictionaryExtractor over t, or over the
// embedded taxonomy when t is nil.
func NewDictionaryExtractor(t *Taxonomy) *DictionaryExtractor {
	if t == nil {
		t = Default()
	}
	return &DictionaryExtractor{Taxonomy: t}
}

var (
	skillsHeaderRe = regexp.MustCompile(`(?i)^\s*(?:technical\s+|core\s+|key\s+)?(?:skills|technologies|tech\s+stack|tools)(?:\s*[:\-]\s*(.*?)|\s*)$`)
	itemSplitRe    = regexp.MustCompile(`[,;|•·]`)
)

const (
	maxSectionItemWords = 4
	maxSectionItemChars = 40
)

// Extract returns the normalized skills found in text, sorted.
func (e *DictionaryExtractor) Extract(_ context.Context, text string) ([]string, error) {
	found := e.fromDictionary(text)
	found = append(found, e.fromSkillsSection(text)...)
	return NormalizeSet(e.Taxonomy, found), nil
}

// fromDictionary slides an n-gram window over the tokens and keeps the
// longest known spelling at each position.
func (e *DictionaryExtractor) fromDictionary(text string) []string {
	toks := parsing.Tokenize(text)
	maxN := e.Taxonomy.MaxWords()

	var found []string
	for i := 0; i < len(toks); {
		matched := 0
		for n := min(maxN, len(toks)-i); n >= 1; n-- {
			gram := strings.Join(toks[i:i+n], " ")
			canonical, ok := e.Taxonomy.Known(gram)
			if !ok {
				continue
			}
			// Single letters ("c", "r") are too ambiguous in prose.
			if n == 1 && len([]rune(gram)) == 1 {
				continue
			}
			found = append(found, canonical)
			matched = n
			break
		}
		if matched == 0 {
			matched = 1
		}
		i += matched
	}
	return found
}

// fromSkillsSection reads list items after a "Skills:" style header until
// the next blank line.
func (e *DictionaryExtractor) fromSkillsSection(text string) []string {
	var found []string
	inSection := false
	for _, line := range strings.Split(text, "\n") {
		if m := skillsHeaderRe.FindStringSubmatch(line); m != nil && len(strings.TrimSpace(line)) < 120 {
			inSection = true
			found = append(found, sectionItems(m[1])...)
			continue
		}
		if !inSection {
			continue
		}
		if strings.TrimSpace(line) == "" || looksLikeHeader(line) {
			inSection = false
			continue
		}
		found = append(found, sectionItems(line)...)
	}
	return found
}

func sectionItems(line string) []string {
	var items []string
	for _, raw := range itemSplitRe.Split(line, -1) {
		item := clean(raw)
		if item == "" || len(item) > maxSectionItemChars || len(strings.Fields(item)) > maxSectionItemWords {
			continue
		}
		if !strings.ContainsFunc(item, unicode.IsLetter) {
			continue
		}
		items = append(items, item)
	}
	return items
}

// looksLikeHeader reports whether a line is a short all-caps or colon
// terminated title such as "EXPERIENCE" or "Education:".
func looksLikeHeader(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" || len(s) > 40 {
		return false
	}
	if strings.HasSuffix(s, ":") {
		return true
	}
	return strings.ToUpper(s) == s && strings.ContainsFunc(s, unicode.IsLetter)
}

// LLMExtractor asks a generative model for the skills in a resume.
type LLMExtractor struct {
	client   llm.Client
	taxonomy *Taxonomy
}

// NewLLMExtractor creates an LLMExtractor.
func NewLLMExtractor(client llm.Client, t *Taxonomy) *LLMExtractor {
	if t == nil {
		t = Default()
	}
	return &LLMExtractor{client: client, taxonomy: t}
}

// maxPromptRunes keeps the prompt well inside the lite model's context.
const maxPromptRunes = 20000

// Extract returns the normalized skills the model reports.
func (e *LLMExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	prompt := llm.BuildExtractionPrompt(llm.ResumeSkillsSchema(), types.Preview(text, maxPromptRunes))

	raw, err := e.client.GenerateJSON(ctx, prompt, llm.TierLite)
	if err != nil {
		return nil, fmt.Errorf("LLM call failed: %w", err)
	}

	var out struct {
		Skills []string `json:"skills"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response: %w", err)
	}
	return NormalizeSet(e.taxonomy, out.Skills), nil
}

// CombinedExtractor unions a primary extractor with optional enrichers. An
// enricher failure is logged and skipped; the primary result always stands.
type CombinedExtractor struct {
	primary   Extractor
	enrichers []Extractor
	taxonomy  *Taxonomy
	logger    *zap.Logger
}

// NewCombinedExtractor creates a CombinedExtractor.
func NewCombinedExtractor(logger *zap.Logger, t *Taxonomy, primary Extractor, enrichers ...Extractor) *CombinedExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if t == nil {
		t = Default()
	}
	return &CombinedExtractor{primary: primary, enrichers: enrichers, taxonomy: t, logger: logger}
}

// Extract runs every extractor and returns the sorted union.
func (c *CombinedExtractor) Extract(ctx context.Context, text string) ([]string, error) {
	all, err := c.primary.Extract(ctx, text)
	if err != nil {
		return nil, err
	}
	for _, e := range c.enrichers {
		extra, err := e.Extract(ctx, text)
		if err != nil {
			c.logger.Warn("skill enrichment failed", zap.Error(err))
			continue
		}
		all = append(all, extra...)
	}
	return NormalizeSet(c.taxonomy, all), nil
}
