// Package skills normalizes skill names and extracts skills from resume text.
package skills

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/jonathan/resume-rag/internal/parsing"
)

//go:embed taxonomy.yaml
var defaultTaxonomyYAML []byte

// Entry is one canonical skill and its alternative spellings.
type Entry struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

type taxonomyFile struct {
	Skills []Entry `yaml:"skills"`
}

// Taxonomy resolves skill spellings to canonical names.
type Taxonomy struct {
	// canonical name by any spelling (canonical names map to themselves)
	lookup map[string]string
	// single-token spelling -> single-token canonical, used while indexing
	tokenAliases map[string]string
	// longest known skill in tokens
	maxWords int
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// clean lowercases s, trims list punctuation and collapses whitespace.
func clean(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, " \t.,;:*•·-")
	return whitespaceRe.ReplaceAllString(s, " ")
}

// ParseTaxonomy builds a Taxonomy from YAML.
func ParseTaxonomy(data []byte) (*Taxonomy, error) {
	var file taxonomyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse skill taxonomy: %w", err)
	}

	t := &Taxonomy{
		lookup:       make(map[string]string),
		tokenAliases: make(map[string]string),
		maxWords:     1,
	}
	for _, e := range file.Skills {
		name := clean(e.Name)
		if name == "" {
			return nil, fmt.Errorf("skill taxonomy entry with empty name")
		}
		t.add(name, name)
		for _, alias := range e.Aliases {
			t.add(clean(alias), name)
		}
	}
	return t, nil
}

func (t *Taxonomy) add(spelling, canonical string) {
	if spelling == "" {
		return
	}
	t.lookup[spelling] = canonical

	words := len(strings.Fields(spelling))
	if words > t.maxWords {
		t.maxWords = words
	}

	from := parsing.Tokenize(spelling)
	to := parsing.Tokenize(canonical)
	if len(from) == 1 && len(to) == 1 && from[0] != to[0] {
		t.tokenAliases[from[0]] = to[0]
	}
}

// Normalize returns the canonical form of a skill name: lowercased, trimmed,
// whitespace collapsed and aliases resolved. Unknown skills keep their
// cleaned spelling.
func (t *Taxonomy) Normalize(skill string) string {
	c := clean(skill)
	if canonical, ok := t.lookup[c]; ok {
		return canonical
	}
	return c
}

// Known reports whether the cleaned spelling is a taxonomy skill or alias.
func (t *Taxonomy) Known(spelling string) (string, bool) {
	canonical, ok := t.lookup[clean(spelling)]
	return canonical, ok
}

// CanonicalToken maps a single index token onto its canonical token
// ("golang" -> "go", "k8s" -> "kubernetes").
func (t *Taxonomy) CanonicalToken(tok string) string {
	if c, ok := t.tokenAliases[tok]; ok {
		return c
	}
	return tok
}

// Tokens returns the canonical index tokens of a normalized skill.
func (t *Taxonomy) Tokens(skill string) []string {
	toks := parsing.Tokenize(skill)
	for i, tok := range toks {
		toks[i] = t.CanonicalToken(tok)
	}
	return toks
}

// MaxWords is the length in words of the longest known spelling.
func (t *Taxonomy) MaxWords() int {
	return t.maxWords
}

var (
	defaultOnce     sync.Once
	defaultTaxonomy *Taxonomy
)

// Default returns the embedded taxonomy.
func Default() *Taxonomy {
	defaultOnce.Do(func() {
		t, err := ParseTaxonomy(defaultTaxonomyYAML)
		if err != nil {
			panic(fmt.Sprintf("embedded skill taxonomy is invalid: %v", err))
		}
		defaultTaxonomy = t
	})
	return defaultTaxonomy
}
