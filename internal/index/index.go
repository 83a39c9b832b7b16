// Package index implements the lexical inverted index over resume text and
// skills. Readers work on immutable snapshots; writers publish a new
// snapshot per indexed document.
package index

import (
	"math"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jonathan/resume-rag/internal/parsing"
	"github.com/jonathan/resume-rag/internal/skills"
	"github.com/jonathan/resume-rag/internal/types"
)

// Weights are the relative contributions of each relevance signal. Skill
// signals are weighted above body text.
type Weights struct {
	Body         float64
	SkillExact   float64
	SkillPartial float64
	Phrase       float64
}

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() Weights {
	return Weights{
		Body:         1.0,
		SkillExact:   3.0,
		SkillPartial: 1.5,
		Phrase:       0.5,
	}
}

const (
	// DefaultLimit is the page size used when a search asks for zero items.
	DefaultLimit = 20
	// MaxLimit caps a single search page.
	MaxLimit = 100
)

// Index is safe for concurrent use.
type Index struct {
	taxonomy *skills.Taxonomy
	weights  Weights

	current   atomic.Pointer[Snapshot]
	publishMu sync.Mutex
	keys      keyedMutex
}

// New creates an empty index. A nil taxonomy selects the embedded one.
func New(taxonomy *skills.Taxonomy, weights Weights) *Index {
	if taxonomy == nil {
		taxonomy = skills.Default()
	}
	ix := &Index{taxonomy: taxonomy, weights: weights}
	ix.current.Store(emptySnapshot())
	return ix
}

// Snapshot returns the current read view.
func (ix *Index) Snapshot() *Snapshot {
	return ix.current.Load()
}

// Index adds doc or replaces the postings of an already indexed document
// with the same id. Calls for the same id are serialized; analysis of
// distinct ids runs in parallel.
func (ix *Index) Index(doc *types.ResumeDocument) {
	unlock := ix.keys.Lock(doc.ID)
	defer unlock()

	e := ix.analyze(doc)

	ix.publishMu.Lock()
	defer ix.publishMu.Unlock()
	b := newBuilder(ix.current.Load())
	b.add(e)
	ix.current.Store(b.next)
}

// Remove drops a document from the index. Unknown ids are ignored.
func (ix *Index) Remove(id string) {
	unlock := ix.keys.Lock(id)
	defer unlock()

	ix.publishMu.Lock()
	defer ix.publishMu.Unlock()
	cur := ix.current.Load()
	if _, ok := cur.docs[id]; !ok {
		return
	}
	b := newBuilder(cur)
	b.remove(id)
	ix.current.Store(b.next)
}

// Reset replaces the whole index with docs in one publication.
func (ix *Index) Reset(docs []*types.ResumeDocument) {
	entries := make([]*entry, len(docs))
	for i, d := range docs {
		entries[i] = ix.analyze(d)
	}

	ix.publishMu.Lock()
	defer ix.publishMu.Unlock()
	b := newBuilder(emptySnapshot())
	for _, e := range entries {
		b.add(e)
	}
	ix.current.Store(b.next)
}

// analyze tokenizes a document without touching shared state.
func (ix *Index) analyze(doc *types.ResumeDocument) *entry {
	e := &entry{
		doc:           doc,
		tf:            make(map[string]int),
		bigrams:       make(map[[2]string]struct{}),
		skillTokenSet: make(map[string]struct{}),
		posted:        make(map[string]int),
	}

	for _, tok := range parsing.TokenizeWithOffsets(doc.Text) {
		t := ix.taxonomy.CanonicalToken(tok.Text)
		if n := len(e.tokens); n > 0 {
			e.bigrams[[2]string{e.tokens[n-1], t}] = struct{}{}
		}
		e.tokens = append(e.tokens, t)
		e.tf[t]++
		e.posted[t]++
	}

	e.skillTokens = make([][]string, len(doc.Skills))
	for i, skill := range doc.Skills {
		toks := ix.taxonomy.Tokens(skill)
		e.skillTokens[i] = toks
		for _, t := range toks {
			e.skillTokenSet[t] = struct{}{}
			e.posted[t]++
		}
	}
	return e
}

// Query is a tokenized search request.
type Query struct {
	// canonical terms in query order, duplicates kept
	Terms []string
}

// Empty reports whether the query has no terms.
func (q Query) Empty() bool {
	return len(q.Terms) == 0
}

// ParseQuery tokenizes text the same way documents are tokenized and drops
// stop words. If that leaves nothing, the unfiltered tokens are used so a
// query made only of common words still matches literally.
func (ix *Index) ParseQuery(text string) Query {
	terms := parsing.QueryTerms(text, false)
	if len(terms) == 0 {
		terms = parsing.Tokenize(text)
	}
	return Query{Terms: ix.canonical(terms)}
}

// ParseQuestion tokenizes a natural-language question, dropping stop words
// and question framing such as "who knows". It never falls back to the
// dropped words.
func (ix *Index) ParseQuestion(text string) Query {
	return Query{Terms: ix.canonical(parsing.QueryTerms(text, true))}
}

func (ix *Index) canonical(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = ix.taxonomy.CanonicalToken(t)
	}
	return out
}

// Hit is one scored document.
type Hit struct {
	Doc *types.ResumeDocument
	Raw float64
	// document skills hit exactly or partially, in document order
	MatchedSkills []string
	// query terms and matched skills to highlight in the body
	Terms []string
}

// Score returns every document with a positive raw relevance for q, best
// first. Ties are broken newest first, then by id.
func (ix *Index) Score(s *Snapshot, q Query) []Hit {
	if q.Empty() {
		return nil
	}

	uniq := make([]string, 0, len(q.Terms))
	seen := make(map[string]bool, len(q.Terms))
	candidates := make(map[string]struct{})
	for _, t := range q.Terms {
		if seen[t] {
			continue
		}
		seen[t] = true
		uniq = append(uniq, t)
		for id := range s.postings[t] {
			candidates[id] = struct{}{}
		}
	}

	hits := make([]Hit, 0, len(candidates))
	for id := range candidates {
		if h, ok := ix.scoreEntry(s.docs[id], q.Terms, uniq); ok {
			hits = append(hits, h)
		}
	}
	sortHits(hits)
	return hits
}

func (ix *Index) scoreEntry(e *entry, seq, uniq []string) (Hit, bool) {
	w := ix.weights
	h := Hit{Doc: e.doc}

	for _, t := range uniq {
		if tf := e.tf[t]; tf > 0 {
			h.Raw += w.Body * math.Log1p(float64(tf))
			h.Terms = append(h.Terms, t)
		}
		if _, ok := e.skillTokenSet[t]; ok {
			h.Raw += w.SkillPartial
		}
	}

	for i, toks := range e.skillTokens {
		switch {
		case containsRun(seq, toks):
			h.Raw += w.SkillExact
		case !sharesToken(uniq, toks):
			continue
		}
		h.MatchedSkills = append(h.MatchedSkills, e.doc.Skills[i])
		if len(toks) > 1 {
			h.Terms = append(h.Terms, strings.Join(toks, " "))
		}
	}

	for i := 0; i+1 < len(seq); i++ {
		if seq[i] == seq[i+1] {
			continue
		}
		if _, ok := e.bigrams[[2]string{seq[i], seq[i+1]}]; ok {
			h.Raw += w.Phrase
		}
	}

	return h, h.Raw > 0
}

// containsRun reports whether needle occurs contiguously in hay.
func containsRun(hay, needle []string) bool {
	if len(needle) == 0 || len(needle) > len(hay) {
		return false
	}
outer:
	for i := 0; i+len(needle) <= len(hay); i++ {
		for j := range needle {
			if hay[i+j] != needle[j] {
				continue outer
			}
		}
		return true
	}
	return false
}

func sharesToken(terms, toks []string) bool {
	for _, t := range toks {
		for _, q := range terms {
			if t == q {
				return true
			}
		}
	}
	return false
}

func sortHits(hits []Hit) {
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Raw != hits[j].Raw {
			return hits[i].Raw > hits[j].Raw
		}
		a, b := hits[i].Doc, hits[j].Doc
		return newerFirst(a.ID, a.CreatedAt, b.ID, b.CreatedAt)
	})
}

// Page is one page of search hits plus the unpaginated total.
type Page struct {
	Hits   []Hit
	Total  int
	Limit  int
	Offset int
	// best raw score over all hits, not just this page
	MaxRaw float64
}

// Search scores q against s and returns the requested page. An empty query
// lists every document newest first with zero scores.
func (ix *Index) Search(s *Snapshot, q Query, limit, offset int) (*Page, error) {
	if limit < 0 {
		return nil, types.NewInvalidArgument("limit", "must not be negative, got %d", limit)
	}
	if offset < 0 {
		return nil, types.NewInvalidArgument("offset", "must not be negative, got %d", offset)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	var hits []Hit
	if q.Empty() {
		hits = make([]Hit, 0, len(s.order))
		for _, id := range s.order {
			hits = append(hits, Hit{Doc: s.docs[id].doc})
		}
	} else {
		hits = ix.Score(s, q)
	}

	page := &Page{Total: len(hits), Limit: limit, Offset: offset}
	if len(hits) > 0 {
		page.MaxRaw = hits[0].Raw
	}
	if offset < len(hits) {
		end := min(offset+limit, len(hits))
		page.Hits = hits[offset:end]
	}
	return page, nil
}
