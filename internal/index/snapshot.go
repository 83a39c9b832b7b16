package index

import (
	"sort"
	"time"

	"github.com/jonathan/resume-rag/internal/types"
)

// entry is the analyzed form of one document.
type entry struct {
	doc *types.ResumeDocument

	// canonical body tokens in text order
	tokens []string
	// body term frequency
	tf map[string]int
	// adjacent body token pairs
	bigrams map[[2]string]struct{}
	// canonical tokens of each document skill, parallel to doc.Skills
	skillTokens [][]string
	skillTokenSet map[string]struct{}
	// every distinct token posted for this document
	posted map[string]int
}

// Snapshot is an immutable view of the index. Every read of one request
// goes through the same Snapshot, so documents indexed meanwhile are either
// fully visible or not at all.
type Snapshot struct {
	docs     map[string]*entry
	postings map[string]map[string]int
	// document ids, newest first then id ascending
	order []string
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		docs:     make(map[string]*entry),
		postings: make(map[string]map[string]int),
	}
}

// Len returns the number of indexed documents.
func (s *Snapshot) Len() int {
	return len(s.docs)
}

// Doc returns the indexed version of a document.
func (s *Snapshot) Doc(id string) (*types.ResumeDocument, bool) {
	e, ok := s.docs[id]
	if !ok {
		return nil, false
	}
	return e.doc, true
}

// Docs returns every document, newest first.
func (s *Snapshot) Docs() []*types.ResumeDocument {
	out := make([]*types.ResumeDocument, len(s.order))
	for i, id := range s.order {
		out[i] = s.docs[id].doc
	}
	return out
}

// newerFirst orders documents by createdAt descending, then id ascending.
func newerFirst(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.After(bAt)
	}
	return aID < bID
}

// builder derives a new Snapshot from a base one. Posting lists are
// shared with the base until first written.
type builder struct {
	base  *Snapshot
	next  *Snapshot
	owned map[string]bool
}

func newBuilder(base *Snapshot) *builder {
	next := &Snapshot{
		docs:     make(map[string]*entry, len(base.docs)+1),
		postings: make(map[string]map[string]int, len(base.postings)),
		order:    append(make([]string, 0, len(base.order)+1), base.order...),
	}
	for k, v := range base.docs {
		next.docs[k] = v
	}
	for k, v := range base.postings {
		next.postings[k] = v
	}
	return &builder{base: base, next: next, owned: make(map[string]bool)}
}

// list returns a posting list for tok that the builder may modify.
func (b *builder) list(tok string) map[string]int {
	if b.owned[tok] {
		return b.next.postings[tok]
	}
	cur := b.next.postings[tok]
	list := make(map[string]int, len(cur)+1)
	for k, v := range cur {
		list[k] = v
	}
	b.next.postings[tok] = list
	b.owned[tok] = true
	return list
}

func (b *builder) remove(id string) {
	old, ok := b.next.docs[id]
	if !ok {
		return
	}
	delete(b.next.docs, id)
	for tok := range old.posted {
		list := b.list(tok)
		delete(list, id)
		if len(list) == 0 {
			delete(b.next.postings, tok)
			delete(b.owned, tok)
		}
	}
	for i, other := range b.next.order {
		if other == id {
			b.next.order = append(b.next.order[:i], b.next.order[i+1:]...)
			break
		}
	}
}

func (b *builder) add(e *entry) {
	id := e.doc.ID
	b.remove(id)

	b.next.docs[id] = e
	for tok, n := range e.posted {
		b.list(tok)[id] = n
	}

	order := b.next.order
	pos := sort.Search(len(order), func(i int) bool {
		other := b.next.docs[order[i]].doc
		return !newerFirst(other.ID, other.CreatedAt, id, e.doc.CreatedAt)
	})
	order = append(order, "")
	copy(order[pos+1:], order[pos:])
	order[pos] = id
	b.next.order = order
}
