package index

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/resume-rag/internal/types"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func doc(id string, day int, text string, skills ...string) *types.ResumeDocument {
	return &types.ResumeDocument{
		ID:        id,
		Filename:  id + ".txt",
		Text:      text,
		Skills:    skills,
		CreatedAt: base.Add(time.Duration(day) * 24 * time.Hour),
	}
}

func newTestIndex(docs ...*types.ResumeDocument) *Index {
	ix := New(nil, DefaultWeights())
	for _, d := range docs {
		ix.Index(d)
	}
	return ix
}

func search(t *testing.T, ix *Index, q string, limit, offset int) *Page {
	t.Helper()
	page, err := ix.Search(ix.Snapshot(), ix.ParseQuery(q), limit, offset)
	require.NoError(t, err)
	return page
}

func ids(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Doc.ID
	}
	return out
}

func TestSearch_SkillQueryFindsDocument(t *testing.T) {
	ix := newTestIndex(
		doc("a", 1, "Built data pipelines.", "machine learning", "python"),
		doc("b", 2, "Frontend work with hooks.", "react"),
		doc("c", 3, "Wrote embedded firmware.", "c++"),
	)

	for _, tc := range []struct {
		query, id, skill string
	}{
		{"machine learning", "a", "machine learning"},
		{"python", "a", "python"},
		{"react", "b", "react"},
		{"ReactJS", "b", "react"},
		{"c++", "c", "c++"},
	} {
		t.Run(tc.query, func(t *testing.T) {
			page := search(t, ix, tc.query, 10, 0)
			require.NotEmpty(t, page.Hits)
			assert.Equal(t, tc.id, page.Hits[0].Doc.ID)
			assert.Contains(t, page.Hits[0].MatchedSkills, tc.skill)
		})
	}
}

func TestSearch_SkillOutranksBodyMention(t *testing.T) {
	ix := newTestIndex(
		doc("body", 5, "Some exposure to kubernetes at a previous job."),
		doc("skill", 1, "Platform engineer.", "kubernetes"),
	)
	page := search(t, ix, "kubernetes", 10, 0)
	assert.Equal(t, []string{"skill", "body"}, ids(page.Hits))
	assert.Greater(t, page.Hits[0].Raw, page.Hits[1].Raw)
	assert.Equal(t, page.Hits[0].Raw, page.MaxRaw)
}

func TestSearch_PhraseBonus(t *testing.T) {
	ix := newTestIndex(
		doc("apart", 2, "distributed teams and large systems"),
		doc("adjacent", 1, "designed distributed systems at scale"),
	)
	page := search(t, ix, "distributed systems", 10, 0)
	require.Len(t, page.Hits, 2)
	assert.Equal(t, "adjacent", page.Hits[0].Doc.ID)
}

func TestSearch_AliasesMatchAcrossSpellings(t *testing.T) {
	ix := newTestIndex(doc("a", 1, "Five years of Golang and K8s."))
	page := search(t, ix, "go kubernetes", 10, 0)
	assert.Equal(t, []string{"a"}, ids(page.Hits))
}

func TestSearch_TiesNewestFirstThenID(t *testing.T) {
	ix := newTestIndex(
		doc("b", 1, "rust"),
		doc("a", 1, "rust"),
		doc("c", 2, "rust"),
	)
	page := search(t, ix, "rust", 10, 0)
	assert.Equal(t, []string{"c", "a", "b"}, ids(page.Hits))
}

func TestSearch_EmptyQueryListsNewestFirst(t *testing.T) {
	ix := newTestIndex(doc("old", 1, "x"), doc("new", 3, "y"), doc("mid", 2, "z"))
	page := search(t, ix, "  ", 10, 0)
	assert.Equal(t, []string{"new", "mid", "old"}, ids(page.Hits))
	assert.Equal(t, 3, page.Total)
}

func TestSearch_NoMatch(t *testing.T) {
	ix := newTestIndex(doc("a", 1, "java"))
	page := search(t, ix, "haskell", 10, 0)
	assert.Empty(t, page.Hits)
	assert.Zero(t, page.Total)
}

func TestSearch_Pagination(t *testing.T) {
	ix := New(nil, DefaultWeights())
	for i := 0; i < 25; i++ {
		ix.Index(doc(fmt.Sprintf("d%02d", i), i, "golang engineer"))
	}

	first := search(t, ix, "go", 10, 0)
	second := search(t, ix, "go", 10, 10)
	last := search(t, ix, "go", 10, 20)
	beyond := search(t, ix, "go", 10, 40)

	assert.Equal(t, first.Total, second.Total)
	assert.Equal(t, 25, first.Total)
	assert.Len(t, first.Hits, 10)
	assert.Len(t, last.Hits, 5)
	assert.Empty(t, beyond.Hits)
	assert.Equal(t, 25, beyond.Total)
	assert.NotEqual(t, first.Hits[0].Doc.ID, second.Hits[0].Doc.ID)
}

func TestSearch_LimitDefaultsAndCap(t *testing.T) {
	ix := newTestIndex(doc("a", 1, "x"))
	assert.Equal(t, DefaultLimit, search(t, ix, "", 0, 0).Limit)
	assert.Equal(t, MaxLimit, search(t, ix, "", 1000, 0).Limit)
}

func TestSearch_NegativePaginationIsInvalid(t *testing.T) {
	ix := newTestIndex()
	_, err := ix.Search(ix.Snapshot(), ix.ParseQuery("go"), -1, 0)
	assert.True(t, types.IsInvalidArgument(err))
	_, err = ix.Search(ix.Snapshot(), ix.ParseQuery("go"), 10, -5)
	assert.True(t, types.IsInvalidArgument(err))
}

func TestIndex_ReindexReplacesPostings(t *testing.T) {
	ix := newTestIndex(doc("a", 1, "cobol mainframe", "cobol"))
	require.Len(t, search(t, ix, "cobol", 10, 0).Hits, 1)

	ix.Index(doc("a", 1, "modern rust services", "rust"))

	assert.Empty(t, search(t, ix, "cobol", 10, 0).Hits)
	assert.Equal(t, []string{"a"}, ids(search(t, ix, "rust", 10, 0).Hits))
	assert.Equal(t, 1, ix.Snapshot().Len())
	assert.Nil(t, ix.Snapshot().postings["cobol"])
}

func TestIndex_SnapshotIsImmutable(t *testing.T) {
	ix := newTestIndex(doc("a", 1, "scala"))
	before := ix.Snapshot()

	ix.Index(doc("b", 2, "scala"))
	ix.Remove("a")

	assert.Equal(t, 1, before.Len())
	assert.Len(t, before.postings["scala"], 1)
	_, ok := before.Doc("a")
	assert.True(t, ok)

	after := ix.Snapshot()
	assert.Equal(t, 1, after.Len())
	_, ok = after.Doc("a")
	assert.False(t, ok)
}

func TestIndex_Reset(t *testing.T) {
	ix := newTestIndex(doc("a", 1, "perl"))
	ix.Reset([]*types.ResumeDocument{doc("b", 1, "lua"), doc("c", 2, "lua")})

	assert.Empty(t, search(t, ix, "perl", 10, 0).Hits)
	assert.Equal(t, []string{"c", "b"}, ids(search(t, ix, "lua", 10, 0).Hits))
}

func TestParseQuestion_DropsFillers(t *testing.T) {
	ix := newTestIndex()
	assert.Equal(t, []string{"graphql"}, ix.ParseQuestion("Who knows GraphQL?").Terms)
	assert.True(t, ix.ParseQuestion("who has experience").Empty())
	assert.Equal(t, []string{"who", "knows"}, ix.ParseQuery("who knows").Terms)
}

func TestIndex_ConcurrentIndexAndSearch(t *testing.T) {
	ix := New(nil, DefaultWeights())
	const writers = 8
	const perWriter = 25

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				id := fmt.Sprintf("w%d-%d", w, i)
				ix.Index(doc(id, i, "elixir phoenix developer", "elixir"))
				// Same id from another goroutine to exercise per-id serialization.
				ix.Index(doc(fmt.Sprintf("shared-%d", i), i, "elixir", "elixir"))
			}
		}(w)
	}

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := ix.Snapshot()
				page, err := ix.Search(snap, ix.ParseQuery("elixir"), MaxLimit, 0)
				if !assert.NoError(t, err) {
					return
				}
				// Every document visible in the snapshot is fully indexed.
				assert.Equal(t, snap.Len(), page.Total)
			}
		}()
	}

	wg.Wait()
	close(stop)
	readers.Wait()

	assert.Equal(t, writers*perWriter+perWriter, ix.Snapshot().Len())
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	var k keyedMutex
	unlock := k.Lock("a")
	unlockB := k.Lock("b")
	assert.Len(t, k.locks, 2)
	unlock()
	unlockB()
	assert.Empty(t, k.locks)
}
