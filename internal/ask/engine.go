// Package ask answers natural-language questions about the resume corpus
// with ranked evidence snippets and records every question asked.
package ask

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/history"
	"github.com/jonathan/resume-rag/internal/index"
	"github.com/jonathan/resume-rag/internal/ranking"
	"github.com/jonathan/resume-rag/internal/skills"
	"github.com/jonathan/resume-rag/internal/types"
)

const (
	// DefaultK is used when an ask does not say how many answers it wants.
	DefaultK = 5
	// MaxK caps the answers of one ask.
	MaxK = 20
)

// ClampK validates a requested answer count: negative is invalid, zero
// selects DefaultK and anything above MaxK is capped.
func ClampK(k int) (int, error) {
	switch {
	case k < 0:
		return 0, types.NewInvalidArgument("k", "must not be negative, got %d", k)
	case k == 0:
		return DefaultK, nil
	case k > MaxK:
		return MaxK, nil
	}
	return k, nil
}

// Engine retrieves evidence for questions.
type Engine struct {
	index    *index.Index
	log      history.Log
	taxonomy *skills.Taxonomy
	window   int
	logger   *zap.Logger
	now      func() time.Time
}

// New creates an Engine.
func New(ix *index.Index, log history.Log, taxonomy *skills.Taxonomy, window int, logger *zap.Logger) *Engine {
	if taxonomy == nil {
		taxonomy = skills.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if window <= 0 {
		window = ranking.DefaultWindow
	}
	return &Engine{
		index:    ix,
		log:      log,
		taxonomy: taxonomy,
		window:   window,
		logger:   logger,
		now:      time.Now,
	}
}

// Ask returns up to k documents relevant to query, best first, each with
// one evidence snippet, and appends the exchange to the history log.
func (e *Engine) Ask(ctx context.Context, query string, k int, userID string) (*types.AskQuery, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, types.NewInvalidArgument("query", "must not be empty")
	}
	k, err := ClampK(k)
	if err != nil {
		return nil, err
	}

	snap := e.index.Snapshot()
	hits := e.index.Score(snap, e.index.ParseQuestion(query))
	maxRaw := 0.0
	if len(hits) > 0 {
		maxRaw = hits[0].Raw
	}
	if len(hits) > k {
		hits = hits[:k]
	}

	answers := make([]types.Answer, 0, len(hits))
	for _, h := range hits {
		snip := ranking.Snippet(types.RedactContacts(h.Doc.Text), h.Terms, e.window, e.taxonomy)
		answers = append(answers, types.Answer{
			DocumentID:      h.Doc.ID,
			ID:              h.Doc.ID,
			Filename:        h.Doc.Filename,
			EvidenceSnippet: snip.Text,
			Evidence:        snip.Text,
			Highlights:      snip.Highlights,
			Score:           ranking.Round2(ranking.Scale(h.Raw, maxRaw)),
		})
	}

	entry := &types.AskQuery{
		ID:        uuid.NewString(),
		Query:     query,
		K:         k,
		Answers:   answers,
		UserID:    userID,
		CreatedAt: e.now().UTC(),
	}
	if err := e.log.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to record ask: %w", err)
	}

	e.logger.Debug("ask answered",
		zap.String("ask_id", entry.ID),
		zap.Int("k", k),
		zap.Int("answers", len(answers)),
	)
	return entry, nil
}

// History returns the most recent asks, newest first.
func (e *Engine) History(ctx context.Context, limit int) ([]*types.AskQuery, error) {
	return e.log.Recent(ctx, limit)
}
