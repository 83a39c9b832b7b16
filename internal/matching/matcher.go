// Package matching scores every resume against a job by skill overlap and
// description relevance.
package matching

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/resume-rag/internal/index"
	"github.com/jonathan/resume-rag/internal/ranking"
	"github.com/jonathan/resume-rag/internal/skills"
	"github.com/jonathan/resume-rag/internal/store"
	"github.com/jonathan/resume-rag/internal/types"
)

const (
	// DefaultTopN is used when a match request does not say how many results it wants.
	DefaultTopN = 10
	// MaxTopN caps a match response.
	MaxTopN = 50
)

// Weights blend skill overlap with description relevance. They must be
// non-negative and sum to 1.
type Weights struct {
	Skill float64
	Text  float64
}

// DefaultWeights returns the 70/30 skill/text blend.
func DefaultWeights() Weights {
	return Weights{Skill: 0.7, Text: 0.3}
}

// Validate checks the weights form a convex blend.
func (w Weights) Validate() error {
	if w.Skill < 0 || w.Text < 0 {
		return fmt.Errorf("match weights must be non-negative, got skill=%v text=%v", w.Skill, w.Text)
	}
	if math.Abs(w.Skill+w.Text-1) > 1e-9 {
		return fmt.Errorf("match weights must sum to 1, got %v", w.Skill+w.Text)
	}
	return nil
}

// ClampTopN maps a requested result count onto [1, MaxTopN]; zero selects
// DefaultTopN.
func ClampTopN(n int) int {
	switch {
	case n == 0:
		return DefaultTopN
	case n < 1:
		return 1
	case n > MaxTopN:
		return MaxTopN
	}
	return n
}

// Matcher owns job creation and matching.
type Matcher struct {
	jobs     store.JobStore
	index    *index.Index
	taxonomy *skills.Taxonomy
	weights  Weights
	window   int
	logger   *zap.Logger
	now      func() time.Time
}

// Option customizes a Matcher.
type Option func(*Matcher)

// WithWeights overrides the default blend. Invalid weights are rejected by New.
func WithWeights(w Weights) Option {
	return func(m *Matcher) { m.weights = w }
}

// WithSnippetWindow sets the snippet length in runes.
func WithSnippetWindow(n int) Option {
	return func(m *Matcher) { m.window = n }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Matcher) { m.now = now }
}

// New creates a Matcher.
func New(jobs store.JobStore, ix *index.Index, taxonomy *skills.Taxonomy, logger *zap.Logger, opts ...Option) (*Matcher, error) {
	if taxonomy == nil {
		taxonomy = skills.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Matcher{
		jobs:     jobs,
		index:    ix,
		taxonomy: taxonomy,
		weights:  DefaultWeights(),
		window:   ranking.DefaultWindow,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.weights.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateJob normalizes and stores a job. Skills are case-folded, trimmed,
// alias-resolved and deduplicated in first-seen order.
func (m *Matcher) CreateJob(ctx context.Context, req *types.CreateJobRequest, createdBy string) (*types.Job, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, types.NewInvalidArgument("title", "must not be empty")
	}
	jobSkills := skills.NormalizeList(m.taxonomy, req.Skills)
	if len(jobSkills) == 0 {
		return nil, types.NewInvalidArgument("skills", "must contain at least one skill")
	}

	job := &types.Job{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Skills:      jobSkills,
		CreatedBy:   createdBy,
		CreatedAt:   m.now().UTC(),
	}
	if err := m.jobs.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	m.logger.Info("job created",
		zap.String("job_id", job.ID),
		zap.Int("skills", len(job.Skills)),
	)
	return job, nil
}

// GetJob returns a job or a NotFoundError.
func (m *Matcher) GetJob(ctx context.Context, id string) (*types.Job, error) {
	return m.jobs.GetJob(ctx, id)
}

// ListJobs returns every job, newest first.
func (m *Matcher) ListJobs(ctx context.Context) ([]*types.Job, error) {
	return m.jobs.ListJobs(ctx)
}

// scored is a match result before its snippet is cut.
type scored struct {
	doc    *types.ResumeDocument
	result types.MatchResult
	terms  []string
}

// Match ranks every indexed resume against the job and returns the best
// topN. All documents come from one index snapshot.
func (m *Matcher) Match(ctx context.Context, jobID string, topN int) (*types.MatchResponse, error) {
	job, err := m.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	topN = ClampTopN(topN)

	snap := m.index.Snapshot()

	// Description relevance per document id, scaled to [0,1] within this
	// request's hits.
	relevance := make(map[string]index.Hit)
	textScore := make(map[string]float64)
	if job.Description != "" {
		hits := m.index.Score(snap, m.index.ParseQuery(job.Description))
		raws := make([]float64, len(hits))
		for i, h := range hits {
			raws[i] = h.Raw
		}
		for i, scaled := range ranking.Normalize(raws) {
			relevance[hits[i].Doc.ID] = hits[i]
			textScore[hits[i].Doc.ID] = scaled / 100
		}
	}

	docs := snap.Docs()
	results := make([]scored, 0, len(docs))
	for _, doc := range docs {
		have := make(map[string]bool, len(doc.Skills))
		for _, s := range doc.Skills {
			have[s] = true
		}

		matched := make([]string, 0, len(job.Skills))
		missing := make([]string, 0, len(job.Skills))
		for _, s := range job.Skills {
			if have[s] {
				matched = append(matched, s)
			} else {
				missing = append(missing, s)
			}
		}

		overlap := float64(len(matched)) / float64(len(job.Skills))
		hit := relevance[doc.ID]
		score := ranking.Round2(clamp100((m.weights.Skill*overlap + m.weights.Text*textScore[doc.ID]) * 100))

		results = append(results, scored{
			doc: doc,
			result: types.MatchResult{
				DocumentID:    doc.ID,
				ID:            doc.ID,
				Filename:      doc.Filename,
				Score:         score,
				MatchedSkills: matched,
				MissingSkills: missing,
			},
			terms: append(append([]string{}, matched...), hit.Terms...),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i].result, results[j].result
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.MatchedSkills) != len(b.MatchedSkills) {
			return len(a.MatchedSkills) > len(b.MatchedSkills)
		}
		return a.DocumentID < b.DocumentID
	})
	if len(results) > topN {
		results = results[:topN]
	}

	matches := make([]types.MatchResult, len(results))
	for i, r := range results {
		snip := ranking.Snippet(types.RedactContacts(r.doc.Text), r.terms, m.window, m.taxonomy)
		r.result.HighlightedSnippet = snip.Text
		r.result.Highlights = snip.Highlights
		matches[i] = r.result
	}

	m.logger.Debug("job matched",
		zap.String("job_id", job.ID),
		zap.Int("candidates", len(docs)),
		zap.Int("returned", len(matches)),
	)
	return &types.MatchResponse{Job: job, Matches: matches}, nil
}

func clamp100(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
