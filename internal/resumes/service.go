// Package resumes coordinates uploads, re-extraction, search and analytics
// over the document store, blob store and lexical index.
package resumes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/resume-rag/internal/blob"
	"github.com/jonathan/resume-rag/internal/idempotency"
	"github.com/jonathan/resume-rag/internal/index"
	"github.com/jonathan/resume-rag/internal/ingestion"
	"github.com/jonathan/resume-rag/internal/ranking"
	"github.com/jonathan/resume-rag/internal/schemas"
	"github.com/jonathan/resume-rag/internal/skills"
	"github.com/jonathan/resume-rag/internal/store"
	"github.com/jonathan/resume-rag/internal/types"
)

const (
	// DefaultConcurrency bounds how many archive entries are parsed at once.
	DefaultConcurrency = 4
	// TopSkillsLimit is the length of the analytics skill leaderboard.
	TopSkillsLimit = 10
)

// Service is the resume use-case layer behind the HTTP handlers.
type Service struct {
	docs      store.DocumentStore
	blobs     blob.Store
	index     *index.Index
	extractor skills.Extractor
	taxonomy  *skills.Taxonomy
	logger    *zap.Logger

	guard       *idempotency.Guard
	limits      ingestion.ArchiveLimits
	concurrency int
	window      int
	now         func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIdempotency enables Idempotency-Key handling for uploads.
func WithIdempotency(g *idempotency.Guard) Option {
	return func(s *Service) { s.guard = g }
}

// WithArchiveLimits overrides the ZIP expansion limits.
func WithArchiveLimits(l ingestion.ArchiveLimits) Option {
	return func(s *Service) { s.limits = l }
}

// WithConcurrency sets how many archive entries are processed in parallel.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSnippetWindow sets the search snippet length in runes.
func WithSnippetWindow(n int) Option {
	return func(s *Service) { s.window = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(docs store.DocumentStore, blobs blob.Store, ix *index.Index, extractor skills.Extractor, taxonomy *skills.Taxonomy, logger *zap.Logger, opts ...Option) *Service {
	if taxonomy == nil {
		taxonomy = skills.Default()
	}
	if extractor == nil {
		extractor = skills.NewDictionaryExtractor(taxonomy)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		docs:        docs,
		blobs:       blobs,
		index:       ix,
		extractor:   extractor,
		taxonomy:    taxonomy,
		logger:      logger,
		limits:      ingestion.DefaultArchiveLimits,
		concurrency: DefaultConcurrency,
		window:      ranking.DefaultWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload ingests a single resume or every supported file of a ZIP archive.
// With a non-empty idempotencyKey, a retry of the same upload by the same
// user returns the first response and reports replayed.
func (s *Service) Upload(ctx context.Context, uploadedBy, filename string, content []byte, idempotencyKey string) (*types.UploadResult, bool, error) {
	if len(content) == 0 {
		return nil, false, types.NewInvalidArgument("file", "%s is empty", filename)
	}
	if s.guard == nil || idempotencyKey == "" {
		res, err := s.upload(ctx, uploadedBy, filename, content)
		return res, false, err
	}

	payload := make([]byte, 0, len(filename)+1+len(content))
	payload = append(payload, filename...)
	payload = append(payload, 0)
	payload = append(payload, content...)

	body, replayed, err := s.guard.Do(ctx, uploadedBy, idempotencyKey, payload, func(ctx context.Context) ([]byte, error) {
		res, err := s.upload(ctx, uploadedBy, filename, content)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)
	})
	if err != nil {
		return nil, false, err
	}

	var res types.UploadResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, false, fmt.Errorf("failed to decode stored upload response: %w", err)
	}
	return &res, replayed, nil
}

func (s *Service) upload(ctx context.Context, uploadedBy, filename string, content []byte) (*types.UploadResult, error) {
	format, err := ingestion.DetectFormat(filename, content)
	if err != nil {
		return nil, asInvalid(err)
	}

	if format != ingestion.FormatZIP {
		doc, err := s.ingest(ctx, uploadedBy, filename, content)
		if err != nil {
			return nil, asInvalid(err)
		}
		return &types.UploadResult{Items: []types.ResumeSummary{doc.Summary()}}, nil
	}

	entries, skipped, err := ingestion.ExpandArchive(content, s.limits)
	if err != nil {
		return nil, err
	}

	docs := make([]*types.ResumeDocument, len(entries))
	reasons := make([]string, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			doc, err := s.ingest(gctx, uploadedBy, e.Filename, e.Content)
			if isParseFailure(err) {
				reasons[i] = err.Error()
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", e.Filename, err)
			}
			docs[i] = doc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &types.UploadResult{Items: make([]types.ResumeSummary, 0, len(entries)), Skipped: skipped}
	for i, doc := range docs {
		if doc == nil {
			res.Skipped = append(res.Skipped, types.SkippedFile{Filename: entries[i].Filename, Reason: reasons[i]})
			continue
		}
		res.Items = append(res.Items, doc.Summary())
	}
	if len(res.Items) == 0 {
		return nil, types.NewInvalidArgument("file", "archive contains no ingestible resumes")
	}

	s.logger.Info("archive ingested",
		zap.String("filename", filename),
		zap.Int("ingested", len(res.Items)),
		zap.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

// ingest parses, stores and indexes one file.
func (s *Service) ingest(ctx context.Context, uploadedBy, filename string, content []byte) (*types.ResumeDocument, error) {
	id := uuid.NewString()
	doc, err := s.build(ctx, id, filename, content)
	if err != nil {
		return nil, err
	}
	doc.UploadedBy = uploadedBy
	doc.BlobKey = blob.Key(id, filename)
	doc.CreatedAt = s.now().UTC()

	if err := s.blobs.Put(ctx, doc.BlobKey, blob.Object{Data: content, ContentType: doc.ContentType}); err != nil {
		return nil, fmt.Errorf("failed to store original: %w", err)
	}
	if err := s.docs.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	s.index.Index(doc)

	s.logger.Debug("resume ingested",
		zap.String("id", doc.ID),
		zap.String("filename", filename),
		zap.Int("skills", len(doc.Skills)),
	)
	return doc, nil
}

// build parses content into a document without persisting it.
func (s *Service) build(ctx context.Context, id, filename string, content []byte) (*types.ResumeDocument, error) {
	parsed, err := ingestion.Parse(filename, content)
	if err != nil {
		return nil, err
	}

	extracted, err := s.extractor.Extract(ctx, parsed.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to extract skills: %w", err)
	}
	found := skills.NormalizeSet(s.taxonomy, append(append([]string{}, parsed.Skills...), extracted...))

	doc := &types.ResumeDocument{
		ID:          id,
		Filename:    filename,
		Text:        parsed.Text,
		Skills:      found,
		PII:         parsed.PII,
		Education:   parsed.Education,
		Projects:    parsed.Projects,
		ContentHash: ingestion.ContentHash(parsed.Text),
		ContentType: parsed.ContentType,
	}
	if doc.Skills == nil {
		doc.Skills = []string{}
	}
	if doc.Education == nil {
		doc.Education = []types.Education{}
	}
	if doc.Projects == nil {
		doc.Projects = []types.Project{}
	}
	return doc, nil
}

// Get returns the stored document.
func (s *Service) Get(ctx context.Context, id string) (*types.ResumeDocument, error) {
	return s.docs.GetDocument(ctx, id)
}

// Download returns the original file of a document.
func (s *Service) Download(ctx context.Context, id string) (*types.ResumeDocument, *blob.Object, error) {
	doc, err := s.docs.GetDocument(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	obj, err := s.blobs.Get(ctx, doc.BlobKey)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, nil, &types.NotFoundError{Kind: "original file", ID: id}
	}
	if err != nil {
		return nil, nil, err
	}
	return doc, obj, nil
}

// Reextract parses the stored original again and replaces the document and
// its postings in place. ID, filename, uploader and createdAt are kept.
func (s *Service) Reextract(ctx context.Context, id string) (*types.ResumeDocument, error) {
	old, obj, err := s.Download(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.build(ctx, old.ID, old.Filename, obj.Data)
	if err != nil {
		return nil, asInvalid(err)
	}
	doc.UploadedBy = old.UploadedBy
	doc.BlobKey = old.BlobKey
	doc.CreatedAt = old.CreatedAt

	if err := s.docs.PutDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}
	s.index.Index(doc)

	s.logger.Info("resume re-extracted", zap.String("id", id), zap.Int("skills", len(doc.Skills)))
	return doc, nil
}

// Rebuild replaces the index contents with every stored document.
func (s *Service) Rebuild(ctx context.Context) (int, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list documents: %w", err)
	}
	s.index.Reset(docs)
	s.logger.Info("index rebuilt", zap.Int("documents", len(docs)))
	return len(docs), nil
}

// Search runs a ranked query over the current index snapshot.
func (s *Service) Search(_ context.Context, query string, limit, offset int) (*types.SearchPage, error) {
	snap := s.index.Snapshot()
	q := s.index.ParseQuery(query)
	page, err := s.index.Search(snap, q, limit, offset)
	if err != nil {
		return nil, err
	}

	out := &types.SearchPage{
		Items:  make([]types.SearchHit, 0, len(page.Hits)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for _, h := range page.Hits {
		hit := types.SearchHit{
			ResumeSummary: h.Doc.Summary(),
			Score:         ranking.Round2(ranking.Scale(h.Raw, page.MaxRaw)),
			MatchedSkills: h.MatchedSkills,
		}
		if hit.MatchedSkills == nil {
			hit.MatchedSkills = []string{}
		}
		if !q.Empty() {
			snip := ranking.Snippet(types.RedactContacts(h.Doc.Text), h.Terms, s.window, s.taxonomy)
			hit.Snippet = snip.Text
			hit.Highlights = snip.Highlights
		}
		out.Items = append(out.Items, hit)
	}
	return out, nil
}

// Analytics summarizes the stored corpus.
func (s *Service) Analytics(ctx context.Context) (*types.Analytics, error) {
	docs, err := s.docs.ListDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	skillCounts := make(map[string]int)
	monthCounts := make(map[string]int)
	for _, d := range docs {
		seen := make(map[string]bool, len(d.Skills))
		for _, sk := range d.Skills {
			if !seen[sk] {
				seen[sk] = true
				skillCounts[sk]++
			}
		}
		monthCounts[d.CreatedAt.UTC().Format("2006-01")]++
	}

	top := make([]types.SkillCount, 0, len(skillCounts))
	for sk, n := range skillCounts {
		top = append(top, types.SkillCount{Skill: sk, Count: n})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Skill < top[j].Skill
	})
	if len(top) > TopSkillsLimit {
		top = top[:TopSkillsLimit]
	}

	months := make([]types.MonthCount, 0, len(monthCounts))
	for m, n := range monthCounts {
		months = append(months, types.MonthCount{Month: m, Count: n})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })

	return &types.Analytics{
		TotalResumes:    len(docs),
		TopSkills:       top,
		UploadsPerMonth: months,
	}, nil
}

// isParseFailure reports whether err is about the file itself rather than
// the infrastructure.
func isParseFailure(err error) bool {
	if err == nil {
		return false
	}
	var (
		ufe *ingestion.UnsupportedFormatError
		pe  *ingestion.ParseError
		ve  *schemas.ValidationError
	)
	return errors.As(err, &ufe) || errors.As(err, &pe) || errors.As(err, &ve)
}

// asInvalid turns file-level parse failures into InvalidArgument errors.
func asInvalid(err error) error {
	if isParseFailure(err) {
		return &types.InvalidArgumentError{Field: "file", Message: err.Error()}
	}
	return err
}
