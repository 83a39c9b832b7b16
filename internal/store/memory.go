package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jonathan/resume-rag/internal/types"
)

// Memory implements DocumentStore, JobStore and UserStore in process.
type Memory struct {
	mu      sync.RWMutex
	docs    map[string]*types.ResumeDocument
	jobs    map[string]*types.Job
	users   map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		docs:    make(map[string]*types.ResumeDocument),
		jobs:    make(map[string]*types.Job),
		users:   make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// PutDocument inserts or replaces a document.
func (m *Memory) PutDocument(_ context.Context, doc *types.ResumeDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[doc.ID] = doc
	return nil
}

// GetDocument returns a document or a NotFoundError.
func (m *Memory) GetDocument(_ context.Context, id string) (*types.ResumeDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, &types.NotFoundError{Kind: "resume", ID: id}
	}
	return doc, nil
}

// ListDocuments returns every document, newest first.
func (m *Memory) ListDocuments(_ context.Context) ([]*types.ResumeDocument, error) {
	m.mu.RLock()
	out := make([]*types.ResumeDocument, 0, len(m.docs))
	for _, d := range m.docs {
		out = append(out, d)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CountDocuments returns the number of stored documents.
func (m *Memory) CountDocuments(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

// CreateJob stores a new job.
func (m *Memory) CreateJob(_ context.Context, job *types.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return &types.ConflictError{Message: "job already exists: " + job.ID}
	}
	m.jobs[job.ID] = job
	return nil
}

// GetJob returns a job or a NotFoundError.
func (m *Memory) GetJob(_ context.Context, id string) (*types.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, &types.NotFoundError{Kind: "job", ID: id}
	}
	return job, nil
}

// ListJobs returns every job, newest first.
func (m *Memory) ListJobs(_ context.Context) ([]*types.Job, error) {
	m.mu.RLock()
	out := make([]*types.Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, j)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// CreateUser stores a new account. Emails are unique case-insensitively.
func (m *Memory) CreateUser(_ context.Context, u *User) error {
	key := strings.ToLower(u.Email)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[key]; ok {
		return &ErrEmailTaken{Email: u.Email}
	}
	cp := *u
	m.users[u.ID] = &cp
	m.byEmail[key] = u.ID
	return nil
}

// GetUser returns the account with id, or nil if none exists.
func (m *Memory) GetUser(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

// GetUserByEmail returns the account registered under email, or nil.
func (m *Memory) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	id, ok := m.byEmail[strings.ToLower(email)]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return m.GetUser(ctx, id)
}
