// Package store defines persistence for resumes, jobs and users, with an
// in-memory implementation. The PostgreSQL implementation lives in
// internal/db.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/resume-rag/internal/types"
)

// DocumentStore holds parsed resumes. Put replaces an existing document with
// the same id.
type DocumentStore interface {
	PutDocument(ctx context.Context, doc *types.ResumeDocument) error
	GetDocument(ctx context.Context, id string) (*types.ResumeDocument, error)
	ListDocuments(ctx context.Context) ([]*types.ResumeDocument, error)
	CountDocuments(ctx context.Context) (int, error)
}

// JobStore holds job postings. Jobs are immutable after creation.
type JobStore interface {
	CreateJob(ctx context.Context, job *types.Job) error
	GetJob(ctx context.Context, id string) (*types.Job, error)
	ListJobs(ctx context.Context) ([]*types.Job, error)
}

// User is a stored account including its password hash.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Role         types.Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public returns the API view of the user without the password hash.
func (u *User) Public() *types.User {
	if u == nil {
		return nil
	}
	return &types.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserStore holds accounts. Lookups of unknown users return nil, nil.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUser(ctx context.Context, id uuid.UUID) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ErrEmailTaken is returned by CreateUser when the email is registered.
type ErrEmailTaken struct {
	Email string
}

func (e *ErrEmailTaken) Error() string {
	return "email already registered: " + e.Email
}
