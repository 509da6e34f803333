package jobs

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup targets an unknown job ID.
var ErrNotFound = errors.New("jobs: job not found")

// ErrExists is returned by Create when the job ID is already registered.
var ErrExists = errors.New("jobs: job already exists")

// Store is the persistence interface the job Manager depends on. MemoryStore
// and EtcdStore are its two implementations.
type Store interface {
	// Create registers a new job. Returns ErrExists if the ID is already taken.
	Create(ctx context.Context, job *Job) error

	// Get retrieves a job by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Job, error)

	// Update overwrites an existing job record. Returns ErrNotFound if it
	// does not already exist.
	Update(ctx context.Context, job *Job) error

	// Delete removes a job. Returns ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// List returns jobs matching filter along with the total count before
	// pagination was applied. A nil filter returns everything.
	List(ctx context.Context, filter *Filter) ([]*Job, int, error)

	// Count returns the total number of registered jobs.
	Count(ctx context.Context) (int, error)
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*EtcdStore)(nil)
)
