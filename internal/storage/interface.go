package storage

import (
	"context"
	"time"

	"github.com/vexeradubbing/applybot/internal/model"
)

// ApplicationStorage defines persistence operations for applications.
type ApplicationStorage interface {
	Ping(ctx context.Context) error
	// NextID mints the next application ID. Implementations must make
	// the read-increment-write of the counter mutually exclusive so two
	// concurrent submissions never observe the same value.
	NextID(ctx context.Context) (string, error)
	Create(ctx context.Context, app *model.Application) error
	FindByID(ctx context.Context, id string) (model.Application, error)
	// FindByStatus returns applications in creation order, newest first.
	FindByStatus(ctx context.Context, status model.Status) ([]model.Application, error)
	// UpdateStatus applies a lifecycle transition. Illegal transitions,
	// including same-status moves, fail with ErrConflict. Terminal
	// transitions record actor and time.
	UpdateStatus(ctx context.Context, id string, status model.Status, actor string, at time.Time) error
	// Delete removes the record and cascades deletion of its message refs.
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (map[model.Status]int, error)
}

// RefStorage tracks delivered notification copies per application.
type RefStorage interface {
	// SaveRef records a delivered copy. A later save for the same
	// (application, recipient) pair replaces the prior ref.
	SaveRef(ctx context.Context, ref model.MessageRef) error
	RefsByApplication(ctx context.Context, appID string) ([]model.MessageRef, error)
}

// Storage is the full persistence surface the service layers depend on.
type Storage interface {
	ApplicationStorage
	RefStorage
}
