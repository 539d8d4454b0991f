package call

import (
	"context"

	"github.com/janhq/voicecall/internal/domain/failure"
)

// Store defines the interface for call history storage.
type Store interface {
	// Create stores a new record.
	Create(ctx context.Context, record *Record) error

	// Get retrieves a record by ID.
	Get(ctx context.Context, id string) (*Record, error)

	// List returns all records, newest first.
	List(ctx context.Context) ([]*Record, error)

	// UpdateState sets the state and failure reason of a record.
	UpdateState(ctx context.Context, id string, state State, reason failure.Reason) error
}
