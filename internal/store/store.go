// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/assembly-coach/internal/domain"
)

// Repository defines the interface for the session journal.
type Repository interface {
	// RecordEvent appends one journal row.
	RecordEvent(ctx context.Context, event domain.Event) error

	// ListEvents returns the most recent events, newest first. A non-empty
	// sessionID restricts the result to one process session.
	ListEvents(ctx context.Context, sessionID string, limit int) ([]domain.Event, error)

	// PruneEvents deletes events created before cutoff.
	PruneEvents(ctx context.Context, cutoff time.Time) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
