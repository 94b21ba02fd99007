package run

import "context"

// Repository defines the interface for run persistence
type Repository interface {
	// Save persists a run with all its results
	Save(ctx context.Context, r *Run) error

	// FindByID retrieves a run by its ID
	FindByID(ctx context.Context, id string) (*Run, error)

	// FindAll retrieves all runs, newest first
	FindAll(ctx context.Context) ([]*Run, error)

	// Delete removes a run by its ID
	Delete(ctx context.Context, id string) error
}
