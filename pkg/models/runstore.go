package models

import (
	"context"

	"github.com/google/uuid"
)

// RunStore persists pipeline runs.
type RunStore interface {
	// SaveRun inserts a completed run.
	SaveRun(ctx context.Context, run *PipelineRun) error
	// GetRun retrieves a run by UUID.
	GetRun(ctx context.Context, runUUID uuid.UUID) (*PipelineRun, error)
	// ListRuns returns runs, paginated by cursor and limit.
	ListRuns(ctx context.Context, cursor int64, limit int) (*RunListResponse, error)
	// UpdateRunMetadata merges the given metadata into the stored run's
	// metadata and returns the updated run.
	UpdateRunMetadata(
		ctx context.Context,
		runUUID uuid.UUID,
		metadata map[string]interface{},
	) (*PipelineRun, error)
	// DeleteRun soft deletes a run.
	DeleteRun(ctx context.Context, runUUID uuid.UUID) error
	// PurgeDeleted hard deletes all soft-deleted runs.
	PurgeDeleted(ctx context.Context) error
	// Close is called when the application is shutting down. This is a good
	// place to clean up any resources used by the RunStore implementation.
	Close() error
}
