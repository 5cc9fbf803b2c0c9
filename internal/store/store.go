// Package store persists workflow run history locally.
package store

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	TaskID string          `json:"task_id,omitempty"`
	Limit  int             `json:"limit,omitempty"`
}

// Store defines the run-history persistence interface.
type Store interface {
	CreateRun(ctx context.Context, taskID, clientID string, testRun bool) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, leads, succeeded, failed int) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
