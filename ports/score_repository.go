package ports

import (
	"context"

	"demounit/domain/core"
	"demounit/domain/run"
)

// ScoreRepository persists suite runs.
type ScoreRepository interface {
	SaveRun(ctx context.Context, r *run.Run) error
	GetRun(ctx context.Context, id core.RunID) (*run.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*run.Run, error)
}
