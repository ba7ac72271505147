package sqlstore

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math"
	"time"

	"demounit/domain/core"
	"demounit/domain/observation"
	"demounit/domain/run"
	"demounit/domain/score"
	"demounit/internal/errors"
	"demounit/ports"

	"github.com/jmoiron/sqlx"
)

// ScoreRepository implements ports.ScoreRepository over sqlx.
type ScoreRepository struct {
	db *sqlx.DB
}

var _ ports.ScoreRepository = (*ScoreRepository)(nil)

// NewScoreRepository creates a repository on an open, migrated database.
func NewScoreRepository(db *sqlx.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

type runRow struct {
	ID         string    `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

type scoreRow struct {
	RunID             string          `db:"run_id"`
	Position          int             `db:"position"`
	TestAlias         string          `db:"test_alias"`
	TestName          string          `db:"test_name"`
	ModelName         string          `db:"model_name"`
	Kind              string          `db:"kind"`
	Value             sql.NullFloat64 `db:"value"`
	Prediction        sql.NullFloat64 `db:"prediction"`
	PredictionPresent bool            `db:"prediction_present"`
	ObservationMean   sql.NullFloat64 `db:"observation_mean"`
	ObservationStd    sql.NullFloat64 `db:"observation_std"`
	Error             string          `db:"error"`
}

const insertScore = `
	INSERT INTO validation_scores (run_id, position, test_alias, test_name, model_name, kind, value,
		prediction, prediction_present, observation_mean, observation_std, error)
	VALUES (:run_id, :position, :test_alias, :test_name, :model_name, :kind, :value,
		:prediction, :prediction_present, :observation_mean, :observation_std, :error)
`

const selectScores = `
	SELECT run_id, position, test_alias, test_name, model_name, kind, value,
		prediction, prediction_present, observation_mean, observation_std, error
	FROM validation_scores
`

// SaveRun stores the run and all of its cells in one transaction.
func (r *ScoreRepository) SaveRun(ctx context.Context, vr *run.Run) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "begin transaction"))
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO validation_runs (id, started_at, finished_at)
		VALUES (?, ?, ?)
	`), vr.ID.String(), dbTime(vr.StartedAt), dbTime(vr.FinishedAt))
	if err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "insert run %s", vr.ID))
	}

	for i, c := range vr.Cells {
		if _, err := tx.NamedExecContext(ctx, insertScore, toScoreRow(vr.ID, i, c)); err != nil {
			return errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "insert score %s/%s", c.TestAlias, c.ModelName))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "commit run"))
	}
	return nil
}

// GetRun loads a run with its cells in the order they were saved.
func (r *ScoreRepository) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`
		SELECT id, started_at, finished_at FROM validation_runs WHERE id = ?
	`), id.String())
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, id)
	}
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "get run %s", id))
	}

	var rows []scoreRow
	err = r.db.SelectContext(ctx, &rows, r.db.Rebind(selectScores+` WHERE run_id = ? ORDER BY position`), id.String())
	if err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrapf(err, "get scores of run %s", id))
	}

	vr := row.toRun()
	for _, s := range rows {
		vr.Cells = append(vr.Cells, s.toCell())
	}
	return vr, nil
}

// ListRuns returns the most recent runs first. limit <= 0 lists all.
func (r *ScoreRepository) ListRuns(ctx context.Context, limit int) ([]*run.Run, error) {
	query := `SELECT id, started_at, finished_at FROM validation_runs ORDER BY started_at DESC, id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var runRows []runRow
	if err := r.db.SelectContext(ctx, &runRows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "list runs"))
	}
	if len(runRows) == 0 {
		return []*run.Run{}, nil
	}

	runs := make([]*run.Run, len(runRows))
	byID := make(map[string]*run.Run, len(runRows))
	ids := make([]string, len(runRows))
	for i, row := range runRows {
		runs[i] = row.toRun()
		byID[row.ID] = runs[i]
		ids[i] = row.ID
	}

	query, args, err := sqlx.In(selectScores+` WHERE run_id IN (?) ORDER BY run_id, position`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "build score query")
	}
	var rows []scoreRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "list scores"))
	}
	for _, s := range rows {
		vr := byID[s.RunID]
		vr.Cells = append(vr.Cells, s.toCell())
	}
	return runs, nil
}

// dbTime drops the monotonic reading and sub-microsecond precision,
// which PostgreSQL would truncate anyway.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

func (row runRow) toRun() *run.Run {
	return &run.Run{
		ID:         core.RunID(row.ID),
		StartedAt:  row.StartedAt.UTC(),
		FinishedAt: row.FinishedAt.UTC(),
		Cells:      []run.Cell{},
	}
}

func toScoreRow(id core.RunID, position int, c run.Cell) scoreRow {
	row := scoreRow{
		RunID:     id.String(),
		Position:  position,
		TestAlias: c.TestAlias,
		TestName:  c.TestName,
		ModelName: c.ModelName,
		Error:     c.Error,
	}
	if c.Score == nil {
		return row
	}
	s := c.Score
	row.Kind = string(s.Kind)
	if s.Kind == score.KindZScore {
		row.Value = finite(s.Value)
	}
	row.PredictionPresent = s.Prediction.Present
	if s.Prediction.Present {
		row.Prediction = finite(s.Prediction.Value)
	}
	row.ObservationMean = finite(s.Observation.Mean)
	row.ObservationStd = finite(s.Observation.Std)
	return row
}

func (row scoreRow) toCell() run.Cell {
	c := run.Cell{
		TestAlias: row.TestAlias,
		TestName:  row.TestName,
		ModelName: row.ModelName,
		Error:     row.Error,
	}
	if row.Kind == "" {
		return c
	}
	s := &score.Score{
		Kind: score.Kind(row.Kind),
		Observation: observation.Observation{
			Mean: row.ObservationMean.Float64,
			Std:  row.ObservationStd.Float64,
		},
	}
	if s.Kind == score.KindZScore {
		s.Value = orNaN(row.Value)
	}
	if row.PredictionPresent {
		s.Prediction = score.Predicted(orNaN(row.Prediction))
	}
	c.Score = s
	return c
}

func finite(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}
