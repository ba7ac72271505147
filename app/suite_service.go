package app

import (
	"context"
	"fmt"
	"time"

	"demounit/adapters/excel"
	"demounit/domain/core"
	"demounit/domain/run"
	"demounit/internal"
	"demounit/internal/errors"
	"demounit/internal/validation"
	"demounit/ports"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// SuiteService judges sets of models with sets of tests and keeps the
// results in the score ledger.
type SuiteService struct {
	repo        ports.ScoreRepository
	concurrency int
	options     []validation.Option
	log         *internal.Logger
	now         func() time.Time
}

// SuiteOption configures a SuiteService.
type SuiteOption func(*SuiteService)

// WithRepository persists every run. Without it runs are only returned.
func WithRepository(repo ports.ScoreRepository) SuiteOption {
	return func(s *SuiteService) { s.repo = repo }
}

// WithConcurrency bounds the number of judgements in flight.
func WithConcurrency(n int) SuiteOption {
	return func(s *SuiteService) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithTestOptions is applied to every test built from observations.
func WithTestOptions(opts ...validation.Option) SuiteOption {
	return func(s *SuiteService) { s.options = append(s.options, opts...) }
}

// WithLogger replaces the default logger.
func WithLogger(l *internal.Logger) SuiteOption {
	return func(s *SuiteService) { s.log = l.With("suite") }
}

// NewSuiteService creates a suite service
func NewSuiteService(opts ...SuiteOption) *SuiteService {
	s := &SuiteService{
		concurrency: 4,
		log:         internal.DefaultLogger.With("suite"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunRequest names the observations to test against and the models to
// fetch from the catalog.
type RunRequest struct {
	Observations map[string]map[string]any `json:"observations"`
	Models       []string                  `json:"models"`
}

// RunNamed builds the tests from req.Observations, resolves the models and
// runs the suite. An unknown alias or model rejects the request; a
// malformed observation only fails the cells of its test.
func (s *SuiteService) RunNamed(ctx context.Context, req RunRequest, catalog ports.ModelCatalog) (*run.Run, error) {
	if len(req.Observations) == 0 {
		return nil, errors.InvalidInput("no observations given")
	}
	if len(req.Models) == 0 {
		return nil, errors.InvalidInput("no models given")
	}

	models := make([]ports.Model, 0, len(req.Models))
	for _, name := range req.Models {
		m, err := catalog.Model(name)
		if err != nil {
			return nil, errors.WithCode(errors.CodeInvalidInput, err)
		}
		models = append(models, m)
	}

	byAlias := make(map[string]map[string]any, len(req.Observations))
	for alias, raw := range req.Observations {
		canonical, ok := validation.Lookup(alias)
		if !ok {
			return nil, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("%w: %s", core.ErrUnknownTest, alias))
		}
		if _, dup := byAlias[canonical]; dup {
			return nil, errors.InvalidInput(fmt.Sprintf("observation for %s given twice", canonical))
		}
		byAlias[canonical] = raw
	}

	var tests []validation.Test
	var rejected []run.Cell
	for _, alias := range validation.Aliases() {
		raw, ok := byAlias[alias]
		if !ok {
			continue
		}
		t, err := validation.New(alias, raw, s.options...)
		if err != nil {
			def, _ := validation.Describe(alias)
			s.log.Warn("%s: %v", alias, err)
			for _, m := range models {
				rejected = append(rejected, run.Cell{TestAlias: alias, TestName: def.Name, ModelName: m.Name(), Error: err.Error()})
			}
			continue
		}
		tests = append(tests, t)
	}

	return s.run(ctx, tests, models, rejected)
}

// Run judges every model with every test. Cells are ordered test-major in
// the order given. A failed judgement is recorded in its cell and does not
// stop the others; only cancellation aborts the run.
func (s *SuiteService) Run(ctx context.Context, tests []validation.Test, models []ports.Model) (*run.Run, error) {
	return s.run(ctx, tests, models, nil)
}

func (s *SuiteService) run(ctx context.Context, tests []validation.Test, models []ports.Model, rejected []run.Cell) (*run.Run, error) {
	vr := &run.Run{ID: core.NewRunID(), StartedAt: s.now()}
	s.log.Info("run %s: %d tests x %d models", vr.ID, len(tests), len(models))

	// a model instance keeps stimulus state between inject and record, so
	// it is driven by one test at a time
	locks := make([]*semaphore.Weighted, len(models))
	for i := range locks {
		locks[i] = semaphore.NewWeighted(1)
	}

	cells := make([]run.Cell, len(tests)*len(models))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for ti, t := range tests {
		for mi, m := range models {
			idx, t, m, lock := ti*len(models)+mi, t, m, locks[mi]
			g.Go(func() error {
				if err := lock.Acquire(gctx, 1); err != nil {
					return err
				}
				defer lock.Release(1)
				cells[idx] = s.judge(gctx, t, m)
				return gctx.Err()
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrapf(err, "run %s cancelled", vr.ID)
	}

	vr.Cells = append(cells, rejected...)
	vr.FinishedAt = s.now()
	sum := vr.Summarize()
	s.log.Info("run %s: %d scored, %d without prediction, %d failed in %s",
		vr.ID, sum.Scored, sum.Sentinel, sum.Failed, vr.FinishedAt.Sub(vr.StartedAt).Round(time.Millisecond))

	if s.repo != nil {
		if err := s.repo.SaveRun(ctx, vr); err != nil {
			return vr, errors.Wrapf(err, "failed to save run %s", vr.ID)
		}
	}
	return vr, nil
}

func (s *SuiteService) judge(ctx context.Context, t validation.Test, m ports.Model) run.Cell {
	cell := run.Cell{TestAlias: t.Alias(), TestName: t.Name(), ModelName: m.Name()}
	start := time.Now()
	sc, err := validation.Judge(ctx, t, m)
	if err != nil {
		s.log.Warn("%s on %s: %v", t.Alias(), m.Name(), err)
		cell.Error = err.Error()
		return cell
	}
	s.log.Debug("%s on %s: %s (prediction %s) in %s", t.Alias(), m.Name(), sc, sc.Prediction, time.Since(start).Round(time.Microsecond))
	cell.Score = &sc
	return cell
}

// GetRun loads a stored run.
func (s *SuiteService) GetRun(ctx context.Context, id core.RunID) (*run.Run, error) {
	if s.repo == nil {
		return nil, errors.WithCode(errors.CodeNotFound, fmt.Errorf("%w: %s (no score ledger)", core.ErrRunNotFound, id))
	}
	return s.repo.GetRun(ctx, id)
}

// ListRuns returns the most recent stored runs.
func (s *SuiteService) ListRuns(ctx context.Context, limit int) ([]*run.Run, error) {
	if s.repo == nil {
		return []*run.Run{}, nil
	}
	return s.repo.ListRuns(ctx, limit)
}

// ExportWorkbook saves the score matrix of r as an Excel workbook.
func (s *SuiteService) ExportWorkbook(r *run.Run, path string) error {
	if err := excel.NewWorkbookWriter(r).SaveAs(path); err != nil {
		return errors.Wrapf(err, "export run %s", r.ID)
	}
	s.log.Info("run %s written to %s", r.ID, path)
	return nil
}
