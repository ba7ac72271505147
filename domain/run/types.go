package run

import (
	"time"

	"demounit/domain/core"
	"demounit/domain/score"
)

// Run is one execution of a set of tests against a set of models.
type Run struct {
	ID         core.RunID `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
	Cells      []Cell     `json:"cells"`
}

// Cell is the outcome of judging one model with one test. Exactly one of
// Score and Error is set.
type Cell struct {
	TestAlias string       `json:"test_alias"`
	TestName  string       `json:"test_name"`
	ModelName string       `json:"model_name"`
	Score     *score.Score `json:"score,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// Failed reports whether the judgement did not produce a score.
func (c Cell) Failed() bool {
	return c.Score == nil
}

// Summary counts the cells of a run by outcome.
type Summary struct {
	Total    int `json:"total"`
	Scored   int `json:"scored"`
	Sentinel int `json:"sentinel"`
	Failed   int `json:"failed"`
}

// Summarize tallies the run.
func (r *Run) Summarize() Summary {
	s := Summary{Total: len(r.Cells)}
	for _, c := range r.Cells {
		switch {
		case c.Failed():
			s.Failed++
		case c.Score.IsSentinel() || c.Score.Kind == score.KindInsufficientData:
			s.Sentinel++
		default:
			s.Scored++
		}
	}
	return s
}

// Models returns the model names in first-seen order.
func (r *Run) Models() []string {
	return uniq(r.Cells, func(c Cell) string { return c.ModelName })
}

// Tests returns the test aliases in first-seen order.
func (r *Run) Tests() []string {
	return uniq(r.Cells, func(c Cell) string { return c.TestAlias })
}

// Cell looks up the outcome for a test alias and model.
func (r *Run) Cell(testAlias, modelName string) (Cell, bool) {
	for _, c := range r.Cells {
		if c.TestAlias == testAlias && c.ModelName == modelName {
			return c, true
		}
	}
	return Cell{}, false
}

func uniq(cells []Cell, key func(Cell) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, c := range cells {
		k := key(c)
		if !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}
