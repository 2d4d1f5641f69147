package stages

import (
	"fmt"

	"github.com/placerworks/pnpvision/internal/pipeline"
)

// SkipIf ends the run early when a named prior scalar result compares
// true against a bound. The remaining stages are skipped; the run still
// completes successfully with all results recorded so far.
type SkipIf struct {
	name       string
	resultName string
	op         string
	value      float64
}

// NewSkipIf builds the stage. Parameters: resultName (required, a scalar
// result), op (one of < <= > >= ==, default ">="), value (the bound).
func NewSkipIf(def pipeline.StageDefinition) (pipeline.Stage, error) {
	resultName, err := paramString(def.Params, "resultName", "")
	if err != nil {
		return nil, err
	}
	if resultName == "" {
		return nil, fmt.Errorf("parameter %q is required", "resultName")
	}
	op, err := paramString(def.Params, "op", ">=")
	if err != nil {
		return nil, err
	}
	if !validOp(op) {
		return nil, fmt.Errorf("parameter %q: unknown comparison %q", "op", op)
	}
	value, err := paramFloat(def.Params, "value", 0)
	if err != nil {
		return nil, err
	}
	return &SkipIf{name: def.Name, resultName: resultName, op: op, value: value}, nil
}

func (s *SkipIf) Name() string { return s.name }

func (s *SkipIf) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	scalar, err := scalarResult(ctx, s.resultName)
	if err != nil {
		return nil, err
	}
	if compare(scalar, s.op, s.value) {
		return &pipeline.Result{Kind: pipeline.KindEmpty, Control: pipeline.ControlSkipRest}, nil
	}
	return nil, nil
}

// RepeatFrom loops a pipeline segment: while a named scalar result is
// below a target and the iteration budget is not exhausted, execution
// resumes at an earlier stage. Useful for iterative tuning loops such as
// re-blurring or re-thresholding until a score settles.
type RepeatFrom struct {
	name          string
	target        string
	resultName    string
	minScore      float64
	maxIterations int
}

// NewRepeatFrom builds the stage. Parameters: target (required, the stage
// to resume from), resultName (required, a scalar result), minScore
// (default 0), maxIterations (default 3, floored at 1).
func NewRepeatFrom(def pipeline.StageDefinition) (pipeline.Stage, error) {
	target, err := paramString(def.Params, "target", "")
	if err != nil {
		return nil, err
	}
	if target == "" {
		return nil, fmt.Errorf("parameter %q is required", "target")
	}
	resultName, err := paramString(def.Params, "resultName", "")
	if err != nil {
		return nil, err
	}
	if resultName == "" {
		return nil, fmt.Errorf("parameter %q is required", "resultName")
	}
	minScore, err := paramFloat(def.Params, "minScore", 0)
	if err != nil {
		return nil, err
	}
	maxIter, err := paramInt(def.Params, "maxIterations", 3)
	if err != nil {
		return nil, err
	}
	s := &RepeatFrom{name: def.Name, target: target, resultName: resultName, minScore: minScore}
	s.SetMaxIterations(maxIter)
	return s, nil
}

func (s *RepeatFrom) Name() string { return s.name }

// MaxIterations returns the loop budget.
func (s *RepeatFrom) MaxIterations() int { return s.maxIterations }

// SetMaxIterations floors the budget at 1.
func (s *RepeatFrom) SetMaxIterations(n int) { s.maxIterations = maxInt(n, 1) }

func (s *RepeatFrom) Process(ctx *pipeline.Context) (*pipeline.Result, error) {
	scalar, err := scalarResult(ctx, s.resultName)
	if err != nil {
		return nil, err
	}
	if scalar < s.minScore && ctx.Executions(s.name) < s.maxIterations {
		return &pipeline.Result{
			Kind:       pipeline.KindEmpty,
			Control:    pipeline.ControlRepeatFrom,
			RepeatFrom: s.target,
		}, nil
	}
	return nil, nil
}

func scalarResult(ctx *pipeline.Context, name string) (float64, error) {
	r, err := ctx.Result(name)
	if err != nil {
		return 0, err
	}
	if r.Kind != pipeline.KindScalar {
		return 0, fmt.Errorf("result %q is %s, want %s", name, r.Kind, pipeline.KindScalar)
	}
	return r.Scalar, nil
}

func validOp(op string) bool {
	switch op {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func compare(a float64, op string, b float64) bool {
	switch op {
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	case "==":
		return a == b
	}
	return false
}
