package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/placerworks/pnpvision/internal/units"
)

// jump budget across one run, guarding against repeat-from loops whose
// exit condition never fires.
const maxControlJumps = 1000

// Engine executes an ordered stage sequence against one working image
// store. The engine itself holds no per-run state, so a single instance
// may serially execute unrelated runs; concurrent runs each get their own
// Context by construction.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates an engine logging through logger (slog.Default when nil).
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{log: logger}
}

type runOptions struct {
	frameSource   FrameSource
	unitsPerPixel *units.Location
}

// RunOption configures a single run.
type RunOption func(*runOptions)

// WithFrameSource binds a camera so capture stages can acquire the
// initial working image.
func WithFrameSource(src FrameSource) RunOption {
	return func(o *runOptions) { o.frameSource = src }
}

// WithUnitsPerPixel supplies the calibration scale used to coerce
// physical-length overrides to pixels.
func WithUnitsPerPixel(upp units.Location) RunOption {
	return func(o *runOptions) { o.unitsPerPixel = &upp }
}

// Run executes stages in declared order. The initial image may be nil if
// the first stage supplies one. Overrides may be nil or empty.
//
// On failure the returned RunResult is still populated with everything
// recorded before the abort, and the error identifies the failing stage.
func (e *Engine) Run(ctx context.Context, stages []Stage, initial image.Image,
	overrides map[string]interface{}, opts ...RunOption,
) (*RunResult, error) {
	if err := validateStages(stages); err != nil {
		return &RunResult{}, err
	}
	var options runOptions
	for _, opt := range opts {
		opt(&options)
	}

	rc := newContext(ctx, initial, overrides, options)
	out := &RunResult{}
	runsTotal.WithLabelValues("started").Inc()

	jumps := 0
	for i := 0; i < len(stages); i++ {
		stage := stages[i]
		rc.executions[stage.Name()]++

		start := time.Now()
		result, err := stage.Process(rc)
		elapsed := time.Since(start)

		out.Timings = append(out.Timings, StageTiming{Stage: stage.Name(), Elapsed: elapsed})
		stageDuration.WithLabelValues(stage.Name()).Observe(elapsed.Seconds())
		e.log.Debug("stage processed",
			"stage", stage.Name(), "elapsed", elapsed, "error", err)

		if err != nil {
			out.Image = rc.image
			out.Results = rc.results
			runsTotal.WithLabelValues("failed").Inc()
			return out, &StageError{Stage: stage.Name(), Err: err}
		}
		rc.record(stage.Name(), result)

		if result == nil {
			continue
		}
		switch result.Control {
		case ControlSkipRest:
			i = len(stages)
		case ControlRepeatFrom:
			target, ok := stageIndex(stages, result.RepeatFrom)
			if !ok {
				out.Image = rc.image
				out.Results = rc.results
				runsTotal.WithLabelValues("failed").Inc()
				return out, &StageError{
					Stage: stage.Name(),
					Err:   fmt.Errorf("repeat target %q is not a stage in this pipeline", result.RepeatFrom),
				}
			}
			jumps++
			if jumps > maxControlJumps {
				out.Image = rc.image
				out.Results = rc.results
				runsTotal.WithLabelValues("failed").Inc()
				return out, &StageError{
					Stage: stage.Name(),
					Err:   fmt.Errorf("exceeded %d control-flow jumps", maxControlJumps),
				}
			}
			i = target - 1
		case ControlNone:
		}
	}

	out.Image = rc.image
	out.Results = rc.results
	runsTotal.WithLabelValues("completed").Inc()
	return out, nil
}

// validateStages rejects duplicate or empty names before execution starts.
func validateStages(stages []Stage) error {
	seen := make(map[string]struct{}, len(stages))
	for i, s := range stages {
		name := s.Name()
		if name == "" {
			return &ConfigurationError{Reason: fmt.Sprintf("stage %d has no name", i)}
		}
		if _, dup := seen[name]; dup {
			return &ConfigurationError{Reason: fmt.Sprintf("duplicate stage name %q", name)}
		}
		seen[name] = struct{}{}
	}
	return nil
}

func stageIndex(stages []Stage, name string) (int, bool) {
	for i, s := range stages {
		if s.Name() == name {
			return i, true
		}
	}
	return 0, false
}
