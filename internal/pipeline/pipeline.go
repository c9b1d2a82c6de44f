package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/metahunter/internal/model"
)

// Step is one stage of a run. It reads what earlier stages put on the
// run and adds its own results.
//
// Design decision: steps are values implementing an interface, not bare
// functions, because each one carries its collaborators (cleaner,
// analyzer, output path) and Name labels its log lines and events.
type Step interface {
	// Do performs the stage. Per-file problems are recorded on run and
	// do not produce an error; an error means the run cannot go on.
	Do(ctx context.Context, run *model.Run) error

	// Name identifies the step in logs.
	Name() string
}

// Pipeline executes its steps one after another against the same run.
type Pipeline struct {
	steps           []Step
	logger          *slog.Logger
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. slog.Default() is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing the remaining steps after a step
// fails. Execute still reports the first failure.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty Pipeline. Add steps with AddStep or AddSteps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs the steps in the order they were added. Every step that
// returns without error is appended to run.CompletedSteps.
//
// Cancellation is checked between steps; a step in progress is expected
// to watch ctx itself. A cancelled run keeps whatever the finished steps
// recorded.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", step.Name(), "reason", err)
			return err
		}

		err := p.runStep(ctx, step, run)
		if err == nil {
			run.CompletedSteps = append(run.CompletedSteps, step.Name())
			continue
		}
		if !p.continueOnError {
			return err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// runStep executes a single step and logs its outcome.
func (p *Pipeline) runStep(ctx context.Context, step Step, run *model.Run) error {
	logger := p.logger.With("step", step.Name(), "run_id", run.RunID)
	logger.Debug("step started")

	start := time.Now()
	if err := step.Do(ctx, run); err != nil {
		logger.Error("step failed", "error", err)
		return err
	}
	logger.Debug("step finished", "elapsed", time.Since(start))
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
