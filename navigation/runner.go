// Package navigation drives a base from a local planner at a fixed rate.
package navigation

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
	"go.viam.com/localplanner/utils"
)

// DefaultRateHz is the control loop rate used when none is configured.
const DefaultRateHz = 10.0

// baseErrorInterval is the least time between two logged base errors.
const baseErrorInterval = time.Second

// A Base is something that moves when told a velocity. Linear velocity is in m/s in the base's
// own frame and angular velocity in rad/s, about Z.
type Base interface {
	SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error
	Stop(ctx context.Context, extra map[string]interface{}) error
}

// A Planner computes the command for each control cycle.
type Planner interface {
	IsGoalReached() bool
	ComputeVelocityCommands(ctx context.Context) (spatialmath.Twist, bool)
}

// StepResult is the outcome of one control cycle.
type StepResult int

// The outcomes of a control cycle.
const (
	StepCommanded StepResult = iota
	StepGoalReached
	StepReplanRequested
)

func (s StepResult) String() string {
	switch s {
	case StepCommanded:
		return "commanded"
	case StepGoalReached:
		return "goal reached"
	case StepReplanRequested:
		return "replan requested"
	default:
		return "unknown"
	}
}

// Runner calls a planner every period and forwards its commands to a base.
type Runner struct {
	planner Planner
	base    Base
	clk     clock.Clock
	period  time.Duration
	logger  logging.Logger

	goalReached chan struct{}
	baseErrors  *rate.Sometimes

	mu      sync.Mutex
	workers utils.StoppableWorkers
}

// NewRunner returns a runner that is not started. A non-positive rate selects DefaultRateHz.
func NewRunner(planner Planner, base Base, clk clock.Clock, rateHz float64, logger logging.Logger) (*Runner, error) {
	if planner == nil || base == nil {
		return nil, errors.New("runner needs a planner and a base")
	}
	if rateHz <= 0 {
		rateHz = DefaultRateHz
	}
	return &Runner{
		planner:     planner,
		base:        base,
		clk:         clk,
		period:      time.Duration(float64(time.Second) / rateHz),
		logger:      logger,
		goalReached: make(chan struct{}, 1),
		baseErrors:  &rate.Sometimes{First: 1, Interval: baseErrorInterval},
	}, nil
}

// Period returns the time between two control cycles.
func (r *Runner) Period() time.Duration {
	return r.period
}

// GoalReached is signalled when a cycle finds the goal reached. Signals are not queued.
func (r *Runner) GoalReached() <-chan struct{} {
	return r.goalReached
}

// Start runs control cycles in the background until Close or ctx is done.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.workers != nil {
		return
	}
	r.workers = utils.NewStoppableWorkersWithContext(ctx, utils.TickerWorker(r.clk, r.period, func(ctx context.Context) {
		r.Step(ctx)
	}))
}

// Step runs a single control cycle. Base errors are logged at most once per second and the next
// cycle tries again.
func (r *Runner) Step(ctx context.Context) StepResult {
	if r.planner.IsGoalReached() {
		r.logger.CInfow(ctx, "goal reached")
		r.stop(ctx)
		select {
		case r.goalReached <- struct{}{}:
		default:
		}
		return StepGoalReached
	}
	cmd, ok := r.planner.ComputeVelocityCommands(ctx)
	if !ok {
		r.logger.CWarnw(ctx, "replanning requested")
		r.stop(ctx)
		return StepReplanRequested
	}
	if err := r.base.SetVelocity(ctx, r3.Vector{X: cmd.Linear.X, Y: cmd.Linear.Y}, r3.Vector{Z: cmd.Angular}, nil); err != nil {
		r.baseErrors.Do(func() {
			r.logger.CErrorw(ctx, "cannot command base", "error", err)
		})
	}
	return StepCommanded
}

func (r *Runner) stop(ctx context.Context) {
	if err := r.base.Stop(ctx, nil); err != nil {
		r.logger.CErrorw(ctx, "cannot stop base", "error", err)
	}
}

// Close stops the control loop and then the base.
func (r *Runner) Close(ctx context.Context) error {
	r.mu.Lock()
	workers := r.workers
	r.workers = nil
	r.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	return errors.Wrap(r.base.Stop(ctx, nil), "stopping base")
}
