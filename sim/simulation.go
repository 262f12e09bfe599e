package sim

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/localplanner/config"
	"go.viam.com/localplanner/localplanner"
	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/navigation"
	"go.viam.com/localplanner/referenceframe"
	"go.viam.com/localplanner/replanning"
	"go.viam.com/localplanner/spatialmath"
	"go.viam.com/localplanner/utils"
)

// OdomFrame is the frame the simulated robot reports its odometry in.
const OdomFrame = "odom"

// Config describes a simulated run.
type Config struct {
	Planner config.Config
	// Start is the initial robot pose in the planner's global frame.
	Start spatialmath.Pose
	// OdomOffset is the pose of the odometry frame in the global frame.
	OdomOffset      spatialmath.Pose
	OdomRateHz      float64
	PlanRateHz      float64
	WaypointSpacing float64
}

// DefaultConfig returns a run starting at the origin with the default planner configuration.
func DefaultConfig() Config {
	return Config{
		Planner:         config.Default(),
		OdomRateHz:      50,
		PlanRateHz:      2,
		WaypointSpacing: DefaultWaypointSpacing,
	}
}

// Simulation wires a local planner, a straight line global planner and a simulated robot together.
type Simulation struct {
	cfg    Config
	clk    clock.Clock
	logger logging.Logger

	Frames  *referenceframe.StaticFrameSystem
	Robot   *Robot
	Guard   *replanning.Guard
	Planner *localplanner.LocalPlanner
	Global  *StraightLinePlanner
	Runner  *navigation.Runner

	odom     chan localplanner.Odometry
	recorder Recorder

	mu       sync.Mutex
	goal     spatialmath.Pose
	start    spatialmath.Pose
	started  time.Time
	lastPlan time.Time
	replans  int
	reached  bool
}

// New builds and initializes every part of the simulation. opts are passed to the local planner.
func New(ctx context.Context, cfg Config, clk clock.Clock, logger logging.Logger, opts ...localplanner.Option) (*Simulation, error) {
	globalFrame := cfg.Planner.GlobalFrame
	frames := referenceframe.NewStaticFrameSystem()
	if globalFrame != referenceframe.World {
		if err := frames.AddFrame(globalFrame, referenceframe.World, spatialmath.NewPose(0, 0, 0)); err != nil {
			return nil, err
		}
	}
	if err := frames.AddFrame(OdomFrame, globalFrame, cfg.OdomOffset); err != nil {
		return nil, err
	}

	guard := replanning.NewGuard()
	opts = append([]localplanner.Option{localplanner.WithClock(clk)}, opts...)
	planner := localplanner.New(logger.Sublogger("local_planner"), guard, opts...)
	odom := make(chan localplanner.Odometry, 1)
	if err := planner.Initialize(ctx, cfg.Planner, frames, "", odom); err != nil {
		return nil, errors.Wrap(err, "initializing local planner")
	}

	robot := NewRobot(cfg.OdomOffset.Inverse().Compose(cfg.Start), OdomFrame, clk)
	runner, err := navigation.NewRunner(planner, robot, clk, cfg.Planner.RateHz, logger.Sublogger("runner"))
	if err != nil {
		return nil, multierr.Combine(err, planner.Close())
	}

	return &Simulation{
		cfg:     cfg,
		clk:     clk,
		logger:  logger,
		Frames:  frames,
		Robot:   robot,
		Guard:   guard,
		Planner: planner,
		Global:  NewStraightLinePlanner(planner, guard, cfg.WaypointSpacing, logger.Sublogger("global_planner")),
		Runner:  runner,
		odom:    odom,
	}, nil
}

// SetGoal feeds the planner the current odometry and hands the global planner a goal in the global
// frame.
func (s *Simulation) SetGoal(ctx context.Context, goal spatialmath.Pose) error {
	s.Planner.OdomCallback(ctx, s.Robot.Odometry())
	start, ok := s.Planner.RobotPose()
	if !ok {
		return errors.New("robot pose unavailable")
	}
	s.mu.Lock()
	s.goal = goal
	s.start = start
	s.started = s.clk.Now()
	s.reached = false
	s.lastPlan = time.Time{}
	s.mu.Unlock()
	s.Global.SetGoal(goal)
	s.plan(ctx)
	return nil
}

// Step runs one cycle synchronously: odometry, control and then global planning if it is due.
// Callers drive time themselves.
func (s *Simulation) Step(ctx context.Context) navigation.StepResult {
	s.Planner.OdomCallback(ctx, s.Robot.Odometry())
	return s.control(ctx)
}

func (s *Simulation) control(ctx context.Context) navigation.StepResult {
	result := s.Runner.Step(ctx)
	s.plan(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch result {
	case navigation.StepReplanRequested:
		s.replans++
	case navigation.StepGoalReached:
		s.reached = true
	case navigation.StepCommanded:
	}
	if pose, ok := s.Planner.RobotPose(); ok {
		s.recorder.Record(s.start, s.goal, pose)
	}
	return result
}

// plan runs the global planner at most once per planning period.
func (s *Simulation) plan(ctx context.Context) {
	s.mu.Lock()
	last := s.lastPlan
	s.mu.Unlock()
	if !last.IsZero() && s.clk.Since(last) < period(s.cfg.PlanRateHz) {
		return
	}
	if s.Global.Step(ctx) {
		s.mu.Lock()
		s.lastPlan = s.clk.Now()
		s.mu.Unlock()
	}
}

// Run drives the robot to goal in real time, as measured by the simulation clock, and returns once
// the goal is reached, timeout elapses or ctx is done.
func (s *Simulation) Run(ctx context.Context, goal spatialmath.Pose, timeout time.Duration) (Report, error) {
	if err := s.SetGoal(ctx, goal); err != nil {
		return Report{}, err
	}
	workers := utils.NewStoppableWorkersWithContext(ctx,
		utils.TickerWorker(s.clk, period(s.cfg.OdomRateHz), s.Robot.PublishOdometry(s.odom)),
		utils.TickerWorker(s.clk, s.Runner.Period(), func(ctx context.Context) { s.control(ctx) }),
	)

	var runErr error
	select {
	case <-s.Runner.GoalReached():
	case <-s.clk.After(timeout):
		runErr = errors.Errorf("goal not reached within %v", timeout)
	case <-ctx.Done():
		runErr = ctx.Err()
	}
	workers.Stop()

	// ctx may be done already; the robot must stop regardless
	if err := s.Robot.Stop(context.Background(), nil); err != nil {
		runErr = multierr.Append(runErr, err)
	}
	report, err := s.Report(ctx)
	return report, multierr.Append(runErr, err)
}

// Report summarizes the run so far.
func (s *Simulation) Report(ctx context.Context) (Report, error) {
	s.mu.Lock()
	report := Report{
		Duration:    s.clk.Since(s.started),
		GoalReached: s.reached,
		Replans:     s.replans,
	}
	goal := s.goal
	s.mu.Unlock()

	pose, err := s.Frames.TransformPose(ctx, s.Robot.Pose(), OdomFrame, s.cfg.Planner.GlobalFrame)
	if err != nil {
		return report, err
	}
	report.FinalLinDist = spatialmath.LinearDistance(pose, goal)
	report.FinalAngDist = spatialmath.AngularDistance(pose, goal)
	return report, s.recorder.Summarize(&report)
}

// Close stops the planner and the robot.
func (s *Simulation) Close(ctx context.Context) error {
	return multierr.Combine(s.Runner.Close(ctx), s.Planner.Close())
}

func period(rateHz float64) time.Duration {
	if rateHz <= 0 {
		rateHz = navigation.DefaultRateHz
	}
	return time.Duration(float64(time.Second) / rateHz)
}
