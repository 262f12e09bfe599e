// Package localplanner implements the local planner: it follows the plans of a global planner,
// producing bounded velocity commands every control cycle, stopping when a safety observer
// objects, and asking for a new plan when the robot strays too far from the current one.
package localplanner

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"

	"go.viam.com/localplanner/config"
	"go.viam.com/localplanner/control"
	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/motionplan"
	"go.viam.com/localplanner/referenceframe"
	"go.viam.com/localplanner/replanning"
	"go.viam.com/localplanner/safety"
	"go.viam.com/localplanner/spatialmath"
	"go.viam.com/localplanner/utils"
	"go.viam.com/localplanner/viz"
)

// sameGoalEpsilon is how close two goals must be, in meters and radians, to be treated as the
// same goal. It only absorbs numerical noise and is unrelated to the goal tolerances.
const sameGoalEpsilon = 1e-8

// debugTag marks the control cycles of a verbose planner.
const debugTag = "local_planner"

// State is the lifecycle state of a LocalPlanner.
type State int

// The states of a LocalPlanner. Tracking is re-entered whenever a new goal is adopted.
const (
	StateUninitialized State = iota
	StateIdle
	StateTracking
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	default:
		return "unknown"
	}
}

// Odometry is a pose estimate in Frame with the body-frame velocity of the robot. The pose's
// time stamps the whole message.
type Odometry struct {
	Pose  spatialmath.Pose
	Twist spatialmath.Twist
	Frame string
}

// An Option configures a LocalPlanner.
type Option func(*LocalPlanner)

// WithPublisher sets where diagnostic markers are published. By default they are discarded.
func WithPublisher(publisher viz.Publisher) Option {
	return func(p *LocalPlanner) {
		p.publisher = publisher
	}
}

// WithClock sets the clock the safety observers use to judge staleness.
func WithClock(clk clock.Clock) Option {
	return func(p *LocalPlanner) {
		p.clk = clk
	}
}

// LocalPlanner tracks the plan of a global planner. All methods are safe to call concurrently.
//
// The cached robot state and goal, together with the controller and motion planner that consume
// them, are guarded by mu. Params have their own lock so that reconfiguring never waits on a
// control cycle.
type LocalPlanner struct {
	logger    logging.Logger
	guard     *replanning.Guard
	publisher viz.Publisher
	clk       clock.Clock

	paramsMu sync.RWMutex
	params   config.Params

	mu               sync.Mutex
	initialized      bool
	globalFrame      string
	transformTimeout time.Duration
	tf               referenceframe.Transformer
	supervisor       *safety.Supervisor
	controller       control.Controller
	motionPlanner    motionplan.MotionPlanner
	robotPose        spatialmath.Pose
	robotTwist       spatialmath.Twist
	hasPose          bool
	goal             *spatialmath.Pose
	workers          utils.StoppableWorkers
}

// New returns an uninitialized planner that arbitrates replanning through guard. The guard is
// shared with the global planner and any other local planner of the process.
func New(logger logging.Logger, guard *replanning.Guard, opts ...Option) *LocalPlanner {
	p := &LocalPlanner{
		logger:     logger,
		guard:      guard,
		publisher:  viz.NoopPublisher{},
		clk:        clock.New(),
		params:     config.DefaultParams(),
		robotTwist: spatialmath.ZeroTwist(spatialmath.FrameWorld),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Initialize builds the safety observers, controller and motion planner from cfg and starts
// consuming odom in the background. globalFrame, when set, overrides cfg.GlobalFrame as the frame
// everything is computed in. Initializing an initialized planner does nothing.
func (p *LocalPlanner) Initialize(
	ctx context.Context,
	cfg config.Config,
	tf referenceframe.Transformer,
	globalFrame string,
	odom <-chan Odometry,
) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		p.logger.CDebugw(ctx, "already initialized")
		return nil
	}
	if tf == nil {
		return errors.New("local planner requires a transformer")
	}
	if globalFrame != "" {
		cfg.GlobalFrame = globalFrame
	}
	if err := cfg.Validate("local_planner"); err != nil {
		return err
	}

	supervisor, err := safety.NewSupervisor(cfg.SafetyObservers, cfg.Observers, p.clk, p.logger.Sublogger("safety"))
	if err != nil {
		return errors.Wrap(err, "initializing safety observers")
	}
	controller, err := control.NewController(cfg.Controller)
	if err != nil {
		return errors.Wrap(err, "initializing controller")
	}
	motionPlanner, err := motionplan.NewMotionPlanner(cfg.MotionPlanner.Type, cfg.MotionPlanner)
	if err != nil {
		return errors.Wrap(err, "initializing motion planner")
	}

	p.paramsMu.Lock()
	p.params = cfg.Params
	p.paramsMu.Unlock()

	p.globalFrame = cfg.GlobalFrame
	p.transformTimeout = cfg.TransformTimeout
	p.tf = tf
	p.supervisor = supervisor
	p.controller = controller
	p.motionPlanner = motionPlanner
	p.goal = nil
	p.workers = utils.NewStoppableWorkers()
	if odom != nil {
		p.workers.AddWorkers(func(ctx context.Context) {
			p.consumeOdometry(ctx, odom)
		})
	}
	p.initialized = true
	p.logger.CInfow(ctx, "initialization successful",
		"global_frame", p.globalFrame, "observers", len(supervisor.Observers()), "odom_topic", cfg.OdomTopic)
	return nil
}

func (p *LocalPlanner) consumeOdometry(ctx context.Context, odom <-chan Odometry) {
	subscribed := false
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-odom:
			if !ok {
				return
			}
			if !subscribed {
				p.logger.CInfow(ctx, "receiving odometry", "frame", msg.Frame)
				subscribed = true
			}
			p.OdomCallback(ctx, msg)
		}
	}
}

// OdomCallback caches odom as the current robot state, after bringing it into the global frame.
// If the transform is not available within the transform timeout the message is dropped and the
// previous state is kept. Messages older than the cached state are dropped too.
func (p *LocalPlanner) OdomCallback(ctx context.Context, odom Odometry) {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return
	}
	tf, globalFrame, timeout := p.tf, p.globalFrame, p.transformTimeout
	p.mu.Unlock()

	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	pose, err := tf.TransformPose(tctx, odom.Pose, odom.Frame, globalFrame)
	if err != nil {
		p.logger.CErrorw(ctx, "cannot transform odometry", "from", odom.Frame, "to", globalFrame, "error", err)
		return
	}
	if !pose.IsValid() {
		p.logger.CWarnw(ctx, "dropping invalid odometry pose", "pose", pose)
		return
	}
	pose.Time = odom.Pose.Time

	body := odom.Twist
	if body.Frame == spatialmath.FrameWorld {
		body = spatialmath.ToBodyFrame(body, odom.Pose.Yaw)
	}
	twist := spatialmath.ToWorldFrame(body, pose.Yaw)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hasPose && pose.Time.Before(p.robotPose.Time) {
		return
	}
	p.robotPose = pose
	p.robotTwist = twist
	p.hasPose = true
}

// SetPlan hands the planner a new plan. It returns false for an empty plan, in which case nothing
// changes, and before Initialize. While the replanning guard is not flagged, or before the first
// odometry, the plan is acknowledged but not adopted. Otherwise a plan ending somewhere else than
// the current goal becomes the new goal and restarts tracking, and a plan ending at the current
// goal refines the current reference without losing progress.
func (p *LocalPlanner) SetPlan(waypoints []motionplan.Waypoint) bool {
	if len(waypoints) == 0 {
		return false
	}

	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		p.logger.Warn("plan received before initialization")
		return false
	}
	// checked under mu so a concurrent IsGoalReached cannot clear the guard before adoption
	if !p.guard.ReplanningFlag() {
		p.mu.Unlock()
		return true
	}
	if !p.hasPose {
		p.mu.Unlock()
		p.logger.Debug("plan received before odometry, waiting for a pose to anchor it")
		return true
	}
	stamp := p.robotPose.Time
	last := waypoints[len(waypoints)-1].Pose
	if p.isNewGoal(last) {
		p.goal = &last
		p.controller.Reset(stamp)
		if err := p.motionPlanner.Reset(waypoints, stamp); err != nil {
			p.logger.Errorw("cannot adopt plan", "error", err)
		}
		if p.verbose() {
			p.logger.Infow("new goal", "goal", last, "waypoints", len(waypoints), "plan", p.motionPlanner.PlanID())
		}
	} else if err := p.motionPlanner.Update(waypoints, stamp); err != nil {
		p.logger.Errorw("cannot refine plan", "error", err)
	}
	trajectory := viz.NewTrajectory(p.motionPlanner.PlanID(), p.globalFrame, stamp,
		motionplan.Poses(p.motionPlanner.Waypoints()))
	p.mu.Unlock()

	p.publisher.PublishTrajectory(trajectory)
	return true
}

// isNewGoal must be called with mu held.
func (p *LocalPlanner) isNewGoal(pose spatialmath.Pose) bool {
	if p.goal == nil {
		return true
	}
	return spatialmath.LinearDistance(*p.goal, pose) > sameGoalEpsilon ||
		spatialmath.AngularDistance(*p.goal, pose) > sameGoalEpsilon
}

// ComputeVelocityCommands returns the body-frame command for the current cycle.
//
// While any safety observer objects, or when there is nothing to track, the command is zero and
// ok is true. If the robot has strayed from the reference by more than the configured
// displacements the goal is dropped, a new plan is requested from the guard, and ok is false.
func (p *LocalPlanner) ComputeVelocityCommands(ctx context.Context) (spatialmath.Twist, bool) {
	zero := spatialmath.ZeroTwist(spatialmath.FrameBody)
	if p.verbose() && !logging.IsDebugMode(ctx) {
		ctx = logging.EnableDebugMode(ctx, debugTag)
	}

	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		p.logger.CWarnw(ctx, "computing commands before initialization")
		return zero, false
	}
	if p.supervisor.AnyUnsafe() {
		p.mu.Unlock()
		p.logger.CDebugw(ctx, "safety observer tripped, holding still")
		return zero, true
	}
	if p.goal == nil {
		p.mu.Unlock()
		return zero, true
	}
	if !p.hasPose {
		p.mu.Unlock()
		p.logger.CDebugw(ctx, "waiting for odometry")
		return zero, true
	}

	params := p.Params()
	robot, robotTwist := p.robotPose, p.robotTwist
	ref, refTwist := p.motionPlanner.ComputeReference(robot.Time)
	refMarker := viz.ReferenceMarker(ref, p.globalFrame)

	linDev := spatialmath.LinearDistance(robot, ref)
	angDev := spatialmath.AngularDistance(robot, ref)
	if linDev > params.MaxSafeLinDisplacement || angDev > params.MaxSafeAngDisplacement {
		p.goal = nil
		p.guard.Request()
		p.mu.Unlock()
		p.publisher.PublishReference(refMarker)
		p.logger.CWarnw(ctx, "robot is too far from the planned trajectory, replanning requested",
			"linear_deviation", linDev, "angular_deviation", angDev)
		return zero, false
	}

	world := p.controller.ComputeCommand(robot.Time, robot, ref, robotTwist, refTwist)
	globalFrame := p.globalFrame
	p.mu.Unlock()

	cmd := control.ClampTwist(spatialmath.ToBodyFrame(world, robot.Yaw), params.MaxSafeLinVelocity, params.MaxSafeAngVelocity)
	p.publisher.PublishReference(refMarker)
	p.publisher.PublishCommand(viz.CommandMarkers(robot, globalFrame, cmd))
	p.logger.CDebugw(ctx, "command", "twist", cmd, "reference", ref)
	return cmd, true
}

// IsGoalReached returns true, exactly once per goal, when the cached robot pose is within the
// goal tolerances of the goal. Without odometry the goal is never reached. Reaching the goal
// clears it and the replanning guard.
func (p *LocalPlanner) IsGoalReached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.goal == nil || !p.hasPose {
		return false
	}
	params := p.Params()
	if spatialmath.LinearDistance(p.robotPose, *p.goal) > params.GoalLinTolerance ||
		spatialmath.AngularDistance(p.robotPose, *p.goal) > params.GoalAngTolerance {
		return false
	}
	goal := *p.goal
	p.goal = nil
	p.guard.Clear()
	if params.Verbose {
		p.logger.Infow("goal reached", "goal", goal, "pose", p.robotPose)
	}
	return true
}

// Reconfigure swaps in new parameters. The safety observers are built once, so a changed
// observer list only takes effect on the next Initialize.
func (p *LocalPlanner) Reconfigure(params config.Params) error {
	if err := params.Validate("params"); err != nil {
		return err
	}
	p.paramsMu.Lock()
	old := p.params
	p.params = params
	p.paramsMu.Unlock()
	if !slices.Equal(old.SafetyObservers, params.SafetyObservers) {
		p.logger.Warnw("safety observer changes require a restart", "configured", old.SafetyObservers)
	}
	if params.Verbose {
		p.logger.Infow("reconfigured", "params", params)
	}
	return nil
}

// Params returns the parameters currently in effect.
func (p *LocalPlanner) Params() config.Params {
	p.paramsMu.RLock()
	defer p.paramsMu.RUnlock()
	return p.params
}

func (p *LocalPlanner) verbose() bool {
	return p.Params().Verbose
}

// Goal returns the goal being tracked, if any.
func (p *LocalPlanner) Goal() (spatialmath.Pose, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.goal == nil {
		return spatialmath.Pose{}, false
	}
	return *p.goal, true
}

// RobotPose returns the last pose received, in the global frame, and whether any was received.
func (p *LocalPlanner) RobotPose() (spatialmath.Pose, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.robotPose, p.hasPose
}

// RobotTwist returns the last velocity received, in the global frame.
func (p *LocalPlanner) RobotTwist() spatialmath.Twist {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.robotTwist
}

// Supervisor returns the safety supervisor, so sensor data can be fed to its observers. It is
// nil before Initialize.
func (p *LocalPlanner) Supervisor() *safety.Supervisor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.supervisor
}

// State returns where the planner is in its lifecycle.
func (p *LocalPlanner) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch {
	case !p.initialized:
		return StateUninitialized
	case p.goal == nil:
		return StateIdle
	default:
		return StateTracking
	}
}

// Close stops consuming odometry.
func (p *LocalPlanner) Close() error {
	p.mu.Lock()
	workers := p.workers
	p.mu.Unlock()
	if workers != nil {
		workers.Stop()
	}
	return nil
}
