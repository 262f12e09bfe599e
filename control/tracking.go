package control

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"go.viam.com/localplanner/spatialmath"
)

// ControllerPID is the configuration tag of the PID tracking controller.
const ControllerPID = "pid"

// A Controller computes the world-frame twist that drives a robot onto a moving reference.
type Controller interface {
	// Reset zeroes any accumulated history and records timestamp as the baseline for the next
	// command.
	Reset(timestamp time.Time)
	// ComputeCommand returns a world-frame corrective twist.
	ComputeCommand(
		timestamp time.Time,
		pose, refPose spatialmath.Pose,
		twist, refTwist spatialmath.Twist,
	) spatialmath.Twist
}

// TrackingConfig configures the PID tracking controller.
type TrackingConfig struct {
	Type    string    `json:"type,omitempty"`
	Linear  PIDConfig `json:"linear"`
	Angular PIDConfig `json:"angular"`
}

// DefaultTrackingConfig returns gains suitable for a small holonomic base.
func DefaultTrackingConfig() TrackingConfig {
	return TrackingConfig{
		Type:    ControllerPID,
		Linear:  PIDConfig{Kp: 1.2, Ki: 0.1, Kd: 0.05, IntegralLimit: 0.2},
		Angular: PIDConfig{Kp: 1.5, Ki: 0.1, Kd: 0.05, IntegralLimit: 0.3},
	}
}

// Validate ensures the tracking controller config is usable.
func (cfg TrackingConfig) Validate() error {
	if cfg.Type != "" && cfg.Type != ControllerPID {
		return errors.Errorf("unsupported controller type %q", cfg.Type)
	}
	if err := cfg.Linear.Validate(); err != nil {
		return errors.Wrap(err, "linear")
	}
	if err := cfg.Angular.Validate(); err != nil {
		return errors.Wrap(err, "angular")
	}
	return nil
}

// NewController returns the controller named by cfg.Type. An empty type selects the PID tracker.
func NewController(cfg TrackingConfig) (Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return NewTrackingPID(cfg), nil
}

// TrackingPID tracks a reference pose with one PID block per axis (x, y, yaw) in the world
// frame, adding the reference twist as feed-forward. The derivative term uses the velocity error
// rather than differentiating the pose error, so irregular call intervals do not produce spikes.
type TrackingPID struct {
	mu       sync.Mutex
	x, y     *PID
	yaw      *PID
	baseline time.Time
	output   spatialmath.Twist
}

// NewTrackingPID returns a PID tracking controller.
func NewTrackingPID(cfg TrackingConfig) *TrackingPID {
	return &TrackingPID{
		x:      NewPID(cfg.Linear),
		y:      NewPID(cfg.Linear),
		yaw:    NewPID(cfg.Angular),
		output: spatialmath.ZeroTwist(spatialmath.FrameWorld),
	}
}

// Reset zeroes the accumulators of every axis.
func (c *TrackingPID) Reset(timestamp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.x.Reset()
	c.y.Reset()
	c.yaw.Reset()
	c.baseline = timestamp
	c.output = spatialmath.ZeroTwist(spatialmath.FrameWorld)
}

// ComputeCommand returns refTwist plus the PID correction of the pose error. If timestamp is not
// after the previous call the previous output is returned unchanged.
func (c *TrackingPID) ComputeCommand(
	timestamp time.Time,
	pose, refPose spatialmath.Pose,
	twist, refTwist spatialmath.Twist,
) spatialmath.Twist {
	c.mu.Lock()
	defer c.mu.Unlock()

	dt := timestamp.Sub(c.baseline)
	if dt <= 0 {
		return c.output
	}
	c.baseline = timestamp

	if twist.Frame != spatialmath.FrameWorld {
		twist = spatialmath.ToWorldFrame(twist, pose.Yaw)
	}
	errPos := refPose.Point.Sub(pose.Point)
	errVel := refTwist.Linear.Sub(twist.Linear)
	errYaw := spatialmath.NormalizeAngle(refPose.Yaw - pose.Yaw)

	ux, _ := c.x.NextWithRate(errPos.X, errVel.X, dt)
	uy, _ := c.y.NextWithRate(errPos.Y, errVel.Y, dt)
	uw, _ := c.yaw.NextWithRate(errYaw, refTwist.Angular-twist.Angular, dt)

	c.output = spatialmath.NewTwist(
		refTwist.Linear.X+ux,
		refTwist.Linear.Y+uy,
		refTwist.Angular+uw,
		spatialmath.FrameWorld,
	)
	return c.output
}
