// Package motionplan turns a globally planned waypoint sequence into a time-indexed reference
// pose and twist for the tracking controller.
package motionplan

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/localplanner/spatialmath"
)

// PlannerLinear is the configuration tag of the piecewise-linear motion planner.
const PlannerLinear = "linear"

// Waypoint is a pose on a global plan along with its time offset from the start of the plan.
type Waypoint struct {
	Pose   spatialmath.Pose
	Offset time.Duration
}

// NewWaypoint returns a waypoint with no time offset.
func NewWaypoint(x, y, yaw float64) Waypoint {
	return Waypoint{Pose: spatialmath.NewPose(x, y, yaw)}
}

// Poses returns the poses of the given waypoints in order.
func Poses(waypoints []Waypoint) []spatialmath.Pose {
	return lo.Map(waypoints, func(w Waypoint, _ int) spatialmath.Pose { return w.Pose })
}

// MotionPlanner generates the reference a robot should be at for any point in time.
type MotionPlanner interface {
	// Reset replaces the waypoint sequence and restarts the path parameter at timestamp.
	Reset(waypoints []Waypoint, timestamp time.Time) error
	// Update replaces the waypoint sequence while keeping the progress made up to timestamp.
	Update(waypoints []Waypoint, timestamp time.Time) error
	// ComputeReference returns the world-frame reference pose and twist at timestamp.
	ComputeReference(timestamp time.Time) (spatialmath.Pose, spatialmath.Twist)
	// Progress returns the distance travelled along the reference at timestamp. It never
	// decreases as timestamp increases.
	Progress(timestamp time.Time) float64
	// Waypoints returns a copy of the current waypoint sequence.
	Waypoints() []Waypoint
	// PlanID identifies the plan adopted by the last Reset.
	PlanID() uuid.UUID
}

// Config selects and configures a motion planner.
type Config struct {
	Type         string  `json:"type,omitempty"`
	LinearSpeed  float64 `json:"linear_speed"`
	AngularSpeed float64 `json:"angular_speed"`
}

// DefaultConfig returns the default linear planner configuration.
func DefaultConfig() Config {
	return Config{Type: PlannerLinear, LinearSpeed: 0.3, AngularSpeed: 0.5}
}

// Validate ensures the planner can be constructed from the config.
func (cfg Config) Validate(path string) error {
	if cfg.Type != "" && cfg.Type != PlannerLinear {
		return errors.Wrap(NewUnsupportedPlannerError(cfg.Type), path)
	}
	if cfg.LinearSpeed <= 0 {
		return errors.Errorf("%s: linear_speed must be positive, got %v", path, cfg.LinearSpeed)
	}
	if cfg.AngularSpeed <= 0 {
		return errors.Errorf("%s: angular_speed must be positive, got %v", path, cfg.AngularSpeed)
	}
	return nil
}

// NewMotionPlanner returns the motion planner registered under tag. An empty tag selects the
// linear planner.
func NewMotionPlanner(tag string, cfg Config) (MotionPlanner, error) {
	switch tag {
	case PlannerLinear, "":
		cfg.Type = PlannerLinear
		if err := cfg.Validate("motion_planner"); err != nil {
			return nil, err
		}
		return NewLinearMotionPlanner(cfg), nil
	default:
		return nil, NewUnsupportedPlannerError(tag)
	}
}
