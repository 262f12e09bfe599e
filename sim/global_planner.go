package sim

import (
	"context"
	"math"
	"sync"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/motionplan"
	"go.viam.com/localplanner/replanning"
	"go.viam.com/localplanner/spatialmath"
)

// DefaultWaypointSpacing is the distance between two waypoints of a straight line plan.
const DefaultWaypointSpacing = 0.25

// A PlanTarget accepts plans and reports where the robot is in the frame plans are expressed in.
type PlanTarget interface {
	SetPlan(waypoints []motionplan.Waypoint) bool
	RobotPose() (spatialmath.Pose, bool)
}

// StraightLinePlanner is a global planner that plans a straight line from the robot to the goal.
// It only plans while the replanning guard is flagged.
type StraightLinePlanner struct {
	target  PlanTarget
	guard   *replanning.Guard
	spacing float64
	logger  logging.Logger

	mu   sync.Mutex
	goal *spatialmath.Pose
}

// NewStraightLinePlanner returns a planner without a goal. A non-positive spacing selects
// DefaultWaypointSpacing.
func NewStraightLinePlanner(
	target PlanTarget,
	guard *replanning.Guard,
	spacing float64,
	logger logging.Logger,
) *StraightLinePlanner {
	if spacing <= 0 {
		spacing = DefaultWaypointSpacing
	}
	return &StraightLinePlanner{target: target, guard: guard, spacing: spacing, logger: logger}
}

// SetGoal sets where to go and asks for a plan.
func (sp *StraightLinePlanner) SetGoal(goal spatialmath.Pose) {
	sp.mu.Lock()
	sp.goal = &goal
	sp.mu.Unlock()
	sp.guard.Request()
	sp.logger.Infow("new goal", "goal", goal)
}

// Goal returns the current goal.
func (sp *StraightLinePlanner) Goal() (spatialmath.Pose, bool) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.goal == nil {
		return spatialmath.Pose{}, false
	}
	return *sp.goal, true
}

// Step hands a fresh plan to the target if one is wanted. It returns whether a plan was sent.
func (sp *StraightLinePlanner) Step(ctx context.Context) bool {
	goal, ok := sp.Goal()
	if !ok || !sp.guard.ReplanningFlag() {
		return false
	}
	start, ok := sp.target.RobotPose()
	if !ok {
		sp.logger.CDebugw(ctx, "no robot pose yet, not planning")
		return false
	}
	waypoints := StraightLine(start, goal, sp.spacing)
	if !sp.target.SetPlan(waypoints) {
		sp.logger.CWarnw(ctx, "plan rejected", "waypoints", len(waypoints))
		return false
	}
	return true
}

// StraightLine returns waypoints at most spacing apart from start to goal, both included. The
// heading turns from the start heading to the goal heading along the way.
func StraightLine(start, goal spatialmath.Pose, spacing float64) []motionplan.Waypoint {
	dist := spatialmath.LinearDistance(start, goal)
	n := int(math.Ceil(dist / spacing))
	if n < 1 {
		n = 1
	}
	waypoints := make([]motionplan.Waypoint, 0, n+1)
	delta := goal.Point.Sub(start.Point)
	for i := 0; i <= n; i++ {
		frac := float64(i) / float64(n)
		waypoints = append(waypoints, motionplan.Waypoint{Pose: spatialmath.Pose{
			Point: start.Point.Add(delta.Mul(frac)),
			Yaw:   spatialmath.InterpolateAngle(start.Yaw, goal.Yaw, frac),
		}})
	}
	waypoints[n].Pose = goal
	return waypoints
}
