package motionplan

import (
	"math"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"

	"go.viam.com/localplanner/spatialmath"
)

// minSegment keeps coincident waypoints from producing zero-length segments in time.
const minSegment = 1e-3

// LinearMotionPlanner moves the reference along straight segments between waypoints at
// constant linear and angular speed, interpolating yaw along the shortest direction.
type LinearMotionPlanner struct {
	mu  sync.Mutex
	cfg Config

	waypoints []Waypoint
	// times holds the seconds since anchor at which the reference reaches each waypoint, and
	// arcs the cumulative path length up to each waypoint.
	times  []float64
	arcs   []float64
	anchor time.Time

	// progress at the last Update, and the arc length on the current sequence it maps to
	progressBase float64
	arcBase      float64

	planID uuid.UUID
}

var _ = MotionPlanner(&LinearMotionPlanner{})

// NewLinearMotionPlanner returns a planner with no waypoints.
func NewLinearMotionPlanner(cfg Config) *LinearMotionPlanner {
	return &LinearMotionPlanner{cfg: cfg}
}

// Reset adopts waypoints as a new plan starting at timestamp.
func (mp *LinearMotionPlanner) Reset(waypoints []Waypoint, timestamp time.Time) error {
	if len(waypoints) == 0 {
		return ErrEmptyPlan
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.setWaypoints(waypoints)
	mp.anchor = timestamp
	mp.progressBase = 0
	mp.arcBase = 0
	mp.planID = uuid.New()
	return nil
}

// Update swaps in a refined sequence for the same goal. The reference reached at timestamp is
// projected onto the new sequence and the time anchor is shifted so the reference keeps moving
// forward from that point instead of starting over.
func (mp *LinearMotionPlanner) Update(waypoints []Waypoint, timestamp time.Time) error {
	if len(waypoints) == 0 {
		return ErrEmptyPlan
	}
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if len(mp.waypoints) == 0 {
		mp.setWaypoints(waypoints)
		mp.anchor = timestamp
		mp.planID = uuid.New()
		return nil
	}

	current, _ := mp.reference(timestamp)
	progress := mp.progress(timestamp)

	mp.setWaypoints(waypoints)
	elapsed, arc := mp.project(current.Point)
	mp.anchor = timestamp.Add(-time.Duration(elapsed * float64(time.Second)))
	mp.progressBase = progress
	mp.arcBase = arc
	return nil
}

// ComputeReference returns the reference at timestamp. Before the plan starts the reference
// holds at the first waypoint and after it ends at the last, both with a zero twist.
func (mp *LinearMotionPlanner) ComputeReference(timestamp time.Time) (spatialmath.Pose, spatialmath.Twist) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.reference(timestamp)
}

// Progress returns the path length covered by the reference at timestamp.
func (mp *LinearMotionPlanner) Progress(timestamp time.Time) float64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.progress(timestamp)
}

// Waypoints returns a copy of the current sequence.
func (mp *LinearMotionPlanner) Waypoints() []Waypoint {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	out := make([]Waypoint, len(mp.waypoints))
	copy(out, mp.waypoints)
	return out
}

// PlanID returns the id assigned by the last Reset, or the zero uuid.
func (mp *LinearMotionPlanner) PlanID() uuid.UUID {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.planID
}

func (mp *LinearMotionPlanner) setWaypoints(waypoints []Waypoint) {
	mp.waypoints = make([]Waypoint, len(waypoints))
	copy(mp.waypoints, waypoints)
	mp.times = make([]float64, len(waypoints))
	mp.arcs = make([]float64, len(waypoints))
	for i := 1; i < len(waypoints); i++ {
		prev, next := waypoints[i-1], waypoints[i]
		dist := spatialmath.LinearDistance(prev.Pose, next.Pose)
		duration := math.Max(
			math.Max(dist/mp.cfg.LinearSpeed, spatialmath.AngularDistance(prev.Pose, next.Pose)/mp.cfg.AngularSpeed),
			math.Max((next.Offset-prev.Offset).Seconds(), minSegment),
		)
		mp.times[i] = mp.times[i-1] + duration
		mp.arcs[i] = mp.arcs[i-1] + dist
	}
}

// segment returns the index of the segment active after elapsed seconds and the fraction of it
// covered. ok is false before the first or after the last waypoint.
func (mp *LinearMotionPlanner) segment(elapsed float64) (int, float64, bool) {
	last := len(mp.times) - 1
	if elapsed < 0 || last < 1 || elapsed >= mp.times[last] {
		return 0, 0, false
	}
	for i := 0; i < last; i++ {
		if elapsed < mp.times[i+1] {
			return i, (elapsed - mp.times[i]) / (mp.times[i+1] - mp.times[i]), true
		}
	}
	return 0, 0, false
}

func (mp *LinearMotionPlanner) reference(timestamp time.Time) (spatialmath.Pose, spatialmath.Twist) {
	if len(mp.waypoints) == 0 {
		return spatialmath.Pose{Time: timestamp}, spatialmath.ZeroTwist(spatialmath.FrameWorld)
	}
	elapsed := timestamp.Sub(mp.anchor).Seconds()
	i, frac, ok := mp.segment(elapsed)
	if !ok {
		hold := mp.waypoints[0].Pose
		if elapsed >= 0 {
			hold = mp.waypoints[len(mp.waypoints)-1].Pose
		}
		return hold.Stamped(timestamp), spatialmath.ZeroTwist(spatialmath.FrameWorld)
	}

	from, to := mp.waypoints[i].Pose, mp.waypoints[i+1].Pose
	duration := mp.times[i+1] - mp.times[i]
	delta := to.Point.Sub(from.Point)
	turn := spatialmath.NormalizeAngle(to.Yaw - from.Yaw)

	pose := spatialmath.Pose{
		Point: from.Point.Add(delta.Mul(frac)),
		Yaw:   spatialmath.InterpolateAngle(from.Yaw, to.Yaw, frac),
		Time:  timestamp,
	}
	twist := spatialmath.Twist{
		Linear:  delta.Mul(1 / duration),
		Angular: turn / duration,
		Frame:   spatialmath.FrameWorld,
	}
	return pose, twist
}

func (mp *LinearMotionPlanner) arcAt(elapsed float64) float64 {
	if len(mp.arcs) == 0 || elapsed < 0 {
		return 0
	}
	i, frac, ok := mp.segment(elapsed)
	if !ok {
		return mp.arcs[len(mp.arcs)-1]
	}
	return mp.arcs[i] + frac*(mp.arcs[i+1]-mp.arcs[i])
}

func (mp *LinearMotionPlanner) progress(timestamp time.Time) float64 {
	return mp.progressBase + mp.arcAt(timestamp.Sub(mp.anchor).Seconds()) - mp.arcBase
}

// project finds the point of the current sequence closest to p and returns the elapsed time
// and arc length at which the reference passes it.
func (mp *LinearMotionPlanner) project(p r2.Point) (float64, float64) {
	if len(mp.waypoints) < 2 {
		return 0, 0
	}
	best := math.Inf(1)
	var elapsed, arc float64
	for i := 0; i+1 < len(mp.waypoints); i++ {
		a, b := mp.waypoints[i].Pose.Point, mp.waypoints[i+1].Pose.Point
		ab := b.Sub(a)
		frac := 0.0
		if n := ab.Dot(ab); n > 0 {
			frac = math.Max(0, math.Min(1, p.Sub(a).Dot(ab)/n))
		}
		if d := p.Sub(a.Add(ab.Mul(frac))).Norm(); d < best {
			best = d
			elapsed = mp.times[i] + frac*(mp.times[i+1]-mp.times[i])
			arc = mp.arcs[i] + frac*(mp.arcs[i+1]-mp.arcs[i])
		}
	}
	return elapsed, arc
}
