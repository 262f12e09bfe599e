package motionplan

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.viam.com/test"

	"go.viam.com/localplanner/spatialmath"
)

func testPlanner(t *testing.T) *LinearMotionPlanner {
	t.Helper()
	mp, err := NewMotionPlanner(PlannerLinear, Config{LinearSpeed: 0.5, AngularSpeed: 0.5})
	test.That(t, err, test.ShouldBeNil)
	return mp.(*LinearMotionPlanner)
}

func TestNewMotionPlanner(t *testing.T) {
	mp, err := NewMotionPlanner("", DefaultConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, mp, test.ShouldHaveSameTypeAs, &LinearMotionPlanner{})

	_, err = NewMotionPlanner("spline", DefaultConfig())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "spline")

	_, err = NewMotionPlanner(PlannerLinear, Config{LinearSpeed: 0.3})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "angular_speed")
}

func TestEmptyPlan(t *testing.T) {
	mp := testPlanner(t)
	test.That(t, mp.Reset(nil, time.Now()), test.ShouldBeError, ErrEmptyPlan)
	test.That(t, mp.Update([]Waypoint{}, time.Now()), test.ShouldBeError, ErrEmptyPlan)
	test.That(t, mp.Waypoints(), test.ShouldBeEmpty)
	test.That(t, mp.PlanID(), test.ShouldEqual, uuid.Nil)
}

func TestComputeReferenceStraightLine(t *testing.T) {
	mp := testPlanner(t)
	start := time.Unix(1000, 0)
	test.That(t, mp.Reset([]Waypoint{NewWaypoint(0, 0, 0), NewWaypoint(1, 0, 0)}, start), test.ShouldBeNil)

	pose, twist := mp.ComputeReference(start.Add(-time.Second))
	test.That(t, pose.Point.X, test.ShouldEqual, 0.0)
	test.That(t, twist.IsZero(), test.ShouldBeTrue)

	pose, twist = mp.ComputeReference(start.Add(time.Second))
	test.That(t, pose.Point.X, test.ShouldAlmostEqual, 0.5)
	test.That(t, pose.Point.Y, test.ShouldAlmostEqual, 0.0)
	test.That(t, pose.Time, test.ShouldEqual, start.Add(time.Second))
	test.That(t, twist.Frame, test.ShouldEqual, spatialmath.FrameWorld)
	test.That(t, twist.Linear.X, test.ShouldAlmostEqual, 0.5)
	test.That(t, twist.Angular, test.ShouldAlmostEqual, 0.0)

	// holds at the final waypoint
	pose, twist = mp.ComputeReference(start.Add(10 * time.Second))
	test.That(t, pose.Point.X, test.ShouldAlmostEqual, 1.0)
	test.That(t, twist.IsZero(), test.ShouldBeTrue)
}

func TestComputeReferenceRotation(t *testing.T) {
	mp := testPlanner(t)
	start := time.Unix(1000, 0)
	test.That(t, mp.Reset([]Waypoint{NewWaypoint(0, 0, 3), NewWaypoint(0, 0, -3)}, start), test.ShouldBeNil)

	// shortest way from 3 to -3 is through π, 2π-6 radians
	turn := 2*math.Pi - 6
	pose, twist := mp.ComputeReference(start.Add(time.Duration(turn / 0.5 / 2 * float64(time.Second))))
	test.That(t, spatialmath.AngularDistance(pose, spatialmath.NewPose(0, 0, 3+turn/2)), test.ShouldBeLessThan, 1e-6)
	test.That(t, twist.Angular, test.ShouldAlmostEqual, 0.5, 1e-9)
	test.That(t, twist.LinearSpeed(), test.ShouldAlmostEqual, 0.0)
}

func TestComputeReferenceOffsets(t *testing.T) {
	mp := testPlanner(t)
	start := time.Unix(1000, 0)
	slow := Waypoint{Pose: spatialmath.NewPose(1, 0, 0), Offset: 10 * time.Second}
	test.That(t, mp.Reset([]Waypoint{NewWaypoint(0, 0, 0), slow}, start), test.ShouldBeNil)

	pose, twist := mp.ComputeReference(start.Add(5 * time.Second))
	test.That(t, pose.Point.X, test.ShouldAlmostEqual, 0.5)
	test.That(t, twist.Linear.X, test.ShouldAlmostEqual, 0.1)
}

func TestSingleWaypoint(t *testing.T) {
	mp := testPlanner(t)
	start := time.Unix(1000, 0)
	test.That(t, mp.Reset([]Waypoint{NewWaypoint(2, 3, 1)}, start), test.ShouldBeNil)
	pose, twist := mp.ComputeReference(start.Add(time.Second))
	test.That(t, spatialmath.PoseAlmostEqual(pose, spatialmath.NewPose(2, 3, 1), 1e-9, 1e-9), test.ShouldBeTrue)
	test.That(t, twist.IsZero(), test.ShouldBeTrue)
	test.That(t, mp.Progress(start.Add(time.Hour)), test.ShouldEqual, 0.0)
}

func TestProgressMonotonic(t *testing.T) {
	mp := testPlanner(t)
	start := time.Unix(1000, 0)
	waypoints := []Waypoint{
		NewWaypoint(0, 0, 0),
		NewWaypoint(1, 0, 0),
		NewWaypoint(1, 0, math.Pi/2),
		NewWaypoint(1, 1, math.Pi/2),
		NewWaypoint(1, 1, math.Pi/2),
	}
	test.That(t, mp.Reset(waypoints, start), test.ShouldBeNil)

	last := math.Inf(-1)
	for dt := -time.Second; dt < 15*time.Second; dt += 37 * time.Millisecond {
		p := mp.Progress(start.Add(dt))
		test.That(t, p, test.ShouldBeGreaterThanOrEqualTo, last)
		last = p
	}
	test.That(t, last, test.ShouldAlmostEqual, 2.0)
}

func TestUpdateKeepsProgress(t *testing.T) {
	mp := testPlanner(t)
	start := time.Unix(1000, 0)
	test.That(t, mp.Reset([]Waypoint{NewWaypoint(0, 0, 0), NewWaypoint(2, 0, 0)}, start), test.ShouldBeNil)
	id := mp.PlanID()
	test.That(t, id, test.ShouldNotEqual, uuid.Nil)

	at := start.Add(2 * time.Second)
	before := mp.Progress(at)
	test.That(t, before, test.ShouldAlmostEqual, 1.0)

	test.That(t, mp.Update([]Waypoint{NewWaypoint(0.5, 0, 0), NewWaypoint(3, 0, 0)}, at), test.ShouldBeNil)
	test.That(t, mp.PlanID(), test.ShouldEqual, id)

	pose, _ := mp.ComputeReference(at)
	test.That(t, pose.Point.X, test.ShouldAlmostEqual, 1.0)
	test.That(t, mp.Progress(at), test.ShouldAlmostEqual, before)

	pose, _ = mp.ComputeReference(at.Add(time.Second))
	test.That(t, pose.Point.X, test.ShouldAlmostEqual, 1.5)
	test.That(t, mp.Progress(at.Add(time.Second)), test.ShouldAlmostEqual, 1.5)
}

func TestResetRestartsProgress(t *testing.T) {
	mp := testPlanner(t)
	start := time.Unix(1000, 0)
	test.That(t, mp.Reset([]Waypoint{NewWaypoint(0, 0, 0), NewWaypoint(2, 0, 0)}, start), test.ShouldBeNil)
	id := mp.PlanID()

	at := start.Add(2 * time.Second)
	test.That(t, mp.Reset([]Waypoint{NewWaypoint(0.5, 0, 0), NewWaypoint(3, 0, 0)}, at), test.ShouldBeNil)
	test.That(t, mp.PlanID(), test.ShouldNotEqual, id)

	pose, _ := mp.ComputeReference(at)
	test.That(t, pose.Point.X, test.ShouldAlmostEqual, 0.5)
	test.That(t, mp.Progress(at), test.ShouldAlmostEqual, 0.0)
}

func TestUpdateWithoutPlan(t *testing.T) {
	mp := testPlanner(t)
	start := time.Unix(1000, 0)
	test.That(t, mp.Update([]Waypoint{NewWaypoint(0, 0, 0), NewWaypoint(1, 0, 0)}, start), test.ShouldBeNil)
	pose, _ := mp.ComputeReference(start.Add(time.Second))
	test.That(t, pose.Point.X, test.ShouldAlmostEqual, 0.5)
}

func TestWaypointsCopy(t *testing.T) {
	mp := testPlanner(t)
	waypoints := []Waypoint{NewWaypoint(0, 0, 0), NewWaypoint(1, 0, 0)}
	test.That(t, mp.Reset(waypoints, time.Unix(1000, 0)), test.ShouldBeNil)

	waypoints[1].Pose.Point.X = 7
	got := mp.Waypoints()
	test.That(t, got[1].Pose.Point.X, test.ShouldEqual, 1.0)
	got[0].Pose.Point.X = 9
	test.That(t, mp.Waypoints()[0].Pose.Point.X, test.ShouldEqual, 0.0)

	poses := Poses(got)
	test.That(t, len(poses), test.ShouldEqual, 2)
	test.That(t, poses[1].Point.X, test.ShouldEqual, 1.0)
}
