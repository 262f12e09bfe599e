package control

import (
	"math"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/localplanner/spatialmath"
)

func TestNewController(t *testing.T) {
	c, err := NewController(DefaultTrackingConfig())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, c, test.ShouldNotBeNil)

	cfg := DefaultTrackingConfig()
	cfg.Type = "mpc"
	_, err = NewController(cfg)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "mpc")

	cfg = DefaultTrackingConfig()
	cfg.Angular = PIDConfig{}
	_, err = NewController(cfg)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "angular")
}

func TestTrackingZeroError(t *testing.T) {
	c := NewTrackingPID(DefaultTrackingConfig())
	start := time.Unix(100, 0)
	c.Reset(start)

	pose := spatialmath.NewPose(1, 2, 0.3)
	ref := spatialmath.NewTwist(0.2, -0.1, 0.05, spatialmath.FrameWorld)
	out := c.ComputeCommand(start.Add(100*time.Millisecond), pose, pose, ref, ref)
	test.That(t, out.Frame, test.ShouldEqual, spatialmath.FrameWorld)
	test.That(t, out.Linear.X, test.ShouldAlmostEqual, 0.2)
	test.That(t, out.Linear.Y, test.ShouldAlmostEqual, -0.1)
	test.That(t, out.Angular, test.ShouldAlmostEqual, 0.05)
}

func TestTrackingCorrectsTowardReference(t *testing.T) {
	c := NewTrackingPID(TrackingConfig{
		Linear:  PIDConfig{Kp: 1},
		Angular: PIDConfig{Kp: 1},
	})
	start := time.Unix(100, 0)
	c.Reset(start)

	zero := spatialmath.ZeroTwist(spatialmath.FrameWorld)
	out := c.ComputeCommand(
		start.Add(100*time.Millisecond),
		spatialmath.NewPose(0, 0, 0),
		spatialmath.NewPose(0.5, -0.25, 0.1),
		zero, zero,
	)
	test.That(t, out.Linear.X, test.ShouldAlmostEqual, 0.5)
	test.That(t, out.Linear.Y, test.ShouldAlmostEqual, -0.25)
	test.That(t, out.Angular, test.ShouldAlmostEqual, 0.1)
}

func TestTrackingYawErrorWraps(t *testing.T) {
	c := NewTrackingPID(TrackingConfig{
		Linear:  PIDConfig{Kp: 1},
		Angular: PIDConfig{Kp: 1},
	})
	start := time.Unix(100, 0)
	c.Reset(start)

	zero := spatialmath.ZeroTwist(spatialmath.FrameWorld)
	out := c.ComputeCommand(
		start.Add(100*time.Millisecond),
		spatialmath.NewPose(0, 0, math.Pi-0.1),
		spatialmath.NewPose(0, 0, -math.Pi+0.1),
		zero, zero,
	)
	// shortest way round is +0.2, not -2π+0.2
	test.That(t, out.Angular, test.ShouldAlmostEqual, 0.2, 1e-9)
}

func TestTrackingRepeatedTimestamp(t *testing.T) {
	c := NewTrackingPID(DefaultTrackingConfig())
	start := time.Unix(100, 0)
	c.Reset(start)

	zero := spatialmath.ZeroTwist(spatialmath.FrameWorld)
	stamp := start.Add(100 * time.Millisecond)
	first := c.ComputeCommand(stamp, spatialmath.NewPose(0, 0, 0), spatialmath.NewPose(1, 0, 0), zero, zero)
	second := c.ComputeCommand(stamp, spatialmath.NewPose(5, 5, 0), spatialmath.NewPose(1, 0, 0), zero, zero)
	test.That(t, second, test.ShouldResemble, first)

	c.Reset(stamp)
	test.That(t, c.ComputeCommand(stamp, spatialmath.NewPose(0, 0, 0), spatialmath.NewPose(1, 0, 0), zero, zero).IsZero(),
		test.ShouldBeTrue)
}

func TestTrackingBodyFrameMeasurement(t *testing.T) {
	c := NewTrackingPID(TrackingConfig{
		Linear:  PIDConfig{Kd: 1},
		Angular: PIDConfig{Kp: 1},
	})
	start := time.Unix(100, 0)
	c.Reset(start)

	// moving forward in the body frame while facing +y is +y in the world frame
	pose := spatialmath.NewPose(0, 0, math.Pi/2)
	measured := spatialmath.NewTwist(1, 0, 0, spatialmath.FrameBody)
	out := c.ComputeCommand(start.Add(time.Second), pose, pose, measured, spatialmath.ZeroTwist(spatialmath.FrameWorld))
	test.That(t, out.Linear.X, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, out.Linear.Y, test.ShouldAlmostEqual, -1.0, 1e-9)
}
