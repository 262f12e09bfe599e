// Package spatialmath defines planar poses and twists and the conversions between the world
// (map) frame and the robot body frame.
package spatialmath

import (
	"fmt"
	"math"
	"time"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is a planar position and heading, stamped with the time it was observed.
type Pose struct {
	Point r2.Point
	Yaw   float64
	Time  time.Time
}

// NewPose returns an unstamped pose.
func NewPose(x, y, yaw float64) Pose {
	return Pose{Point: r2.Point{X: x, Y: y}, Yaw: yaw}
}

// Stamped returns a copy of the pose with its time replaced.
func (p Pose) Stamped(t time.Time) Pose {
	p.Time = t
	return p
}

// Compose returns the pose obtained by applying other in the frame of p, i.e. p * other.
func (p Pose) Compose(other Pose) Pose {
	c, s := math.Cos(p.Yaw), math.Sin(p.Yaw)
	return Pose{
		Point: r2.Point{
			X: p.Point.X + c*other.Point.X - s*other.Point.Y,
			Y: p.Point.Y + s*other.Point.X + c*other.Point.Y,
		},
		Yaw:  NormalizeAngle(p.Yaw + other.Yaw),
		Time: other.Time,
	}
}

// Inverse returns the pose q such that p.Compose(q) is the identity.
func (p Pose) Inverse() Pose {
	c, s := math.Cos(p.Yaw), math.Sin(p.Yaw)
	return Pose{
		Point: r2.Point{
			X: -c*p.Point.X - s*p.Point.Y,
			Y: s*p.Point.X - c*p.Point.Y,
		},
		Yaw:  NormalizeAngle(-p.Yaw),
		Time: p.Time,
	}
}

// Orientation returns the heading of the pose as a unit quaternion about Z.
func (p Pose) Orientation() quat.Number {
	return QuaternionFromYaw(p.Yaw)
}

// IsValid returns false if any component of the pose is NaN or infinite.
func (p Pose) IsValid() bool {
	for _, v := range []float64{p.Point.X, p.Point.Y, p.Yaw} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (p Pose) String() string {
	return fmt.Sprintf("(x: %.3f, y: %.3f, yaw: %.3f)", p.Point.X, p.Point.Y, p.Yaw)
}

// LinearDistance returns the euclidean distance between the positions of two poses.
func LinearDistance(a, b Pose) float64 {
	return a.Point.Sub(b.Point).Norm()
}

// AngularDistance returns the absolute shortest angle between the headings of two poses.
func AngularDistance(a, b Pose) float64 {
	return math.Abs(NormalizeAngle(a.Yaw - b.Yaw))
}

// PoseAlmostEqual returns whether two poses are within the given linear and angular epsilon.
func PoseAlmostEqual(a, b Pose, linEpsilon, angEpsilon float64) bool {
	return LinearDistance(a, b) <= linEpsilon && AngularDistance(a, b) <= angEpsilon
}
