package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r2"
)

// Frame tags which reference frame a twist is expressed in.
type Frame uint8

// The frames a twist can be expressed in.
const (
	FrameWorld = Frame(iota)
	FrameBody
)

func (f Frame) String() string {
	switch f {
	case FrameWorld:
		return "world"
	case FrameBody:
		return "body"
	default:
		return fmt.Sprintf("frame(%d)", uint8(f))
	}
}

// Twist is a planar velocity: linear (vx, vy) in m/s and angular about Z in rad/s.
type Twist struct {
	Linear  r2.Point
	Angular float64
	Frame   Frame
}

// NewTwist returns a twist in the given frame.
func NewTwist(vx, vy, omega float64, frame Frame) Twist {
	return Twist{Linear: r2.Point{X: vx, Y: vy}, Angular: omega, Frame: frame}
}

// ZeroTwist returns a zero velocity in the given frame.
func ZeroTwist(frame Frame) Twist {
	return Twist{Frame: frame}
}

// LinearSpeed returns the magnitude of the linear component.
func (t Twist) LinearSpeed() float64 {
	return t.Linear.Norm()
}

// IsZero returns whether every component is exactly zero.
func (t Twist) IsZero() bool {
	return t.Linear.X == 0 && t.Linear.Y == 0 && t.Angular == 0
}

func (t Twist) String() string {
	return fmt.Sprintf("%s(vx: %.3f, vy: %.3f, w: %.3f)", t.Frame, t.Linear.X, t.Linear.Y, t.Angular)
}

// ToBodyFrame rotates a world-frame twist by -robotYaw. The angular component is unchanged.
// A NaN yaw yields NaN linear components.
func ToBodyFrame(world Twist, robotYaw float64) Twist {
	return Twist{Linear: rotate(world.Linear, -robotYaw), Angular: world.Angular, Frame: FrameBody}
}

// ToWorldFrame rotates a body-frame twist by robotYaw. The angular component is unchanged.
func ToWorldFrame(body Twist, robotYaw float64) Twist {
	return Twist{Linear: rotate(body.Linear, robotYaw), Angular: body.Angular, Frame: FrameWorld}
}

func rotate(v r2.Point, theta float64) r2.Point {
	c, s := math.Cos(theta), math.Sin(theta)
	return r2.Point{X: c*v.X - s*v.Y, Y: s*v.X + c*v.Y}
}
