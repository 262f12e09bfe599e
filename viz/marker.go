// Package viz builds diagnostic markers describing what the local planner is doing. Markers are
// best effort: publishers may drop them and nothing reads them back.
package viz

import (
	"math"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"gonum.org/v1/gonum/num/quat"

	"go.viam.com/localplanner/spatialmath"
)

// Namespaces of the published markers.
const (
	NamespaceReference = "reference"
	NamespaceCommand   = "cmd_navigation"
)

// arrow dimensions in meters
const (
	arrowLength    = 0.22
	arrowThickness = 0.035
	arrowHeight    = 0.05
)

// Color is an RGBA color with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

var (
	referenceColor = Color{G: 1, A: 0.5}
	commandColor   = Color{B: 1, A: 0.5}
)

// Marker is an arrow anchored at a pose.
type Marker struct {
	ID          int         `json:"id"`
	Namespace   string      `json:"ns"`
	Frame       string      `json:"frame"`
	Time        time.Time   `json:"time"`
	Position    r3.Vector   `json:"position"`
	Orientation quat.Number `json:"orientation"`
	Scale       r3.Vector   `json:"scale"`
	Color       Color       `json:"color"`
}

// Trajectory is the pose list of the plan being followed.
type Trajectory struct {
	PlanID uuid.UUID          `json:"plan_id"`
	Frame  string             `json:"frame"`
	Time   time.Time          `json:"time"`
	Poses  []spatialmath.Pose `json:"poses"`
}

func arrow(id int, ns, frame string, stamp time.Time, x, y, yaw, length float64, color Color) Marker {
	return Marker{
		ID:          id,
		Namespace:   ns,
		Frame:       frame,
		Time:        stamp,
		Position:    r3.Vector{X: x, Y: y},
		Orientation: spatialmath.QuaternionFromYaw(yaw),
		Scale:       r3.Vector{X: length, Y: arrowThickness, Z: arrowHeight},
		Color:       color,
	}
}

// ReferenceMarker returns a green arrow at the reference pose.
func ReferenceMarker(ref spatialmath.Pose, frame string) Marker {
	return arrow(0, NamespaceReference, frame, ref.Time, ref.Point.X, ref.Point.Y, ref.Yaw, arrowLength, referenceColor)
}

// CommandMarkers returns two blue arrows for a body-frame command given at robot: one along the
// linear velocity scaled by speed, and one perpendicular to the heading, ahead of the robot,
// scaled by the angular velocity.
func CommandMarkers(robot spatialmath.Pose, frame string, cmd spatialmath.Twist) []Marker {
	linear := arrow(
		0, NamespaceCommand, frame, robot.Time,
		robot.Point.X, robot.Point.Y,
		robot.Yaw+math.Atan2(cmd.Linear.Y, cmd.Linear.X),
		cmd.LinearSpeed(),
		commandColor,
	)
	angular := arrow(
		1, NamespaceCommand, frame, robot.Time,
		robot.Point.X+arrowLength*math.Cos(robot.Yaw),
		robot.Point.Y+arrowLength*math.Sin(robot.Yaw),
		robot.Yaw+math.Pi/2,
		cmd.Angular,
		commandColor,
	)
	return []Marker{linear, angular}
}

// NewTrajectory returns the trajectory message of a plan.
func NewTrajectory(planID uuid.UUID, frame string, stamp time.Time, poses []spatialmath.Pose) Trajectory {
	return Trajectory{
		PlanID: planID,
		Frame:  frame,
		Time:   stamp,
		Poses:  lo.Map(poses, func(p spatialmath.Pose, _ int) spatialmath.Pose { return p.Stamped(stamp) }),
	}
}
