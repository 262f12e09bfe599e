package control

import (
	"math"

	"go.viam.com/localplanner/spatialmath"
)

// ClampTwist bounds the linear speed of t to maxLinear, keeping its direction, and the magnitude
// of its angular velocity to maxAngular, keeping its sign. The frame tag is preserved.
func ClampTwist(t spatialmath.Twist, maxLinear, maxAngular float64) spatialmath.Twist {
	out := t
	if magnitude := t.Linear.Norm(); magnitude > maxLinear {
		out.Linear = t.Linear.Mul(maxLinear / magnitude)
	}
	if math.Abs(t.Angular) > maxAngular {
		out.Angular = math.Copysign(maxAngular, t.Angular)
	}
	return out
}
