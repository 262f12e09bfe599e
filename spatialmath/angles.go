package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// NormalizeAngle wraps an angle in radians into [-pi, pi).
func NormalizeAngle(theta float64) float64 {
	if math.IsNaN(theta) || math.IsInf(theta, 0) {
		return math.NaN()
	}
	wrapped := math.Mod(theta+math.Pi, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}

// YawFromQuaternion extracts the rotation about Z from an orientation quaternion.
func YawFromQuaternion(q quat.Number) float64 {
	// https://en.wikipedia.org/wiki/Conversion_between_quaternions_and_Euler_angles
	sinyCosp := 2 * (q.Real*q.Kmag + q.Imag*q.Jmag)
	cosyCosp := 1 - 2*(q.Jmag*q.Jmag+q.Kmag*q.Kmag)
	return math.Atan2(sinyCosp, cosyCosp)
}

// QuaternionFromYaw returns the unit quaternion rotating by yaw about Z.
func QuaternionFromYaw(yaw float64) quat.Number {
	half := yaw / 2
	return quat.Number{Real: math.Cos(half), Kmag: math.Sin(half)}
}

// InterpolateAngle returns the heading a fraction t of the way from a to b along the shortest arc.
func InterpolateAngle(a, b, t float64) float64 {
	return NormalizeAngle(a + t*NormalizeAngle(b-a))
}
