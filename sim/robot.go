// Package sim contains a kinematic robot and a toy global planner for exercising the local
// planner without hardware.
package sim

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"go.viam.com/localplanner/localplanner"
	"go.viam.com/localplanner/navigation"
	"go.viam.com/localplanner/spatialmath"
)

// Robot is a holonomic base whose pose is integrated from the commanded body-frame velocity. Its
// pose is expressed in its own odometry frame.
type Robot struct {
	clk   clock.Clock
	frame string

	mu       sync.Mutex
	pose     spatialmath.Pose
	velocity spatialmath.Twist
	updated  time.Time
}

var _ = navigation.Base(&Robot{})

// NewRobot returns a robot standing still at start in frame.
func NewRobot(start spatialmath.Pose, frame string, clk clock.Clock) *Robot {
	return &Robot{
		clk:      clk,
		frame:    frame,
		pose:     start,
		velocity: spatialmath.ZeroTwist(spatialmath.FrameBody),
		updated:  clk.Now(),
	}
}

// SetVelocity integrates the motion so far and then switches to the new velocity.
func (r *Robot) SetVelocity(ctx context.Context, linear, angular r3.Vector, extra map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrate()
	r.velocity = spatialmath.NewTwist(linear.X, linear.Y, angular.Z, spatialmath.FrameBody)
	return nil
}

// Stop halts the robot.
func (r *Robot) Stop(ctx context.Context, extra map[string]interface{}) error {
	return r.SetVelocity(ctx, r3.Vector{}, r3.Vector{}, extra)
}

// Pose returns the current pose.
func (r *Robot) Pose() spatialmath.Pose {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrate()
	return r.pose
}

// Odometry returns the current pose and body-frame velocity.
func (r *Robot) Odometry() localplanner.Odometry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrate()
	return localplanner.Odometry{Pose: r.pose, Twist: r.velocity, Frame: r.frame}
}

// PublishOdometry returns a function sending the current odometry on out, for use with a ticker.
func (r *Robot) PublishOdometry(out chan<- localplanner.Odometry) func(context.Context) {
	return func(ctx context.Context) {
		select {
		case out <- r.Odometry():
		case <-ctx.Done():
		}
	}
}

// integrate must be called with mu held. A constant body-frame twist traces an arc, which is
// integrated in closed form.
func (r *Robot) integrate() {
	now := r.clk.Now()
	dt := now.Sub(r.updated).Seconds()
	r.updated = now
	r.pose.Time = now
	if dt <= 0 {
		return
	}
	v, w := r.velocity.Linear, r.velocity.Angular
	yaw0 := r.pose.Yaw
	yaw1 := yaw0 + w*dt
	var d r2.Point
	if math.Abs(w) < 1e-9 {
		d = spatialmath.ToWorldFrame(r.velocity, yaw0).Linear.Mul(dt)
	} else {
		ds, dc := math.Sin(yaw1)-math.Sin(yaw0), math.Cos(yaw1)-math.Cos(yaw0)
		d = r2.Point{
			X: (v.X*ds + v.Y*dc) / w,
			Y: (-v.X*dc + v.Y*ds) / w,
		}
	}
	r.pose.Point = r.pose.Point.Add(d)
	r.pose.Yaw = spatialmath.NormalizeAngle(yaw1)
}
