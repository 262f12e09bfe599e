// Package replanning contains the guard that arbitrates when a global plan must be recomputed.
package replanning

import (
	"go.uber.org/atomic"
)

// Guard is the hand-off signal between a global planner and the local planners that follow its
// plans. One Guard is intentionally shared by every local planner and the global planner of a
// process: the local planners flag it when they need a new plan and only adopt plans while it is
// flagged, and whoever reaches the goal clears it. Adopting a plan does not clear it, so
// refinements of the same goal keep being accepted until the goal is reached. It is always passed
// explicitly; there is no package level instance.
//
// The enabled and flagged bits are independent atomics, since the Guard is used by components
// that share no other lock.
type Guard struct {
	enabled atomic.Bool
	flagged atomic.Bool
}

// NewGuard returns an enabled guard that is flagged, so that the first plan pushed is adopted.
func NewGuard() *Guard {
	g := &Guard{}
	g.enabled.Store(true)
	g.flagged.Store(true)
	return g
}

// ReplanningFlag returns true while replanning is enabled and a new plan has been requested and
// not yet satisfied.
func (g *Guard) ReplanningFlag() bool {
	return g.enabled.Load() && g.flagged.Load()
}

// Request flags that a new plan is needed. It does nothing while the guard is disabled.
func (g *Guard) Request() {
	if g.enabled.Load() {
		g.flagged.Store(true)
	}
}

// Clear marks the current request as satisfied.
func (g *Guard) Clear() {
	g.flagged.Store(false)
}

// Enabled returns whether the guard is arbitrating.
func (g *Guard) Enabled() bool {
	return g.enabled.Load()
}

// Enable resumes arbitration. A request made before Disable is still pending.
func (g *Guard) Enable() {
	g.enabled.Store(true)
}

// Disable suspends arbitration, for instance during manual override. While disabled no plan is
// adopted and requests are dropped.
func (g *Guard) Disable() {
	g.enabled.Store(false)
}
