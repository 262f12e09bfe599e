package motionplan

import "github.com/pkg/errors"

// ErrEmptyPlan is returned when a planner is given no waypoints.
var ErrEmptyPlan = errors.New("plan has no waypoints")

// NewUnsupportedPlannerError is returned when no planner is registered under the tag.
func NewUnsupportedPlannerError(tag string) error {
	return errors.Errorf("unsupported motion planner type %q", tag)
}
