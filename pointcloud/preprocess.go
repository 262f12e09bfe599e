package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"
)

// BaseFrame is the frame preprocessed clouds are expressed in: x forward, z up.
const BaseFrame = "base_link"

// Params configures preprocessing and filtering.
type Params struct {
	// Points lower than this are ground and static.
	GroundThreshold float64 `json:"ground_threshold"`
	// Points further ahead than this are too far to tell and static.
	StaticFrontThreshold float64 `json:"static_front_threshold"`
	// The classifier is only asked when there are more dynamic candidates than this.
	MinDynamicPoints int  `json:"min_dynamic_points"`
	Verbose          bool `json:"verbose"`
}

// DefaultParams returns the default preprocessing parameters.
func DefaultParams() Params {
	return Params{
		GroundThreshold:      0.02,
		StaticFrontThreshold: 3.0,
		MinDynamicPoints:     50,
	}
}

// Validate returns every problem with the parameters.
func (p Params) Validate(path string) error {
	var errs error
	if math.IsNaN(p.GroundThreshold) || math.IsInf(p.GroundThreshold, 0) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path, errors.New("ground_threshold must be finite")))
	}
	if p.StaticFrontThreshold <= 0 || math.IsNaN(p.StaticFrontThreshold) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("static_front_threshold must be positive, got %v", p.StaticFrontThreshold)))
	}
	if p.MinDynamicPoints < 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("min_dynamic_points cannot be negative, got %d", p.MinDynamicPoints)))
	}
	return errs
}

// Preprocess drops non-finite points, moves the rest into the base frame with sensorToBase and
// splits them. A point is static when it is on the ground or beyond the static front threshold;
// every other point may be dynamic. The returned indices refer to the processed cloud.
func Preprocess(cloud Cloud, sensorToBase Transform, params Params) (Cloud, []int, []int) {
	processed := Cloud{Frame: BaseFrame, Points: make([]r3.Vector, 0, len(cloud.Points))}
	var static, dynamic []int
	for _, p := range cloud.Points {
		if !isFinite(p) {
			continue
		}
		q := sensorToBase.Apply(p)
		if q.Z < params.GroundThreshold || q.X > params.StaticFrontThreshold {
			static = append(static, len(processed.Points))
		} else {
			dynamic = append(dynamic, len(processed.Points))
		}
		processed.Points = append(processed.Points, q)
	}
	return processed, static, dynamic
}
