// Package config defines the local planner configuration, reads it from disk and watches it for
// changes.
package config

import (
	"math"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/localplanner/control"
	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/motionplan"
	"go.viam.com/localplanner/safety"
	"go.viam.com/localplanner/utils"
)

// rootPath prefixes validation errors of top level fields.
const rootPath = "local_planner"

// Params are the tunables that can be swapped at runtime without rebuilding the planner.
type Params struct {
	OdomTopic              string   `json:"odom_topic"`
	GoalLinTolerance       float64  `json:"goal_lin_tolerance"`
	GoalAngTolerance       float64  `json:"goal_ang_tolerance"`
	MaxSafeLinVelocity     float64  `json:"max_safe_lin_velocity"`
	MaxSafeAngVelocity     float64  `json:"max_safe_ang_velocity"`
	MaxSafeLinDisplacement float64  `json:"max_safe_lin_displacement"`
	MaxSafeAngDisplacement float64  `json:"max_safe_ang_displacement"`
	SafetyObservers        []string `json:"safety_observers"`
	Verbose                bool     `json:"verbose"`
}

// DefaultParams returns the parameters a planner starts with when nothing is configured.
func DefaultParams() Params {
	return Params{
		OdomTopic:              "/odom",
		GoalLinTolerance:       0.05,
		GoalAngTolerance:       0.05,
		MaxSafeLinVelocity:     0.5,
		MaxSafeAngVelocity:     0.7,
		MaxSafeLinDisplacement: 0.5,
		MaxSafeAngDisplacement: 1.0,
		SafetyObservers:        []string{safety.ScanObserverTag, safety.ArmSkinObserverTag},
	}
}

// Validate returns every problem with the parameters at once.
func (p Params) Validate(path string) error {
	var errs error
	if p.OdomTopic == "" {
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError(path, "odom_topic"))
	}
	for _, field := range []struct {
		name     string
		value    float64
		positive bool
	}{
		{"goal_lin_tolerance", p.GoalLinTolerance, false},
		{"goal_ang_tolerance", p.GoalAngTolerance, false},
		{"max_safe_lin_velocity", p.MaxSafeLinVelocity, true},
		{"max_safe_ang_velocity", p.MaxSafeAngVelocity, true},
		{"max_safe_lin_displacement", p.MaxSafeLinDisplacement, true},
		{"max_safe_ang_displacement", p.MaxSafeAngDisplacement, true},
	} {
		switch {
		case math.IsNaN(field.value) || math.IsInf(field.value, 0):
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
				errors.Errorf("%s must be finite", field.name)))
		case field.positive && field.value <= 0:
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
				errors.Errorf("%s must be positive, got %v", field.name, field.value)))
		case field.value < 0:
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
				errors.Errorf("%s cannot be negative, got %v", field.name, field.value)))
		}
	}
	return errs
}

// Config is the full configuration of a local planner and the loop that drives it.
type Config struct {
	Params

	GlobalFrame      string                        `json:"global_frame"`
	TransformTimeout time.Duration                 `json:"transform_timeout"`
	RateHz           float64                       `json:"rate_hz"`
	Controller       control.TrackingConfig        `json:"controller"`
	MotionPlanner    motionplan.Config             `json:"motion_planner"`
	Observers        map[string]utils.AttributeMap `json:"observers,omitempty"`
	Log              *LogConfig                    `json:"log,omitempty"`

	ConfigFilePath string `json:"-"`
}

// LogConfig configures where logs go in addition to stdout.
type LogConfig struct {
	Level string `json:"level,omitempty"`
	File  string `json:"file,omitempty"`
}

// Default returns a complete configuration using the default parameters.
func Default() Config {
	return Config{
		Params:           DefaultParams(),
		GlobalFrame:      "map",
		TransformTimeout: 100 * time.Millisecond,
		RateHz:           10,
		Controller:       control.DefaultTrackingConfig(),
		MotionPlanner:    motionplan.DefaultConfig(),
	}
}

// Validate ensures all parts of the config are valid, returning every problem found.
func (c *Config) Validate(path string) error {
	errs := c.Params.Validate(path)
	if c.GlobalFrame == "" {
		errs = multierr.Append(errs, goutils.NewConfigValidationFieldRequiredError(path, "global_frame"))
	}
	if c.TransformTimeout <= 0 {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("transform_timeout must be positive, got %v", c.TransformTimeout)))
	}
	if c.RateHz <= 0 || math.IsNaN(c.RateHz) || math.IsInf(c.RateHz, 0) {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path,
			errors.Errorf("rate_hz must be positive, got %v", c.RateHz)))
	}
	if err := c.Controller.Validate(); err != nil {
		errs = multierr.Append(errs, goutils.NewConfigValidationError(path+".controller", err))
	}
	errs = multierr.Append(errs, c.MotionPlanner.Validate(path+".motion_planner"))
	for tag, attrs := range c.Observers {
		errs = multierr.Append(errs, safety.ValidateObserverAttributes(tag, attrs, path+".observers."+tag))
	}
	if c.Log != nil && c.Log.Level != "" {
		if _, err := logging.LevelFromString(c.Log.Level); err != nil {
			errs = multierr.Append(errs, goutils.NewConfigValidationError(path+".log", err))
		}
	}
	return errs
}

// Period returns the control loop period.
func (c *Config) Period() time.Duration {
	return time.Duration(float64(time.Second) / c.RateHz)
}
