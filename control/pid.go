// Package control contains the feedback controller that turns tracking error into velocity
// commands, and the limiter that keeps those commands within safe bounds.
package control

import (
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// PIDConfig is the configuration of a single PID block.
type PIDConfig struct {
	Kp float64 `json:"kp"`
	Ki float64 `json:"ki"`
	Kd float64 `json:"kd"`
	// IntegralLimit bounds the magnitude of the integral term. Zero disables the bound.
	IntegralLimit float64 `json:"integral_limit"`
}

// Validate ensures the gains are usable.
func (cfg PIDConfig) Validate() error {
	for name, v := range map[string]float64{"kp": cfg.Kp, "ki": cfg.Ki, "kd": cfg.Kd, "integral_limit": cfg.IntegralLimit} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return errors.Errorf("%s must be a non-negative number, got %v", name, v)
		}
	}
	if cfg.Kp == 0 && cfg.Ki == 0 && cfg.Kd == 0 {
		return errors.New("pid block should have at least one non-zero Kp, Ki or Kd gain")
	}
	return nil
}

// PID is a discrete PID block whose integral term saturates to avoid windup.
type PID struct {
	mu       sync.Mutex
	cfg      PIDConfig
	integral float64
	error    float64
	sat      int
	primed   bool
	output   float64
}

// NewPID returns a PID block with zeroed accumulators.
func NewPID(cfg PIDConfig) *PID {
	return &PID{cfg: cfg}
}

// Reset zeroes the accumulators and the last output.
func (p *PID) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.integral = 0
	p.error = 0
	p.sat = 0
	p.primed = false
	p.output = 0
}

// Output returns the most recent output.
func (p *PID) Output() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.output
}

// Next computes the output for error e after dt, differentiating the error numerically. It
// returns false, together with the previous output, when dt is not positive.
func (p *PID) Next(e float64, dt time.Duration) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if dt <= 0 {
		return p.output, false
	}
	rate := 0.0
	if p.primed {
		rate = (e - p.error) / dt.Seconds()
	}
	return p.next(e, rate, dt), true
}

// NextWithRate is like Next but uses a measured error rate for the derivative term instead of
// differentiating e.
func (p *PID) NextWithRate(e, rate float64, dt time.Duration) (float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if dt <= 0 {
		return p.output, false
	}
	return p.next(e, rate, dt), true
}

func (p *PID) next(e, rate float64, dt time.Duration) float64 {
	// stop integrating while saturated in the direction of the error
	if !(p.sat > 0 && e > 0) && !(p.sat < 0 && e < 0) {
		p.integral += p.cfg.Ki * e * dt.Seconds()
	}
	p.sat = 0
	if limit := p.cfg.IntegralLimit; limit > 0 {
		if p.integral > limit {
			p.integral = limit
			p.sat = 1
		} else if p.integral < -limit {
			p.integral = -limit
			p.sat = -1
		}
	}
	p.output = p.cfg.Kp*e + p.integral + p.cfg.Kd*rate
	p.error = e
	p.primed = true
	return p.output
}
