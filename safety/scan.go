package safety

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
)

// Scan is a planar range scan in the robot's body frame. Angles are in radians from the
// robot's forward axis, counter-clockwise.
type Scan struct {
	AngleMin       float64
	AngleIncrement float64
	RangeMin       float64
	RangeMax       float64
	Ranges         []float64
}

// ScanConfig configures a ScanObserver.
type ScanConfig struct {
	// MinDistance is the closest an obstacle in the field of view may be.
	MinDistance float64 `json:"min_distance"`
	// FieldOfView is the width in radians of the forward-centered sector that is checked.
	FieldOfView float64 `json:"field_of_view"`
	// MaxScanAge is how long a scan stays valid. Zero disables the staleness check.
	MaxScanAge time.Duration `json:"max_scan_age"`
}

// DefaultScanConfig checks the full circle at 0.3m and never considers scans stale.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{MinDistance: 0.3, FieldOfView: 2 * math.Pi}
}

// Validate ensures all parts of the config are valid.
func (cfg ScanConfig) Validate(path string) error {
	if cfg.MinDistance < 0 || math.IsNaN(cfg.MinDistance) {
		return goutils.NewConfigValidationError(path, errNegative("min_distance"))
	}
	if cfg.FieldOfView <= 0 || cfg.FieldOfView > 2*math.Pi {
		return goutils.NewConfigValidationError(path, errOutOfRange("field_of_view", "(0, 2π]"))
	}
	if cfg.MaxScanAge < 0 {
		return goutils.NewConfigValidationError(path, errNegative("max_scan_age"))
	}
	return nil
}

// ScanObserver is unsafe when a range reading inside its field of view is closer than the
// configured minimum distance, or when it has not received a scan recently enough.
type ScanObserver struct {
	name   string
	cfg    ScanConfig
	clk    clock.Clock
	logger logging.Logger

	mu       sync.Mutex
	received time.Time
	blocked  bool
	closest  float64
}

// NewScanObserver returns an observer that has not seen any scan yet.
func NewScanObserver(name string, cfg ScanConfig, clk clock.Clock, logger logging.Logger) *ScanObserver {
	return &ScanObserver{name: name, cfg: cfg, clk: clk, logger: logger, closest: math.Inf(1)}
}

// Name returns the name the observer was configured under.
func (o *ScanObserver) Name() string {
	return o.name
}

// UpdateScan evaluates a new scan.
func (o *ScanObserver) UpdateScan(scan Scan) {
	closest := math.Inf(1)
	for i, r := range scan.Ranges {
		if !validRange(r, scan.RangeMin, scan.RangeMax) {
			continue
		}
		angle := scan.AngleMin + float64(i)*scan.AngleIncrement
		if math.Abs(spatialmath.NormalizeAngle(angle)) > o.cfg.FieldOfView/2 {
			continue
		}
		closest = math.Min(closest, r)
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	blocked := closest < o.cfg.MinDistance
	if blocked && !o.blocked {
		o.logger.Warnw("obstacle inside safety distance", "observer", o.name, "distance", closest)
	}
	o.received = o.clk.Now()
	o.blocked = blocked
	o.closest = closest
}

// Closest returns the closest valid range in the field of view of the last scan.
func (o *ScanObserver) Closest() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closest
}

// Safe reports whether the last scan is clear and recent.
func (o *ScanObserver) Safe() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cfg.MaxScanAge > 0 && (o.received.IsZero() || o.clk.Since(o.received) > o.cfg.MaxScanAge) {
		return false
	}
	return !o.blocked
}

func validRange(r, rangeMin, rangeMax float64) bool {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return false
	}
	if rangeMin > 0 && r < rangeMin {
		return false
	}
	if rangeMax > 0 && r > rangeMax {
		return false
	}
	return true
}
