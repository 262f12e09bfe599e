package sim

import (
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"

	"go.viam.com/localplanner/spatialmath"
)

// Report summarizes how closely the robot followed the straight line to its goal.
type Report struct {
	Samples      int           `json:"samples"`
	Duration     time.Duration `json:"duration"`
	GoalReached  bool          `json:"goal_reached"`
	Replans      int           `json:"replans"`
	MeanError    float64       `json:"mean_error"`
	MaxError     float64       `json:"max_error"`
	P95Error     float64       `json:"p95_error"`
	FinalLinDist float64       `json:"final_lin_dist"`
	FinalAngDist float64       `json:"final_ang_dist"`
}

// Recorder collects cross track errors during a run.
type Recorder struct {
	mu     sync.Mutex
	errors stats.Float64Data
}

// Record adds the distance from pose to the segment from start to goal.
func (rec *Recorder) Record(start, goal, pose spatialmath.Pose) {
	d := distanceToSegment(pose.Point, start.Point, goal.Point)
	rec.mu.Lock()
	rec.errors = append(rec.errors, d)
	rec.mu.Unlock()
}

// Len returns the number of samples recorded.
func (rec *Recorder) Len() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.errors)
}

// Summarize fills the error statistics of report.
func (rec *Recorder) Summarize(report *Report) error {
	rec.mu.Lock()
	data := append(stats.Float64Data(nil), rec.errors...)
	rec.mu.Unlock()

	report.Samples = len(data)
	if len(data) == 0 {
		return nil
	}
	var err error
	if report.MeanError, err = data.Mean(); err != nil {
		return errors.Wrap(err, "mean tracking error")
	}
	if report.MaxError, err = data.Max(); err != nil {
		return errors.Wrap(err, "max tracking error")
	}
	if report.P95Error, err = data.Percentile(95); err != nil {
		return errors.Wrap(err, "95th percentile tracking error")
	}
	return nil
}

func distanceToSegment(p, a, b r2.Point) float64 {
	ab := b.Sub(a)
	n := ab.Dot(ab)
	if n == 0 {
		return p.Sub(a).Norm()
	}
	t := p.Sub(a).Dot(ab) / n
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Sub(a.Add(ab.Mul(t))).Norm()
}
