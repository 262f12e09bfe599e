package pointcloud

import (
	"context"
	"sync"

	"github.com/golang/geo/r3"

	"go.viam.com/localplanner/logging"
)

// A ClassifyRequest asks which of the candidate points of a frame are static.
type ClassifyRequest struct {
	Frame int
	// Odometry is the robot pose when the cloud was captured.
	Odometry   Transform
	Candidates Cloud
}

// A Classifier decides which points that may be dynamic are static after all, returning those.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (Cloud, error)
}

// ClassifierFunc adapts a function to a Classifier.
type ClassifierFunc func(ctx context.Context, req ClassifyRequest) (Cloud, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, req ClassifyRequest) (Cloud, error) {
	return f(ctx, req)
}

// Filter turns a stream of sensor clouds into a stream of static clouds. Motion is only known once
// the next cloud is in, so each output holds the static points of the previous cloud plus the
// points of the current cloud the classifier found static.
type Filter struct {
	sensorToBase Transform
	params       Params
	classifier   Classifier
	logger       logging.Logger

	mu       sync.Mutex
	frame    int
	previous Cloud
}

// NewFilter returns a filter. A nil classifier treats every dynamic candidate as dynamic.
func NewFilter(sensorToBase Transform, params Params, classifier Classifier, logger logging.Logger) *Filter {
	return &Filter{
		sensorToBase: sensorToBase,
		params:       params,
		classifier:   classifier,
		logger:       logger,
		previous:     Cloud{Frame: BaseFrame},
	}
}

// Process consumes the next sensor cloud and returns the static cloud to publish. A failing
// classifier is logged and its candidates are left out.
func (f *Filter) Process(ctx context.Context, cloud Cloud, odometry Transform) Cloud {
	processed, staticIdx, dynamicIdx := Preprocess(cloud, f.sensorToBase, f.params)
	static := processed.Subset(staticIdx)
	candidates := processed.Subset(dynamicIdx)

	f.mu.Lock()
	defer f.mu.Unlock()
	out := Cloud{Frame: BaseFrame, Points: append([]r3.Vector(nil), f.previous.Points...)}
	if f.classifier != nil && candidates.Size() > f.params.MinDynamicPoints {
		kept, err := f.classifier.Classify(ctx, ClassifyRequest{Frame: f.frame, Odometry: odometry, Candidates: candidates})
		if err != nil {
			f.logger.CWarnw(ctx, "dynamic classification failed", "frame", f.frame, "error", err)
		} else {
			out.Points = append(out.Points, kept.Points...)
		}
	}
	if f.params.Verbose {
		f.logger.CDebugw(ctx, "filtered cloud",
			"frame", f.frame, "static", static.Size(), "candidates", candidates.Size(), "published", out.Size())
	}
	f.frame++
	f.previous = static
	return out
}

// Frames returns how many clouds were processed.
func (f *Filter) Frames() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frame
}
