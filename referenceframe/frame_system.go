// Package referenceframe resolves poses between named coordinate frames, standing in for the
// transform service the local planner queries when odometry arrives.
package referenceframe

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	goutils "go.viam.com/utils"

	"go.viam.com/localplanner/spatialmath"
)

// World is the string "world", but made into an exported constant. Every frame system is rooted
// at World.
const World = "world"

const defaultPollInterval = 5 * time.Millisecond

// A Transformer converts a pose between two named frames. Implementations must honor the
// deadline of ctx: a transform that is not available in time fails rather than blocking.
type Transformer interface {
	TransformPose(ctx context.Context, pose spatialmath.Pose, source, target string) (spatialmath.Pose, error)
}

// StaticFrameSystem is a tree of planar frames, each defined by its pose in its parent. Frame
// offsets may be updated at any time, e.g. by a localizer correcting map->odom drift.
type StaticFrameSystem struct {
	mu           sync.RWMutex
	parents      map[string]string
	offsets      map[string]spatialmath.Pose
	pollInterval time.Duration
}

var _ = Transformer(&StaticFrameSystem{})

// NewStaticFrameSystem returns a frame system containing only World.
func NewStaticFrameSystem() *StaticFrameSystem {
	return &StaticFrameSystem{
		parents:      map[string]string{},
		offsets:      map[string]spatialmath.Pose{},
		pollInterval: defaultPollInterval,
	}
}

// AddFrame adds a frame whose pose in parent is offset.
func (sfs *StaticFrameSystem) AddFrame(name, parent string, offset spatialmath.Pose) error {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	if name == "" {
		return errors.New("frame name cannot be empty")
	}
	if sfs.exists(name) {
		return NewFrameAlreadyExistsError(name)
	}
	if !sfs.exists(parent) {
		return NewFrameMissingError(parent)
	}
	sfs.parents[name] = parent
	sfs.offsets[name] = offset
	return nil
}

// UpdateFrame replaces the offset of an existing frame.
func (sfs *StaticFrameSystem) UpdateFrame(name string, offset spatialmath.Pose) error {
	sfs.mu.Lock()
	defer sfs.mu.Unlock()
	if name == World {
		return errors.New("cannot move the world frame")
	}
	if !sfs.exists(name) {
		return NewFrameMissingError(name)
	}
	sfs.offsets[name] = offset
	return nil
}

// FrameNames returns the names of all frames other than World.
func (sfs *StaticFrameSystem) FrameNames() []string {
	sfs.mu.RLock()
	defer sfs.mu.RUnlock()
	names := make([]string, 0, len(sfs.parents))
	for name := range sfs.parents {
		names = append(names, name)
	}
	return names
}

// TransformPose expresses pose, given in source, in target. If either frame is unknown the call
// waits for it to be added until ctx is done.
func (sfs *StaticFrameSystem) TransformPose(
	ctx context.Context,
	pose spatialmath.Pose,
	source, target string,
) (spatialmath.Pose, error) {
	for {
		sourceToWorld, errSource := sfs.toWorld(source)
		targetToWorld, errTarget := sfs.toWorld(target)
		if errSource == nil && errTarget == nil {
			out := targetToWorld.Inverse().Compose(sourceToWorld.Compose(pose))
			out.Time = pose.Time
			return out, nil
		}
		if !goutils.SelectContextOrWait(ctx, sfs.pollInterval) {
			missing := errSource
			if missing == nil {
				missing = errTarget
			}
			return spatialmath.Pose{}, multierr.Combine(NewTransformUnavailableError(source, target, missing), ctx.Err())
		}
	}
}

func (sfs *StaticFrameSystem) toWorld(name string) (spatialmath.Pose, error) {
	sfs.mu.RLock()
	defer sfs.mu.RUnlock()
	if !sfs.exists(name) {
		return spatialmath.Pose{}, NewFrameMissingError(name)
	}
	result := spatialmath.Pose{}
	for current := name; current != World; current = sfs.parents[current] {
		result = sfs.offsets[current].Compose(result)
	}
	return result, nil
}

func (sfs *StaticFrameSystem) exists(name string) bool {
	if name == World {
		return true
	}
	_, ok := sfs.parents[name]
	return ok
}
