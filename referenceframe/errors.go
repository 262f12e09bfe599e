package referenceframe

import "github.com/pkg/errors"

// ErrTransformUnavailable is the cause of every failed transform lookup.
var ErrTransformUnavailable = errors.New("transform unavailable")

// NewFrameMissingError returns an error indicating that the given frame is missing from the frame system.
func NewFrameMissingError(frameName string) error {
	return errors.Errorf("frame with name %q not in frame system", frameName)
}

// NewFrameAlreadyExistsError returns an error indicating that a frame of the given name already exists.
func NewFrameAlreadyExistsError(frameName string) error {
	return errors.Errorf("frame with name %q already exists in frame system", frameName)
}

// NewTransformUnavailableError returns an error wrapping ErrTransformUnavailable.
func NewTransformUnavailableError(source, target string, cause error) error {
	return errors.Wrapf(ErrTransformUnavailable, "%s -> %s: %v", source, target, cause)
}
