package safety

import (
	"go.uber.org/atomic"

	"go.viam.com/localplanner/logging"
)

// ArmSkinObserver is unsafe while the arm's contact skin reports being pressed.
type ArmSkinObserver struct {
	name    string
	logger  logging.Logger
	pressed atomic.Bool
}

// NewArmSkinObserver returns an observer that starts out safe.
func NewArmSkinObserver(name string, logger logging.Logger) *ArmSkinObserver {
	return &ArmSkinObserver{name: name, logger: logger}
}

// Name returns the name the observer was configured under.
func (o *ArmSkinObserver) Name() string {
	return o.name
}

// UpdateContact records whether any skin cell is pressed.
func (o *ArmSkinObserver) UpdateContact(pressed bool) {
	if old := o.pressed.Swap(pressed); old != pressed && pressed {
		o.logger.Warnw("arm contact detected", "observer", o.name)
	}
}

// Safe returns false while contact is reported.
func (o *ArmSkinObserver) Safe() bool {
	return !o.pressed.Load()
}
