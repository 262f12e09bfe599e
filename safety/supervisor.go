package safety

import (
	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/utils"
)

// Supervisor owns the observers named in a config. The set is fixed at construction.
type Supervisor struct {
	observers []Observer
	byTag     map[string]Observer
}

// NewSupervisor builds one observer per known tag, in order, configuring each from the attributes
// keyed by its tag. Unknown and repeated tags are logged and skipped. Malformed attributes for a
// known tag are an error.
func NewSupervisor(
	tags []string,
	attrs map[string]utils.AttributeMap,
	clk clock.Clock,
	logger logging.Logger,
) (*Supervisor, error) {
	s := &Supervisor{byTag: map[string]Observer{}}
	for _, tag := range lo.Uniq(tags) {
		var observer Observer
		switch tag {
		case ScanObserverTag:
			cfg, err := scanConfigFromAttributes(attrs[tag], "observers."+tag)
			if err != nil {
				return nil, err
			}
			observer = NewScanObserver(tag, cfg, clk, logger.Sublogger(tag))
		case ArmSkinObserverTag:
			if len(attrs[tag]) > 0 {
				logger.Warnw("arm skin observer takes no attributes", "attributes", attrs[tag])
			}
			observer = NewArmSkinObserver(tag, logger.Sublogger(tag))
		default:
			logger.Warnw("ignoring unknown safety observer", "tag", tag)
			continue
		}
		s.observers = append(s.observers, observer)
		s.byTag[tag] = observer
	}
	if dupes := lo.FindDuplicates(tags); len(dupes) > 0 {
		logger.Warnw("safety observers listed more than once", "tags", dupes)
	}
	return s, nil
}

// Observers returns the configured observers in order.
func (s *Supervisor) Observers() []Observer {
	return append([]Observer(nil), s.observers...)
}

// Observer returns the observer configured under tag, so sensor data can be fed to it.
func (s *Supervisor) Observer(tag string) (Observer, bool) {
	o, ok := s.byTag[tag]
	return o, ok
}

// AnyUnsafe returns true if any configured observer reports unsafe.
func (s *Supervisor) AnyUnsafe() bool {
	if s == nil {
		return false
	}
	return AnyUnsafe(s.observers)
}

// ValidateObserverAttributes checks the attributes configured for the observer tag. Attributes of
// unknown tags are not checked.
func ValidateObserverAttributes(tag string, attrs utils.AttributeMap, path string) error {
	if tag == ScanObserverTag {
		_, err := scanConfigFromAttributes(attrs, path)
		return err
	}
	return nil
}

func scanConfigFromAttributes(attrs utils.AttributeMap, path string) (ScanConfig, error) {
	cfg := DefaultScanConfig()
	if err := utils.DecodeAttributes(attrs, &cfg); err != nil {
		return ScanConfig{}, errors.Wrap(err, path)
	}
	if err := cfg.Validate(path); err != nil {
		return ScanConfig{}, err
	}
	return cfg, nil
}
