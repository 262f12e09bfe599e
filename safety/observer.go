// Package safety contains the observers that veto motion and the supervisor that polls them.
package safety

// Tags of the known observers, as they appear in a config's safety_observers list.
const (
	ScanObserverTag    = "scan_safety_observer"
	ArmSkinObserverTag = "arm_skin_observer"
)

// An Observer reports whether its sensing modality considers it safe to move.
type Observer interface {
	Name() string
	Safe() bool
}

// AnyUnsafe returns true if any observer reports unsafe. Evaluation stops at the first unsafe
// observer, so observers must not depend on being polled every cycle.
func AnyUnsafe(observers []Observer) bool {
	for _, o := range observers {
		if !o.Safe() {
			return true
		}
	}
	return false
}
