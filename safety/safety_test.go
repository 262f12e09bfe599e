package safety

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/utils"
)

type fakeObserver struct {
	safe  bool
	polls int
}

func (f *fakeObserver) Name() string { return "fake" }

func (f *fakeObserver) Safe() bool {
	f.polls++
	return f.safe
}

func TestAnyUnsafe(t *testing.T) {
	test.That(t, AnyUnsafe(nil), test.ShouldBeFalse)

	a, b, c := &fakeObserver{safe: true}, &fakeObserver{safe: false}, &fakeObserver{safe: false}
	test.That(t, AnyUnsafe([]Observer{a, b, c}), test.ShouldBeTrue)
	test.That(t, a.polls, test.ShouldEqual, 1)
	test.That(t, b.polls, test.ShouldEqual, 1)
	// short circuited
	test.That(t, c.polls, test.ShouldEqual, 0)

	b.safe, c.safe = true, true
	test.That(t, AnyUnsafe([]Observer{a, b, c}), test.ShouldBeFalse)
}

func TestArmSkinObserver(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	o := NewArmSkinObserver(ArmSkinObserverTag, logger)
	test.That(t, o.Name(), test.ShouldEqual, ArmSkinObserverTag)
	test.That(t, o.Safe(), test.ShouldBeTrue)

	o.UpdateContact(true)
	test.That(t, o.Safe(), test.ShouldBeFalse)
	o.UpdateContact(true)
	test.That(t, logs.FilterMessageSnippet("arm contact").Len(), test.ShouldEqual, 1)

	o.UpdateContact(false)
	test.That(t, o.Safe(), test.ShouldBeTrue)
}

func frontScan(ranges ...float64) Scan {
	// evenly spread from -π/2 to π/2
	inc := 0.0
	if len(ranges) > 1 {
		inc = math.Pi / float64(len(ranges)-1)
	}
	return Scan{AngleMin: -math.Pi / 2, AngleIncrement: inc, RangeMin: 0.05, RangeMax: 10, Ranges: ranges}
}

func TestScanObserverDistance(t *testing.T) {
	logger := logging.NewTestLogger(t)
	o := NewScanObserver(ScanObserverTag, DefaultScanConfig(), clock.NewMock(), logger)
	test.That(t, o.Safe(), test.ShouldBeTrue)

	o.UpdateScan(frontScan(1, 2, 0.25, 3))
	test.That(t, o.Safe(), test.ShouldBeFalse)
	test.That(t, o.Closest(), test.ShouldEqual, 0.25)

	// readings outside the sensor's valid span are ignored
	o.UpdateScan(frontScan(1, math.NaN(), 0.01, math.Inf(1), 20))
	test.That(t, o.Safe(), test.ShouldBeTrue)
	test.That(t, o.Closest(), test.ShouldEqual, 1.0)
}

func TestScanObserverFieldOfView(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := DefaultScanConfig()
	cfg.FieldOfView = math.Pi / 2
	o := NewScanObserver(ScanObserverTag, cfg, clock.NewMock(), logger)

	// -π/2, 0, π/2: only the middle reading is inside ±π/4
	o.UpdateScan(frontScan(0.1, 1, 0.1))
	test.That(t, o.Safe(), test.ShouldBeTrue)

	o.UpdateScan(frontScan(1, 0.1, 1))
	test.That(t, o.Safe(), test.ShouldBeFalse)
}

func TestScanObserverStaleness(t *testing.T) {
	logger := logging.NewTestLogger(t)
	mock := clock.NewMock()
	cfg := DefaultScanConfig()
	cfg.MaxScanAge = 200 * time.Millisecond
	o := NewScanObserver(ScanObserverTag, cfg, mock, logger)

	// nothing received yet
	test.That(t, o.Safe(), test.ShouldBeFalse)

	o.UpdateScan(frontScan(2, 2, 2))
	test.That(t, o.Safe(), test.ShouldBeTrue)

	mock.Add(150 * time.Millisecond)
	test.That(t, o.Safe(), test.ShouldBeTrue)

	mock.Add(100 * time.Millisecond)
	test.That(t, o.Safe(), test.ShouldBeFalse)

	o.UpdateScan(frontScan(2, 2, 2))
	test.That(t, o.Safe(), test.ShouldBeTrue)
}

func TestScanConfigValidate(t *testing.T) {
	test.That(t, DefaultScanConfig().Validate("observers.scan"), test.ShouldBeNil)

	cfg := DefaultScanConfig()
	cfg.MinDistance = -1
	err := cfg.Validate("observers.scan")
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_distance")

	cfg = DefaultScanConfig()
	cfg.FieldOfView = 7
	test.That(t, cfg.Validate("observers.scan"), test.ShouldNotBeNil)

	cfg = DefaultScanConfig()
	cfg.MaxScanAge = -time.Second
	test.That(t, cfg.Validate("observers.scan"), test.ShouldNotBeNil)
}

func TestNewSupervisor(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	sup, err := NewSupervisor(
		[]string{ScanObserverTag, "laser_curtain", ArmSkinObserverTag, ScanObserverTag},
		map[string]utils.AttributeMap{ScanObserverTag: {"min_distance": 0.5}},
		clock.NewMock(),
		logger,
	)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, sup.Observers(), test.ShouldHaveLength, 2)
	test.That(t, sup.Observers()[0].Name(), test.ShouldEqual, ScanObserverTag)
	test.That(t, sup.Observers()[1].Name(), test.ShouldEqual, ArmSkinObserverTag)
	test.That(t, logs.FilterMessageSnippet("unknown safety observer").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessageSnippet("more than once").Len(), test.ShouldEqual, 1)

	_, ok := sup.Observer("laser_curtain")
	test.That(t, ok, test.ShouldBeFalse)

	test.That(t, sup.AnyUnsafe(), test.ShouldBeFalse)
	scan, ok := sup.Observer(ScanObserverTag)
	test.That(t, ok, test.ShouldBeTrue)
	scan.(*ScanObserver).UpdateScan(frontScan(0.4))
	test.That(t, sup.AnyUnsafe(), test.ShouldBeTrue)
	scan.(*ScanObserver).UpdateScan(frontScan(0.6))
	test.That(t, sup.AnyUnsafe(), test.ShouldBeFalse)

	skin, ok := sup.Observer(ArmSkinObserverTag)
	test.That(t, ok, test.ShouldBeTrue)
	skin.(*ArmSkinObserver).UpdateContact(true)
	test.That(t, sup.AnyUnsafe(), test.ShouldBeTrue)

	var nilSupervisor *Supervisor
	test.That(t, nilSupervisor.AnyUnsafe(), test.ShouldBeFalse)
}

func TestNewSupervisorBadAttributes(t *testing.T) {
	logger := logging.NewTestLogger(t)
	_, err := NewSupervisor(
		[]string{ScanObserverTag},
		map[string]utils.AttributeMap{ScanObserverTag: {"min_distanse": 0.5}},
		clock.NewMock(),
		logger,
	)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_distanse")

	_, err = NewSupervisor(
		[]string{ScanObserverTag},
		map[string]utils.AttributeMap{ScanObserverTag: {"field_of_view": 0}},
		clock.NewMock(),
		logger,
	)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "field_of_view")
}
