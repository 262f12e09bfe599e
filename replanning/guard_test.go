package replanning

import (
	"sync"
	"testing"

	"go.viam.com/test"
)

func TestGuardLifecycle(t *testing.T) {
	g := NewGuard()
	test.That(t, g.Enabled(), test.ShouldBeTrue)
	test.That(t, g.ReplanningFlag(), test.ShouldBeTrue)

	g.Clear()
	test.That(t, g.ReplanningFlag(), test.ShouldBeFalse)
	g.Clear()
	test.That(t, g.ReplanningFlag(), test.ShouldBeFalse)

	g.Request()
	test.That(t, g.ReplanningFlag(), test.ShouldBeTrue)
}

func TestGuardDisabled(t *testing.T) {
	g := NewGuard()
	g.Clear()
	g.Disable()
	test.That(t, g.Enabled(), test.ShouldBeFalse)

	g.Request()
	test.That(t, g.ReplanningFlag(), test.ShouldBeFalse)
	g.Enable()
	test.That(t, g.ReplanningFlag(), test.ShouldBeFalse)

	// a pending request is hidden while disabled and visible again after
	g.Request()
	g.Disable()
	test.That(t, g.ReplanningFlag(), test.ShouldBeFalse)
	g.Enable()
	test.That(t, g.ReplanningFlag(), test.ShouldBeTrue)
}

func TestGuardConcurrentUse(t *testing.T) {
	g := NewGuard()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if (i+j)%2 == 0 {
					g.Request()
				} else {
					g.Clear()
				}
				g.ReplanningFlag()
			}
		}(i)
	}
	wg.Wait()
	g.Request()
	test.That(t, g.ReplanningFlag(), test.ShouldBeTrue)
}
