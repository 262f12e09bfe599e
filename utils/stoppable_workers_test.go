package utils

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	var stopped atomic.Int32
	workers := NewStoppableWorkers(func(ctx context.Context) {
		<-ctx.Done()
		stopped.Add(1)
	})
	workers.AddWorkers(func(ctx context.Context) {
		<-ctx.Done()
		stopped.Add(1)
	})
	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, 2)

	// adding after stop is a no-op
	var ran atomic.Bool
	workers.AddWorkers(func(ctx context.Context) { ran.Store(true) })
	time.Sleep(10 * time.Millisecond)
	test.That(t, ran.Load(), test.ShouldBeFalse)
}

func TestStoppableWorkersParentContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	workers := NewStoppableWorkersWithContext(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not observe parent cancellation")
	}
	workers.Stop()
}

func TestTickerWorker(t *testing.T) {
	mock := clock.NewMock()
	var calls atomic.Int32
	workers := NewStoppableWorkers(TickerWorker(mock, 100*time.Millisecond, func(ctx context.Context) {
		calls.Add(1)
	}))
	defer workers.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		mock.Add(100 * time.Millisecond)
		time.Sleep(time.Millisecond)
	}
	test.That(t, calls.Load(), test.ShouldBeGreaterThanOrEqualTo, 3)
}

func TestDecodeAttributes(t *testing.T) {
	type observerAttrs struct {
		MinDistance float64       `json:"min_distance"`
		MaxAge      time.Duration `json:"max_scan_age"`
		Name        string        `json:"name"`
	}
	var attrs observerAttrs
	err := DecodeAttributes(AttributeMap{"min_distance": 0.3, "max_scan_age": "250ms", "name": "front"}, &attrs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, attrs.MinDistance, test.ShouldEqual, 0.3)
	test.That(t, attrs.MaxAge, test.ShouldEqual, 250*time.Millisecond)
	test.That(t, attrs.Name, test.ShouldEqual, "front")

	err = DecodeAttributes(AttributeMap{"min_distanse": 0.3}, &attrs)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_distanse")
}

func TestDecodeEmptyAttributes(t *testing.T) {
	type attrs struct {
		MinDistance float64 `json:"min_distance"`
	}
	decoded := attrs{MinDistance: 0.3}
	test.That(t, DecodeAttributes(nil, &decoded), test.ShouldBeNil)
	test.That(t, decoded.MinDistance, test.ShouldEqual, 0.3)
}
