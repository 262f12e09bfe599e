package viz

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.viam.com/test"

	"go.viam.com/localplanner/logging"
	"go.viam.com/localplanner/spatialmath"
)

func TestReferenceMarker(t *testing.T) {
	stamp := time.Unix(50, 0)
	m := ReferenceMarker(spatialmath.NewPose(1, 2, math.Pi/2).Stamped(stamp), "map")
	test.That(t, m.Namespace, test.ShouldEqual, NamespaceReference)
	test.That(t, m.Frame, test.ShouldEqual, "map")
	test.That(t, m.Time, test.ShouldEqual, stamp)
	test.That(t, m.Position.X, test.ShouldEqual, 1.0)
	test.That(t, m.Position.Y, test.ShouldEqual, 2.0)
	test.That(t, spatialmath.YawFromQuaternion(m.Orientation), test.ShouldAlmostEqual, math.Pi/2)
	test.That(t, m.Scale.X, test.ShouldEqual, arrowLength)
}

func TestCommandMarkers(t *testing.T) {
	robot := spatialmath.NewPose(0, 0, math.Pi/2)
	markers := CommandMarkers(robot, "map", spatialmath.NewTwist(0, 0.5, 0.3, spatialmath.FrameBody))
	test.That(t, markers, test.ShouldHaveLength, 2)

	linear, angular := markers[0], markers[1]
	test.That(t, linear.ID, test.ShouldEqual, 0)
	test.That(t, linear.Scale.X, test.ShouldAlmostEqual, 0.5)
	// moving left while facing +y points along -x
	heading := spatialmath.NewPose(0, 0, spatialmath.YawFromQuaternion(linear.Orientation))
	test.That(t, spatialmath.AngularDistance(heading, spatialmath.NewPose(0, 0, math.Pi)), test.ShouldBeLessThan, 1e-9)

	test.That(t, angular.ID, test.ShouldEqual, 1)
	test.That(t, angular.Scale.X, test.ShouldAlmostEqual, 0.3)
	test.That(t, angular.Position.X, test.ShouldAlmostEqual, 0.0, 1e-9)
	test.That(t, angular.Position.Y, test.ShouldAlmostEqual, arrowLength)
}

func TestChannelPublisherDrops(t *testing.T) {
	p := NewChannelPublisher(2)
	p.PublishReference(Marker{})
	p.PublishCommand([]Marker{{}, {ID: 1}})
	p.PublishTrajectory(Trajectory{})
	p.PublishTrajectory(Trajectory{})
	test.That(t, p.Dropped(), test.ShouldEqual, 2)

	msg := <-p.Messages()
	test.That(t, msg.Topic, test.ShouldEqual, TopicReference)
	msg = <-p.Messages()
	test.That(t, msg.Topic, test.ShouldEqual, TopicCommand)
	test.That(t, msg.Markers, test.ShouldHaveLength, 2)

	p.PublishTrajectory(Trajectory{Frame: "map"})
	msg = <-p.Messages()
	test.That(t, msg.Trajectory, test.ShouldNotBeNil)
	test.That(t, msg.Trajectory.Frame, test.ShouldEqual, "map")
}

func TestNoopPublisher(t *testing.T) {
	var p Publisher = NoopPublisher{}
	p.PublishReference(Marker{})
	p.PublishCommand(nil)
	p.PublishTrajectory(Trajectory{})
}

func TestJSONSink(t *testing.T) {
	logger := logging.NewTestLogger(t)
	var buf bytes.Buffer
	sink := NewJSONSink(&buf, logger)

	p := NewChannelPublisher(4)
	id := uuid.New()
	stamp := time.Unix(10, 0)
	p.PublishTrajectory(NewTrajectory(id, "map", stamp, []spatialmath.Pose{
		spatialmath.NewPose(0, 0, 0),
		spatialmath.NewPose(1, 0, 0),
	}))
	// NaN cannot be encoded and is skipped
	p.PublishReference(ReferenceMarker(spatialmath.NewPose(math.NaN(), 0, 0), "map"))
	p.PublishReference(ReferenceMarker(spatialmath.NewPose(1, 0, 0), "map"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		sink.Run(ctx, p.Messages())
	}()
	deadline := time.Now().Add(5 * time.Second)
	for len(p.Messages()) > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	test.That(t, lines, test.ShouldHaveLength, 2)

	var msg Message
	test.That(t, json.Unmarshal([]byte(lines[0]), &msg), test.ShouldBeNil)
	test.That(t, msg.Topic, test.ShouldEqual, TopicTrajectory)
	test.That(t, msg.Trajectory.PlanID, test.ShouldEqual, id)
	test.That(t, msg.Trajectory.Poses, test.ShouldHaveLength, 2)
	test.That(t, msg.Trajectory.Poses[1].Time.Equal(stamp), test.ShouldBeTrue)

	test.That(t, json.Unmarshal([]byte(lines[1]), &msg), test.ShouldBeNil)
	test.That(t, msg.Topic, test.ShouldEqual, TopicReference)
}
