package viz

import (
	"go.uber.org/atomic"
)

// A Publisher forwards diagnostic messages. Implementations must not block the caller.
type Publisher interface {
	PublishReference(marker Marker)
	PublishCommand(markers []Marker)
	PublishTrajectory(trajectory Trajectory)
}

// Topics a Message can be published on.
const (
	TopicReference  = "reference_pose"
	TopicCommand    = "cmd_navigation"
	TopicTrajectory = "trajectory"
)

// Message is one published item. Exactly one of Markers or Trajectory is set.
type Message struct {
	Topic      string      `json:"topic"`
	Markers    []Marker    `json:"markers,omitempty"`
	Trajectory *Trajectory `json:"trajectory,omitempty"`
}

// NoopPublisher discards everything.
type NoopPublisher struct{}

// PublishReference does nothing.
func (NoopPublisher) PublishReference(Marker) {}

// PublishCommand does nothing.
func (NoopPublisher) PublishCommand([]Marker) {}

// PublishTrajectory does nothing.
func (NoopPublisher) PublishTrajectory(Trajectory) {}

// ChannelPublisher queues messages on a buffered channel and drops them when the buffer is full.
type ChannelPublisher struct {
	ch      chan Message
	dropped atomic.Uint64
}

// NewChannelPublisher returns a publisher with room for size pending messages.
func NewChannelPublisher(size int) *ChannelPublisher {
	return &ChannelPublisher{ch: make(chan Message, size)}
}

// Messages returns the channel messages are delivered on.
func (p *ChannelPublisher) Messages() <-chan Message {
	return p.ch
}

// Dropped returns how many messages were discarded because nobody kept up.
func (p *ChannelPublisher) Dropped() uint64 {
	return p.dropped.Load()
}

// PublishReference queues the reference marker.
func (p *ChannelPublisher) PublishReference(marker Marker) {
	p.publish(Message{Topic: TopicReference, Markers: []Marker{marker}})
}

// PublishCommand queues the command markers.
func (p *ChannelPublisher) PublishCommand(markers []Marker) {
	p.publish(Message{Topic: TopicCommand, Markers: markers})
}

// PublishTrajectory queues the trajectory.
func (p *ChannelPublisher) PublishTrajectory(trajectory Trajectory) {
	p.publish(Message{Topic: TopicTrajectory, Trajectory: &trajectory})
}

func (p *ChannelPublisher) publish(msg Message) {
	select {
	case p.ch <- msg:
	default:
		p.dropped.Inc()
	}
}
