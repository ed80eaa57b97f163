/******************************************************************************
 *
 *  Description :
 *
 *    A single live subscription: one client's view of one topic. Holds the
 *    bounded delivery queue and the optional event filter.
 *
 *****************************************************************************/

package feed

import (
	"sync"

	"github.com/hootsocial/hoot/server/logs"
	"github.com/hootsocial/hoot/server/stats"
)

// Maximum number of undelivered events queued per subscription.
const sendQueueLimit = 128

// MatchFunc is a subscription filter: a pure predicate over the event,
// evaluated once per published event. Subscription arguments (such as the
// post id of interest) are captured by the closure when the subscription is
// created and are immutable for its lifetime.
type MatchFunc func(*EventMsg) bool

// MatchPost returns a filter which accepts only events carrying a post
// snapshot with the given id. Events without a snapshot never match.
func MatchPost(postId string) MatchFunc {
	return func(msg *EventMsg) bool {
		return msg.Post != nil && msg.Post.Id == postId
	}
}

// Subscription is a live, per-connection listener on a single topic. It is
// created by Hub.Subscribe and destroyed by Leave or hub shutdown. The
// delivery channel is written and closed only by the topic goroutine.
type Subscription struct {
	// Name of the topic this subscription is attached to.
	topic string

	// Event filter, nil to receive everything.
	match MatchFunc

	// Outbound events, buffered at sendQueueLimit.
	events chan *EventMsg

	// Channel to request detachment, copy of Topic.unreg.
	unreg chan<- *Subscription

	// Closed when the owning topic terminates.
	killed <-chan struct{}

	// Makes Leave idempotent.
	leave sync.Once
}

// Events returns the subscription's delivery channel. The channel is closed
// when the subscription is detached from its topic, so receivers may simply
// range over it.
func (s *Subscription) Events() <-chan *EventMsg {
	return s.events
}

// Topic returns the name of the topic this subscription is attached to.
func (s *Subscription) Topic() string {
	return s.topic
}

// Leave detaches the subscription from its topic. It is idempotent and safe
// to call concurrently with an in-flight publish: the detach is processed by
// the topic goroutine, after which no further events are delivered and the
// delivery channel is closed.
func (s *Subscription) Leave() {
	s.leave.Do(func() {
		select {
		case s.unreg <- s:
		case <-s.killed:
			// Topic is already gone; it closed the delivery channel itself.
		}
	})
}

// queueOut places an event on the delivery queue. If the queue is full the
// oldest undelivered event is dropped to make room: subscriptions feed live
// views where the latest state matters more than completeness. Dropped
// events are counted and logged. Called only by the topic goroutine.
func (s *Subscription) queueOut(msg *EventMsg) {
	for {
		select {
		case s.events <- msg:
			stats.Inc("EventsDeliveredTotal", 1)
			return
		default:
		}

		// Queue is full: evict the oldest event and retry. The topic
		// goroutine is the only sender, so the retry can fail at most
		// as often as the consumer drains concurrently.
		select {
		case <-s.events:
			stats.Inc("EventsDroppedTotal", 1)
			logs.Warning.Println("sub.queueOut: queue full, dropped oldest event, topic", s.topic)
		default:
		}
	}
}
