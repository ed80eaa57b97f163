/******************************************************************************
 *
 *  Description :
 *
 *    Main hub for processing events: creating topics on demand, attaching
 *    and detaching subscriptions, routing published events to topics.
 *
 *****************************************************************************/

package feed

import (
	"sync"

	"github.com/hootsocial/hoot/server/logs"
	"github.com/hootsocial/hoot/server/stats"
)

// Request to hub to attach a new subscription to a topic.
type subJoin struct {
	// Name of the topic to subscribe to.
	topic string
	// Filter captured at subscription time, nil to receive everything.
	match MatchFunc
	// Channel for returning the created subscription to the caller.
	resp chan *Subscription
}

// Hub is the core structure which holds topics and routes events to them.
// One instance is created at startup and handed to every service which
// publishes or subscribes; there is no package-level singleton.
type Hub struct {
	// Topics indexed by name.
	topics *sync.Map

	// Channel for routing published events to topics, buffered.
	route chan *EventMsg

	// Attach a subscription to a topic, possibly creating the topic, buffered.
	join chan *subJoin

	// Request to shutdown, unbuffered.
	shutdown chan chan<- bool
}

func (h *Hub) topicGet(name string) *Topic {
	if t, ok := h.topics.Load(name); ok {
		return t.(*Topic)
	}
	return nil
}

func (h *Hub) topicPut(name string, t *Topic) {
	h.topics.Store(name, t)
}

// NewHub creates and starts the event hub.
func NewHub() *Hub {
	h := &Hub{
		topics: &sync.Map{},
		// Buffered so a burst of mutations does not block the write path.
		route:    make(chan *EventMsg, 4096),
		join:     make(chan *subJoin, 64),
		shutdown: make(chan chan<- bool),
	}

	stats.RegisterInt("LiveTopics")
	stats.RegisterInt("TotalTopics")
	stats.RegisterInt("LiveSubscriptions")
	stats.RegisterInt("TotalSubscriptions")
	stats.RegisterInt("EventsPublishedTotal")
	stats.RegisterInt("EventsDeliveredTotal")
	stats.RegisterInt("EventsDroppedTotal")

	go h.run()

	return h
}

// Publish delivers the event to every live subscription on the event's topic
// whose filter accepts it. Publish is non-blocking and never fails: events
// published to a topic with no subscribers are discarded, and a slow or dead
// subscriber cannot affect the caller. Events on one topic are delivered to
// each subscriber in publish order.
func (h *Hub) Publish(msg *EventMsg) {
	select {
	case h.route <- msg:
		stats.Inc("EventsPublishedTotal", 1)
	default:
		// The hub is hopelessly backlogged. Drop rather than stall a mutation.
		stats.Inc("EventsDroppedTotal", 1)
		logs.Error.Println("hub: route queue full, event dropped", msg.Topic)
	}
}

// Subscribe attaches a new subscription to the named topic, creating the
// topic if it does not exist yet. The subscription starts empty: events
// published before Subscribe returns are not replayed. A nil match delivers
// every event on the topic.
func (h *Hub) Subscribe(topic string, match MatchFunc) *Subscription {
	resp := make(chan *Subscription, 1)
	h.join <- &subJoin{topic: topic, match: match, resp: resp}
	return <-resp
}

// Shutdown terminates the hub: all topics are shut down and all live
// subscription channels are closed.
func (h *Hub) Shutdown() {
	done := make(chan bool, 1)
	h.shutdown <- done
	<-done
}

func (h *Hub) run() {
	for {
		select {
		case join := <-h.join:
			// Get the requested topic, creating and starting it on first use.
			t := h.topicGet(join.topic)
			if t == nil {
				t = newTopic(join.topic)
				h.topicPut(join.topic, t)
				stats.Inc("LiveTopics", 1)
				stats.Inc("TotalTopics", 1)
				go t.run()
			}

			// The topic attaches the subscription and responds on join.resp.
			// This keeps registration serialized with fan-out and teardown.
			select {
			case t.reg <- join:
			default:
				// The topic's reg queue is full. Keep the hub loop moving and
				// let the caller wait until the topic drains.
				logs.Warning.Println("hub: topic's reg queue full", join.topic)
				go t.register(join)
			}

		case msg := <-h.route:
			// Deliver the event to the topic if the topic has ever been
			// subscribed to. A missing topic means zero subscribers: no-op.
			if dst := h.topicGet(msg.Topic); dst != nil {
				select {
				case dst.broadcast <- msg:
				default:
					logs.Error.Println("hub: topic's broadcast queue is full", dst.name)
				}
			}

		case done := <-h.shutdown:
			h.topics.Range(func(_, t interface{}) bool {
				topic := t.(*Topic)
				exit := make(chan bool, 1)
				topic.exit <- exit
				<-exit
				return true
			})
			done <- true
			return
		}
	}
}
