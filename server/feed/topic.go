/******************************************************************************
 *
 *  Description :
 *
 *    A single named event topic. The topic's goroutine owns the set of live
 *    subscriptions: attach, detach and fan-out are all serialized through it,
 *    so an in-flight fan-out can never race a concurrent unsubscribe.
 *
 *****************************************************************************/

package feed

import (
	"github.com/hootsocial/hoot/server/stats"
)

// Topic is a named channel for one kind of event. Topics are created by the
// hub on first use and live until the hub shuts down.
type Topic struct {
	// Name of the topic.
	name string

	// Set of live subscriptions. Accessed only by the topic goroutine.
	subs map[*Subscription]bool

	// Events to fan out, buffered; copy of what the hub routes here.
	broadcast chan *EventMsg

	// Attach a new subscription, buffered.
	reg chan *subJoin

	// Detach a subscription, buffered.
	unreg chan *Subscription

	// Request to shutdown, buffered 1.
	exit chan chan<- bool

	// Closed when the topic goroutine terminates. Leave() selects on it so
	// an unsubscribe after shutdown cannot block forever.
	killed chan struct{}
}

func newTopic(name string) *Topic {
	return &Topic{
		name:      name,
		subs:      make(map[*Subscription]bool),
		broadcast: make(chan *EventMsg, 256),
		reg:       make(chan *subJoin, 64),
		unreg:     make(chan *Subscription, 64),
		exit:      make(chan chan<- bool, 1),
		killed:    make(chan struct{}),
	}
}

// register hands a join request to the topic goroutine. If the topic
// terminates before the request is accepted the caller gets an already
// closed subscription instead of waiting forever.
func (t *Topic) register(join *subJoin) {
	select {
	case t.reg <- join:
	case <-t.killed:
		join.resp <- t.deadSubscription(join.match)
	}
}

// deadSubscription builds a subscription whose delivery channel is already
// closed. Handed out when a registration races topic shutdown; Leave on it
// is a no-op.
func (t *Topic) deadSubscription(match MatchFunc) *Subscription {
	s := &Subscription{
		topic:  t.name,
		match:  match,
		events: make(chan *EventMsg),
		unreg:  t.unreg,
		killed: t.killed,
	}
	close(s.events)
	return s
}

func (t *Topic) run() {
	for {
		select {
		case join := <-t.reg:
			// Attach a new subscription to this topic.
			sub := &Subscription{
				topic:  t.name,
				match:  join.match,
				events: make(chan *EventMsg, sendQueueLimit),
				unreg:  t.unreg,
				killed: t.killed,
			}
			t.subs[sub] = true
			stats.Inc("LiveSubscriptions", 1)
			stats.Inc("TotalSubscriptions", 1)
			join.resp <- sub

		case sub := <-t.unreg:
			// Detach a subscription. Safe against double removes: Leave is
			// idempotent, only a live subscription is torn down.
			if t.subs[sub] {
				delete(t.subs, sub)
				close(sub.events)
				stats.Inc("LiveSubscriptions", -1)
			}

		case msg := <-t.broadcast:
			// Fan the event out to every live subscription whose filter
			// accepts it. Delivery is per-subscription: one laggard cannot
			// block the others.
			for sub := range t.subs {
				if sub.match != nil && !sub.match(msg) {
					continue
				}
				sub.queueOut(msg)
			}

		case done := <-t.exit:
			for sub := range t.subs {
				delete(t.subs, sub)
				close(sub.events)
				stats.Inc("LiveSubscriptions", -1)
			}
			close(t.killed)
			// Answer registrations that were queued but never processed so
			// their callers do not hang on the response channel.
			for {
				select {
				case join := <-t.reg:
					join.resp <- t.deadSubscription(join.match)
					continue
				default:
				}
				break
			}
			done <- true
			return
		}
	}
}
