/******************************************************************************
 *
 *  Description :
 *
 *    Event topics and payloads exchanged between the write path and live
 *    subscriptions.
 *
 *****************************************************************************/

package feed

import (
	"time"

	"github.com/hootsocial/hoot/server/store/types"
)

// Names of the event topics. The names and the payload shapes are the
// de-facto wire contract with clients and must be preserved exactly.
const (
	// TopicNewPost announces a newly created post. Payload: full post snapshot.
	TopicNewPost = "NEW_POST"
	// TopicPostDelete announces a deleted post. Payload: bare post id.
	// Unlike comment and like events it is not scoped to a post filter,
	// it is broadcast to every subscriber of the topic.
	TopicPostDelete = "POST_DELETE"
	// TopicOnComment announces an added or removed comment. Payload: the
	// updated post snapshot.
	TopicOnComment = "ON_COMMENT"
	// TopicNewLike announces a like toggle. Payload: the updated post snapshot.
	TopicNewLike = "NEW_LIKE"
)

// EventMsg is an immutable (topic, payload) pair. Exactly one of Post or
// PostId is set depending on the topic. Events are not persisted: delivery is
// best-effort with no replay for late subscribers.
type EventMsg struct {
	// Topic the event was published to.
	Topic string `json:"topic"`
	// Post snapshot. Set for NEW_POST, ON_COMMENT, NEW_LIKE.
	Post *types.Post `json:"post,omitempty"`
	// Bare post id. Set for POST_DELETE.
	PostId string `json:"postId,omitempty"`
	// Time when the event was published.
	Timestamp time.Time `json:"ts"`
}
