/******************************************************************************
 *
 *  Description :
 *
 *    The write path of the feed: post, comment and like mutations. Every
 *    mutation resolves the caller's identity first, applies its store effect,
 *    and only then announces the new state on the hub. Validation and
 *    authorization failures abort before any effect; a failed store call
 *    publishes nothing.
 *
 *****************************************************************************/

package feed

import (
	"strings"

	"github.com/hootsocial/hoot/server/auth"
	"github.com/hootsocial/hoot/server/logs"
	"github.com/hootsocial/hoot/server/store"
	"github.com/hootsocial/hoot/server/store/types"
)

// Feed exposes the feed operations to transports. The transport is expected
// to hand in already-parsed arguments and the caller's raw credential.
type Feed struct {
	hub  *Hub
	auth auth.AuthHandler
}

// NewFeed creates the feed service around the given hub and authenticator.
func NewFeed(hub *Hub, authhdl auth.AuthHandler) *Feed {
	return &Feed{hub: hub, auth: authhdl}
}

// identity is the resolved caller of a mutation. It is never persisted: it's
// used for authorization checks and for stamping new posts, comments and
// likes.
type identity struct {
	uid      types.Uid
	username string
}

// authorize resolves the caller's identity from a credential, or fails
// closed: ErrUnauthenticated when no credential is supplied,
// ErrInvalidCredential when verification fails.
func (f *Feed) authorize(secret []byte) (*identity, error) {
	if len(secret) == 0 {
		return nil, types.ErrUnauthenticated
	}
	if f.auth == nil {
		logs.Error.Println("feed: no authenticator configured")
		return nil, types.ErrInternal
	}

	rec, err := f.auth.Authenticate(secret)
	if err != nil {
		logs.Info.Println("feed: credential rejected:", err)
		return nil, types.ErrInvalidCredential
	}

	user, err := store.Users.Get(rec.Uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// The token was signed for an account which no longer exists.
		return nil, types.ErrInvalidCredential
	}

	return &identity{uid: rec.Uid, username: user.Username}, nil
}

// loadPost fetches a post by its string id, mapping a missing record to
// ErrNotFound.
func (f *Feed) loadPost(postId string) (*types.Post, error) {
	uid := types.ParseUid(postId)
	if uid.IsZero() {
		return nil, types.ErrNotFound
	}
	post, err := store.Posts.Get(uid)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, types.ErrNotFound
	}
	return post, nil
}

// GetPosts returns all posts, most recent first.
func (f *Feed) GetPosts() ([]types.Post, error) {
	return store.Posts.GetAll()
}

// GetPost returns a single post by id.
func (f *Feed) GetPost(postId string) (*types.Post, error) {
	return f.loadPost(postId)
}

// CreatePost stores a new post stamped with the caller's identity and
// announces it on NEW_POST.
func (f *Feed) CreatePost(secret []byte, body string) (*types.Post, error) {
	if strings.TrimSpace(body) == "" {
		return nil, types.ValidationError{Field: "body", Reason: "must not be empty"}
	}
	caller, err := f.authorize(secret)
	if err != nil {
		return nil, err
	}

	post, err := store.Posts.Create(&types.Post{
		Body:     body,
		Username: caller.username,
		User:     caller.uid.String(),
	})
	if err != nil {
		return nil, err
	}

	f.hub.Publish(&EventMsg{Topic: TopicNewPost, Post: post, Timestamp: types.TimeNow()})
	return post, nil
}

// DeletePost removes a post. Only the post's author may delete it. The
// deletion is announced on POST_DELETE with the bare post id; in-flight
// subscriptions are unaffected.
func (f *Feed) DeletePost(secret []byte, postId string) error {
	caller, err := f.authorize(secret)
	if err != nil {
		return err
	}
	post, err := f.loadPost(postId)
	if err != nil {
		return err
	}
	if post.User != caller.uid.String() {
		return types.ErrPermissionDenied
	}

	if err := store.Posts.Delete(post); err != nil {
		return err
	}

	f.hub.Publish(&EventMsg{Topic: TopicPostDelete, PostId: post.Id, Timestamp: types.TimeNow()})
	return nil
}

// CreateComment prepends a comment to the post's comment list and announces
// the updated post on ON_COMMENT.
func (f *Feed) CreateComment(secret []byte, postId, body string) (*types.Post, error) {
	caller, err := f.authorize(secret)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" {
		return nil, types.ValidationError{Field: "body", Reason: "must not be empty"}
	}
	post, err := f.loadPost(postId)
	if err != nil {
		return nil, err
	}

	// Newest comment first.
	post.Comments = append([]types.Comment{{
		Id:        store.GenerateCommentId(),
		Body:      body,
		Username:  caller.username,
		CreatedAt: types.TimeNow(),
	}}, post.Comments...)

	post, err = store.Posts.Update(post)
	if err != nil {
		return nil, err
	}

	f.hub.Publish(&EventMsg{Topic: TopicOnComment, Post: post, Timestamp: types.TimeNow()})
	return post, nil
}

// DeleteComment removes a comment from a post. Only the comment's author may
// delete it. The updated post is announced on ON_COMMENT.
func (f *Feed) DeleteComment(secret []byte, postId, commentId string) (*types.Post, error) {
	caller, err := f.authorize(secret)
	if err != nil {
		return nil, err
	}
	post, err := f.loadPost(postId)
	if err != nil {
		return nil, err
	}

	idx := post.CommentIndex(commentId)
	if idx < 0 {
		return nil, types.ErrNotFound
	}
	if post.Comments[idx].Username != caller.username {
		return nil, types.ErrPermissionDenied
	}
	post.Comments = append(post.Comments[:idx], post.Comments[idx+1:]...)

	post, err = store.Posts.Update(post)
	if err != nil {
		return nil, err
	}

	f.hub.Publish(&EventMsg{Topic: TopicOnComment, Post: post, Timestamp: types.TimeNow()})
	return post, nil
}

// LikePost toggles the caller's like on a post: added if absent, removed if
// present. The updated post is announced on NEW_LIKE. Two concurrent toggles
// by the same user resolve last-write-wins at the store; the like set keeps
// at most one entry per username.
func (f *Feed) LikePost(secret []byte, postId string) (*types.Post, error) {
	caller, err := f.authorize(secret)
	if err != nil {
		return nil, err
	}
	post, err := f.loadPost(postId)
	if err != nil {
		return nil, err
	}

	if idx := post.LikeIndex(caller.username); idx < 0 {
		post.Likes = append(post.Likes, types.Like{Username: caller.username, CreatedAt: types.TimeNow()})
	} else {
		post.Likes = append(post.Likes[:idx], post.Likes[idx+1:]...)
	}

	post, err = store.Posts.Update(post)
	if err != nil {
		return nil, err
	}

	f.hub.Publish(&EventMsg{Topic: TopicNewLike, Post: post, Timestamp: types.TimeNow()})
	return post, nil
}

// SubscribeNewPosts opens a live subscription to all new posts.
func (f *Feed) SubscribeNewPosts() *Subscription {
	return f.hub.Subscribe(TopicNewPost, nil)
}

// SubscribePostDeletes opens a live subscription to all post deletions.
func (f *Feed) SubscribePostDeletes() *Subscription {
	return f.hub.Subscribe(TopicPostDelete, nil)
}

// SubscribeComments opens a live subscription to comment activity on the
// given post.
func (f *Feed) SubscribeComments(postId string) *Subscription {
	return f.hub.Subscribe(TopicOnComment, MatchPost(postId))
}

// SubscribeLikes opens a live subscription to like activity on the given
// post.
func (f *Feed) SubscribeLikes(postId string) *Subscription {
	return f.hub.Subscribe(TopicNewLike, MatchPost(postId))
}
