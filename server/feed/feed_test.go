package feed

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/hootsocial/hoot/server/auth"
	"github.com/hootsocial/hoot/server/store"
	"github.com/hootsocial/hoot/server/store/mock_store"
	"github.com/hootsocial/hoot/server/store/types"
)

// stubAuth is a canned authenticator: it returns a fixed record or a fixed
// error regardless of the credential.
type stubAuth struct {
	rec *auth.Rec
	err error
}

func (stubAuth) Init(json.RawMessage, string) error { return nil }

func (a stubAuth) Authenticate([]byte) (*auth.Rec, error) {
	if a.err != nil {
		return nil, a.err
	}
	return a.rec, nil
}

func (stubAuth) GenSecret(*auth.Rec) ([]byte, time.Time, error) {
	return nil, time.Time{}, types.ErrUnsupported
}

const (
	aliceUid = types.Uid(10001)
	bobUid   = types.Uid(10002)
)

var testSecret = []byte("test-credential")

type feedFixture struct {
	feed  *Feed
	hub   *Hub
	users *mock_store.MockUsersPersistenceInterface
	posts *mock_store.MockPostsPersistenceInterface
}

// newFixture wires a Feed over mocked storage with a caller authenticated as
// the given uid.
func newFixture(t *testing.T, ctrl *gomock.Controller, uid types.Uid) *feedFixture {
	f := &feedFixture{
		hub:   NewHub(),
		users: mock_store.NewMockUsersPersistenceInterface(ctrl),
		posts: mock_store.NewMockPostsPersistenceInterface(ctrl),
	}
	store.Users = f.users
	store.Posts = f.posts
	f.feed = NewFeed(f.hub, stubAuth{rec: &auth.Rec{Uid: uid, AuthLevel: auth.LevelAuth}})
	t.Cleanup(f.hub.Shutdown)
	return f
}

func (f *feedFixture) expectUser(uid types.Uid, username string) {
	user := &types.User{Username: username}
	user.SetUid(uid)
	f.users.EXPECT().Get(uid).Return(user, nil).AnyTimes()
}

func testPost(uid types.Uid, author types.Uid, body string) *types.Post {
	post := &types.Post{Body: body, User: author.String()}
	post.SetUid(uid)
	post.Id = uid.String()
	return post
}

func TestCreatePostPublishes(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	f.posts.EXPECT().Create(gomock.Any()).DoAndReturn(
		func(post *types.Post) (*types.Post, error) {
			if post.Username != "alice" || post.User != aliceUid.String() {
				t.Errorf("post not stamped with caller identity: %+v", post)
			}
			post.SetUid(types.Uid(42))
			post.Id = types.Uid(42).String()
			return post, nil
		})

	sub := f.feed.SubscribeNewPosts()

	post, err := f.feed.CreatePost(testSecret, "hello world")
	if err != nil {
		t.Fatalf("CreatePost failed: %v", err)
	}
	if post.Body != "hello world" {
		t.Fatalf("unexpected post body %q", post.Body)
	}

	msg := recvEvent(t, sub)
	if msg.Topic != TopicNewPost || msg.Post == nil || msg.Post.Id != post.Id {
		t.Fatalf("unexpected event %+v", msg)
	}
}

func TestCreatePostBlankBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)

	sub := f.feed.SubscribeNewPosts()

	// Validation runs before authentication and before any store call.
	_, err := f.feed.CreatePost(testSecret, "   \t\n")
	var verr types.ValidationError
	if !errors.As(err, &verr) || verr.Field != "body" {
		t.Fatalf("expected validation error on body, got %v", err)
	}
	assertNoEvent(t, sub)
}

func TestCreatePostNoCredential(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)

	if _, err := f.feed.CreatePost(nil, "hello"); err != types.ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestCreatePostBadCredential(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.feed = NewFeed(f.hub, stubAuth{err: types.ErrExpired})

	if _, err := f.feed.CreatePost(testSecret, "hello"); err != types.ErrInvalidCredential {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestCreatePostDeletedAccount(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.users.EXPECT().Get(aliceUid).Return(nil, nil)

	if _, err := f.feed.CreatePost(testSecret, "hello"); err != types.ErrInvalidCredential {
		t.Fatalf("expected ErrInvalidCredential, got %v", err)
	}
}

func TestDeletePostPublishesBareId(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	postUid := types.Uid(42)
	post := testPost(postUid, aliceUid, "doomed")
	f.posts.EXPECT().Get(postUid).Return(post, nil)
	f.posts.EXPECT().Delete(post).Return(nil)

	sub := f.feed.SubscribePostDeletes()

	if err := f.feed.DeletePost(testSecret, post.Id); err != nil {
		t.Fatalf("DeletePost failed: %v", err)
	}

	msg := recvEvent(t, sub)
	if msg.Topic != TopicPostDelete || msg.PostId != post.Id {
		t.Fatalf("unexpected event %+v", msg)
	}
	if msg.Post != nil {
		t.Fatal("deletion event must carry the bare id, not the post")
	}
}

func TestDeletePostNotAuthor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	postUid := types.Uid(42)
	f.posts.EXPECT().Get(postUid).Return(testPost(postUid, bobUid, "bob's post"), nil)

	sub := f.feed.SubscribePostDeletes()

	if err := f.feed.DeletePost(testSecret, postUid.String()); err != types.ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	assertNoEvent(t, sub)
}

func TestDeletePostMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	postUid := types.Uid(42)
	f.posts.EXPECT().Get(postUid).Return(nil, nil)

	if err := f.feed.DeletePost(testSecret, postUid.String()); err != types.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// A garbage id never reaches storage.
	if err := f.feed.DeletePost(testSecret, "not-a-real-id!!"); err != types.ErrNotFound {
		t.Fatalf("expected ErrNotFound for malformed id, got %v", err)
	}
}

func TestCreateCommentPrepends(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	postUid := types.Uid(42)
	post := testPost(postUid, bobUid, "bob's post")
	post.Comments = []types.Comment{{Id: "c1", Body: "first", Username: "bob"}}
	f.posts.EXPECT().Get(postUid).Return(post, nil)
	f.posts.EXPECT().Update(gomock.Any()).DoAndReturn(
		func(p *types.Post) (*types.Post, error) { return p, nil })

	sub := f.feed.SubscribeComments(post.Id)

	updated, err := f.feed.CreateComment(testSecret, post.Id, "second")
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	if len(updated.Comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(updated.Comments))
	}
	if updated.Comments[0].Body != "second" || updated.Comments[0].Username != "alice" {
		t.Fatalf("new comment not at the head: %+v", updated.Comments)
	}
	if updated.Comments[1].Body != "first" {
		t.Fatalf("existing comment displaced: %+v", updated.Comments)
	}

	msg := recvEvent(t, sub)
	if msg.Topic != TopicOnComment || msg.Post == nil || msg.Post.Id != post.Id {
		t.Fatalf("unexpected event %+v", msg)
	}
}

func TestCreateCommentBlankBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	_, err := f.feed.CreateComment(testSecret, types.Uid(42).String(), "  ")
	var verr types.ValidationError
	if !errors.As(err, &verr) || verr.Field != "body" {
		t.Fatalf("expected validation error on body, got %v", err)
	}
}

func TestDeleteComment(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	postUid := types.Uid(42)
	post := testPost(postUid, bobUid, "bob's post")
	post.Comments = []types.Comment{
		{Id: "c2", Body: "mine", Username: "alice"},
		{Id: "c1", Body: "keep", Username: "bob"},
	}
	f.posts.EXPECT().Get(postUid).Return(post, nil)
	f.posts.EXPECT().Update(gomock.Any()).DoAndReturn(
		func(p *types.Post) (*types.Post, error) { return p, nil })

	updated, err := f.feed.DeleteComment(testSecret, post.Id, "c2")
	if err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}
	if len(updated.Comments) != 1 || updated.Comments[0].Id != "c1" {
		t.Fatalf("wrong comment removed: %+v", updated.Comments)
	}
}

func TestDeleteCommentNotAuthor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	postUid := types.Uid(42)
	post := testPost(postUid, bobUid, "bob's post")
	post.Comments = []types.Comment{{Id: "c1", Body: "bob's", Username: "bob"}}
	f.posts.EXPECT().Get(postUid).Return(post, nil)

	if _, err := f.feed.DeleteComment(testSecret, post.Id, "c1"); err != types.ErrPermissionDenied {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if len(post.Comments) != 1 {
		t.Fatal("comment removed despite denied permission")
	}
}

func TestDeleteCommentMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	postUid := types.Uid(42)
	f.posts.EXPECT().Get(postUid).Return(testPost(postUid, bobUid, "no comments"), nil)

	if _, err := f.feed.DeleteComment(testSecret, postUid.String(), "nope"); err != types.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLikeToggle(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	postUid := types.Uid(42)
	post := testPost(postUid, bobUid, "likeable")
	f.posts.EXPECT().Get(postUid).Return(post, nil).Times(2)
	f.posts.EXPECT().Update(gomock.Any()).DoAndReturn(
		func(p *types.Post) (*types.Post, error) { return p, nil }).Times(2)

	sub := f.feed.SubscribeLikes(post.Id)

	liked, err := f.feed.LikePost(testSecret, post.Id)
	if err != nil {
		t.Fatalf("LikePost failed: %v", err)
	}
	if post.LikeIndex("alice") < 0 {
		t.Fatalf("like not added: %+v", liked.Likes)
	}

	unliked, err := f.feed.LikePost(testSecret, post.Id)
	if err != nil {
		t.Fatalf("second LikePost failed: %v", err)
	}
	if unliked.LikeIndex("alice") >= 0 {
		t.Fatalf("like not removed on toggle: %+v", unliked.Likes)
	}

	for i := 0; i < 2; i++ {
		msg := recvEvent(t, sub)
		if msg.Topic != TopicNewLike || msg.Post == nil || msg.Post.Id != post.Id {
			t.Fatalf("unexpected event %+v", msg)
		}
	}
}

func TestGetPostMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)

	postUid := types.Uid(42)
	f.posts.EXPECT().Get(postUid).Return(nil, nil)

	if _, err := f.feed.GetPost(postUid.String()); err != types.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetPosts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)

	all := []types.Post{*testPost(types.Uid(2), aliceUid, "newer"), *testPost(types.Uid(1), aliceUid, "older")}
	f.posts.EXPECT().GetAll().Return(all, nil)

	posts, err := f.feed.GetPosts()
	if err != nil {
		t.Fatalf("GetPosts failed: %v", err)
	}
	if diff := cmp.Diff(all, posts, cmpopts.IgnoreUnexported(types.ObjHeader{})); diff != "" {
		t.Fatalf("GetPosts mismatch (-want +got):\n%s", diff)
	}
}

// Comment events reach only subscribers filtered to the commented post.
func TestCommentEventFiltering(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture(t, ctrl, aliceUid)
	f.expectUser(aliceUid, "alice")

	first := testPost(types.Uid(42), bobUid, "first")
	second := testPost(types.Uid(99), bobUid, "second")
	f.posts.EXPECT().Get(types.Uid(42)).Return(first, nil)
	f.posts.EXPECT().Get(types.Uid(99)).Return(second, nil)
	f.posts.EXPECT().Update(gomock.Any()).DoAndReturn(
		func(p *types.Post) (*types.Post, error) { return p, nil }).Times(2)

	watchFirst := f.feed.SubscribeComments(first.Id)
	watchSecond := f.feed.SubscribeComments(second.Id)

	if _, err := f.feed.CreateComment(testSecret, second.Id, "on second"); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	msg := recvEvent(t, watchSecond)
	if msg.Post.Id != second.Id {
		t.Fatalf("wrong post in event: %+v", msg)
	}
	assertNoEvent(t, watchFirst)

	if _, err := f.feed.CreateComment(testSecret, first.Id, "on first"); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	msg = recvEvent(t, watchFirst)
	if msg.Post.Id != first.Id {
		t.Fatalf("wrong post in event: %+v", msg)
	}
}
