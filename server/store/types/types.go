// Package types provides data types for persisting feed objects: users, posts,
// comments and likes.
package types

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

// StoreError satisfies Error interface but allows constant values for
// direct comparison.
type StoreError string

// Error is required by error interface.
func (s StoreError) Error() string {
	return string(s)
}

const (
	// ErrInternal means DB or other internal failure.
	ErrInternal = StoreError("internal")
	// ErrMalformed means the input is malformed.
	ErrMalformed = StoreError("malformed")
	// ErrFailed means authentication failed.
	ErrFailed = StoreError("failed")
	// ErrDuplicate means duplicate record, i.e. non-unique username.
	ErrDuplicate = StoreError("duplicate value")
	// ErrUnsupported means an operation is not supported.
	ErrUnsupported = StoreError("unsupported")
	// ErrExpired means the secret has expired.
	ErrExpired = StoreError("expired")
	// ErrNotFound means the object is not found.
	ErrNotFound = StoreError("not found")
	// ErrPermissionDenied means the caller is not permitted to touch the object.
	ErrPermissionDenied = StoreError("denied")
	// ErrUnauthenticated means no credential was supplied with the call.
	ErrUnauthenticated = StoreError("authentication required")
	// ErrInvalidCredential means the supplied credential failed verification.
	ErrInvalidCredential = StoreError("invalid credential")
	// ErrNotInitialized means the store is not initialized.
	ErrNotInitialized = StoreError("store not initialized")
)

// ValidationError is an input rejection with field-level detail. The store
// is not touched when it's returned.
type ValidationError struct {
	// Name of the offending input field.
	Field string
	// Human-readable explanation.
	Reason string
}

// Error is required by error interface.
func (v ValidationError) Error() string {
	return v.Field + ": " + v.Reason
}

// Uid is a database-specific record id, suitable to be used as a primary key.
type Uid uint64

// ZeroUid is a constant representing uninitialized Uid.
const ZeroUid Uid = 0

// Length of base64-encoded Uid with padding stripped.
const uidBase64Unpadded = 11

// IsZero checks if Uid is uninitialized.
func (uid Uid) IsZero() bool {
	return uid == 0
}

// Compare returns 0 if uid is equal to u2, 1 if u2 is greater than uid, -1 if u2 is smaller.
func (uid Uid) Compare(u2 Uid) int {
	if uid < u2 {
		return -1
	} else if uid > u2 {
		return 1
	}
	return 0
}

// MarshalBinary converts Uid into byte slice.
func (uid Uid) MarshalBinary() ([]byte, error) {
	dst := make([]byte, 8)
	binary.LittleEndian.PutUint64(dst, uint64(uid))
	return dst, nil
}

// UnmarshalBinary reads Uid from byte slice.
func (uid *Uid) UnmarshalBinary(b []byte) error {
	if len(b) < 8 {
		return errors.New("Uid.UnmarshalBinary: invalid length")
	}
	*uid = Uid(binary.LittleEndian.Uint64(b))
	return nil
}

// UnmarshalText reads Uid from string represented as byte slice.
func (uid *Uid) UnmarshalText(src []byte) error {
	if len(src) != uidBase64Unpadded {
		return errors.New("Uid.UnmarshalText: invalid length")
	}
	enc := base64.URLEncoding.WithPadding(base64.NoPadding)
	dec := make([]byte, enc.DecodedLen(uidBase64Unpadded))
	count, err := enc.Decode(dec, src)
	if count < 8 {
		if err != nil {
			return errors.New("Uid.UnmarshalText: failed to decode " + err.Error())
		}
		return errors.New("Uid.UnmarshalText: failed to decode")
	}
	*uid = Uid(binary.LittleEndian.Uint64(dec))
	return nil
}

// MarshalText converts Uid to string represented as byte slice.
func (uid Uid) MarshalText() ([]byte, error) {
	if uid == ZeroUid {
		return []byte{}, nil
	}
	enc := base64.URLEncoding.WithPadding(base64.NoPadding)
	src := make([]byte, 8)
	dst := make([]byte, enc.EncodedLen(8))
	binary.LittleEndian.PutUint64(src, uint64(uid))
	enc.Encode(dst, src)
	return dst, nil
}

// String converts Uid to base64 string.
func (uid Uid) String() string {
	buf, _ := uid.MarshalText()
	return string(buf)
}

// ParseUid parses base64-encoded string into Uid. Returns ZeroUid when the
// input does not parse.
func ParseUid(s string) Uid {
	var uid Uid
	uid.UnmarshalText([]byte(s))
	return uid
}

// ObjHeader is the header shared by all stored objects.
type ObjHeader struct {
	// Object id assigned at creation time.
	Id string `json:"id" bson:"_id"`
	id Uid

	CreatedAt time.Time `json:"createdAt" bson:"createdat"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedat"`
}

// Uid returns the id parsed into Uid form.
func (h *ObjHeader) Uid() Uid {
	if h.id.IsZero() && h.Id != "" {
		h.id.UnmarshalText([]byte(h.Id))
	}
	return h.id
}

// SetUid assigns given Uid to appropriate header fields.
func (h *ObjHeader) SetUid(uid Uid) {
	h.id = uid
	h.Id = uid.String()
}

// TimeNow returns current wall time in UTC rounded to milliseconds.
func TimeNow() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}

// InitTimes initializes time.Time variables in the header to current time.
func (h *ObjHeader) InitTimes() {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = TimeNow()
	}
	h.UpdatedAt = h.CreatedAt
}

// User is a representation of a registered account.
type User struct {
	ObjHeader `bson:",inline"`

	// Unique login name of the account.
	Username string `json:"username" bson:"username"`
	// Application-defined profile data, opaque to the server.
	Public any `json:"public,omitempty" bson:"public"`
}

// Comment is a single comment embedded in a post. Post keeps comments ordered
// most-recent-first.
type Comment struct {
	Id        string    `json:"id" bson:"_id"`
	Body      string    `json:"body" bson:"body"`
	Username  string    `json:"username" bson:"username"`
	CreatedAt time.Time `json:"createdAt" bson:"createdat"`
}

// Like is a like on a post. A post carries at most one like per username.
type Like struct {
	Username  string    `json:"username" bson:"username"`
	CreatedAt time.Time `json:"createdAt" bson:"createdat"`
}

// Post is a single feed entry with embedded comments and likes.
type Post struct {
	ObjHeader `bson:",inline"`

	// Post text.
	Body string `json:"body" bson:"body"`
	// Login name of the author, denormalized for display.
	Username string `json:"username" bson:"username"`
	// Uid of the author in string form.
	User string `json:"user" bson:"user"`
	// Comments ordered most-recent-first.
	Comments []Comment `json:"comments" bson:"comments"`
	// Likes, at most one per username.
	Likes []Like `json:"likes" bson:"likes"`
}

// CommentIndex returns the index of the comment with the given id, -1 if absent.
func (p *Post) CommentIndex(commentId string) int {
	for i := range p.Comments {
		if p.Comments[i].Id == commentId {
			return i
		}
	}
	return -1
}

// LikeIndex returns the index of the given user's like, -1 if absent.
func (p *Post) LikeIndex(username string) int {
	for i := range p.Likes {
		if p.Likes[i].Username == username {
			return i
		}
	}
	return -1
}
