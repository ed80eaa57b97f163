// Package adapter contains the interfaces to be implemented by the database adapter.
package adapter

import (
	"encoding/json"

	t "github.com/hootsocial/hoot/server/store/types"
)

// Adapter is the interface that must be implemented by a database
// adapter. The current schema supports a single connection by database type.
type Adapter interface {
	// General

	// Open and configure the adapter.
	Open(config json.RawMessage) error
	// Close the adapter.
	Close() error
	// IsOpen checks if the adapter is ready for use.
	IsOpen() bool
	// GetName returns the name of the adapter.
	GetName() string
	// SetMaxResults configures how many results can be returned in a single DB call.
	SetMaxResults(val int) error
	// CreateDb creates the database optionally dropping an existing database first.
	CreateDb(reset bool) error
	// Stats returns a DB connection stats object.
	Stats() interface{}

	// User management

	// UserCreate creates user record.
	UserCreate(user *t.User) error
	// UserGet returns record for a given user ID. Returns (nil, nil) if the user is not found.
	UserGet(uid t.Uid) (*t.User, error)
	// UserGetByName returns record for a given unique login name. Returns (nil, nil) if not found.
	UserGetByName(username string) (*t.User, error)
	// UserDelete deletes user record.
	UserDelete(uid t.Uid) error

	// Post management

	// PostCreate inserts a new post document.
	PostCreate(post *t.Post) error
	// PostGet loads a single post by id. Returns (nil, nil) if the post does not exist.
	PostGet(uid t.Uid) (*t.Post, error)
	// PostGetAll loads posts sorted by creation time, most recent first.
	PostGetAll() ([]t.Post, error)
	// PostUpdate replaces the stored post document (comments and likes included).
	PostUpdate(post *t.Post) error
	// PostDelete removes the post document.
	PostDelete(uid t.Uid) error
}
