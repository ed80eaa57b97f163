// Package auth provides interfaces and types for authentication handlers.
package auth

import (
	"encoding/json"
	"time"

	"github.com/hootsocial/hoot/server/store/types"
)

// Level is the type for authentication levels.
type Level int

// Authentication levels.
const (
	// LevelNone is undefined/not authenticated.
	LevelNone Level = iota * 10
	// LevelAnon is anonymous user/light authentication.
	LevelAnon
	// LevelAuth is fully authenticated user.
	LevelAuth
	// LevelRoot is a superuser (currently unused).
	LevelRoot
)

// String implements Stringer interface for Level.
func (a Level) String() string {
	switch a {
	case LevelNone:
		return ""
	case LevelAnon:
		return "anon"
	case LevelAuth:
		return "auth"
	case LevelRoot:
		return "root"
	default:
		return "unkn"
	}
}

// ParseAuthLevel parses authentication level from a string.
func ParseAuthLevel(name string) Level {
	switch name {
	case "anon", "ANON":
		return LevelAnon
	case "auth", "AUTH":
		return LevelAuth
	case "root", "ROOT":
		return LevelRoot
	default:
		return LevelNone
	}
}

// Rec is an authentication record.
type Rec struct {
	// User who successfully authenticated.
	Uid types.Uid `json:"uid,omitempty"`
	// Authentication level of the user.
	AuthLevel Level `json:"authlvl,omitempty"`
	// Lifetime of this record.
	Lifetime time.Duration `json:"lifetime,omitempty"`
}

// AuthHandler is the interface which auth providers must implement.
type AuthHandler interface {
	// Init initializes the handler taking config and logical name as parameters.
	Init(jsonconf json.RawMessage, name string) error

	// Authenticate verifies a user-provided secret and returns the
	// authentication record it carries. On failure the error is one of
	// types.ErrMalformed, types.ErrExpired, types.ErrFailed.
	Authenticate(secret []byte) (*Rec, error)

	// GenSecret generates a new secret for the given record, if supported.
	GenSecret(rec *Rec) ([]byte, time.Time, error)
}
