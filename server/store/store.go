// Package store provides methods for registering and accessing database adapters.
package store

import (
	"encoding/json"
	"errors"

	"github.com/hootsocial/hoot/server/auth"
	adapter "github.com/hootsocial/hoot/server/db"
	"github.com/hootsocial/hoot/server/store/types"
)

var adp adapter.Adapter
var availableAdapters = make(map[string]adapter.Adapter)

// Registered authentication handlers.
var authHandlers = make(map[string]auth.AuthHandler)

// Unique ID generator.
var uGen types.UidGenerator

type configType struct {
	// 16-byte key for XTEA. Used to initialize types.UidGenerator.
	UidKey []byte `json:"uid_key"`
	// Maximum number of results to return from adapter.
	MaxResults int `json:"max_results"`
	// DB adapter name to use. Should be one of those specified in `Adapters`.
	UseAdapter string `json:"use_adapter"`
	// Configurations for individual adapters.
	Adapters map[string]json.RawMessage `json:"adapters"`
}

func openAdapter(workerId int, jsonconf json.RawMessage) error {
	var config configType
	if err := json.Unmarshal(jsonconf, &config); err != nil {
		return errors.New("store: failed to parse config: " + err.Error() + "(" + string(jsonconf) + ")")
	}

	if adp == nil {
		if len(config.UseAdapter) > 0 {
			// Adapter name specified explicitly.
			if ad, ok := availableAdapters[config.UseAdapter]; ok {
				adp = ad
			} else {
				return errors.New("store: " + config.UseAdapter + " adapter is not available in this binary")
			}
		} else if len(availableAdapters) == 1 {
			// Default to the only entry in availableAdapters.
			for _, v := range availableAdapters {
				adp = v
			}
		} else {
			return errors.New("store: db adapter is not specified. Please set `store_config.use_adapter` in `hoot.conf`")
		}
	}

	if adp.IsOpen() {
		return errors.New("store: connection is already opened")
	}

	// Initialize snowflake.
	if workerId < 0 || workerId > 1023 {
		return errors.New("store: invalid worker ID")
	}

	if err := uGen.Init(uint(workerId), config.UidKey); err != nil {
		return errors.New("store: failed to init snowflake: " + err.Error())
	}

	if err := adp.SetMaxResults(config.MaxResults); err != nil {
		return err
	}

	var adapterConfig json.RawMessage
	if config.Adapters != nil {
		adapterConfig = config.Adapters[adp.GetName()]
	}

	return adp.Open(adapterConfig)
}

// PersistentStorageInterface defines methods used for interaction with persistent storage.
type PersistentStorageInterface interface {
	Open(workerId int, jsonconf json.RawMessage) error
	Close() error
	IsOpen() bool
	GetAdapterName() string
	InitDb(jsonconf json.RawMessage, reset bool) error
	GetUid() types.Uid
	GetUidString() string
	DbStats() func() interface{}
	GetAuthHandler(name string) auth.AuthHandler
	InitAuthHandlers(jsonconf json.RawMessage) error
}

// Store is the main object for interacting with persistent storage.
var Store PersistentStorageInterface

type storeObj struct{}

// Open initializes the persistence system. Adapter holds a connection pool for a database instance.
//
//	workerId - the id of the server instance
//	jsonconf - configuration string
func (s storeObj) Open(workerId int, jsonconf json.RawMessage) error {
	if err := openAdapter(workerId, jsonconf); err != nil {
		return err
	}
	return nil
}

// Close terminates connection to persistent storage.
func (storeObj) Close() error {
	if adp == nil || !adp.IsOpen() {
		return nil
	}
	return adp.Close()
}

// IsOpen checks if persistent storage connection has been initialized.
func (storeObj) IsOpen() bool {
	return adp != nil && adp.IsOpen()
}

// GetAdapterName returns the name of the current adapter.
func (storeObj) GetAdapterName() string {
	if adp == nil {
		return ""
	}
	return adp.GetName()
}

// InitDb creates and configures a new database instance. If 'reset' is true it will first
// attempt to drop an existing database. If jsonconf is nil it will assume that the adapter
// is already open. If it's non-nil, it will use the config string to open the DB connection first.
func (s storeObj) InitDb(jsonconf json.RawMessage, reset bool) error {
	if !s.IsOpen() {
		if err := openAdapter(1, jsonconf); err != nil {
			return err
		}
	}
	return adp.CreateDb(reset)
}

// GetUid generates a unique ID suitable for use as a primary key.
func (storeObj) GetUid() types.Uid {
	return uGen.Get()
}

// GetUidString generates a unique ID as string.
func (storeObj) GetUidString() string {
	return uGen.GetStr()
}

// DecodeUid takes an XTEA encrypted Uid and decrypts it into an int64.
// This is needed for sql compatibility. The original int64 values
// are generated by snowflake which ensures that the top bit is unset.
func DecodeUid(uid types.Uid) int64 {
	if uid.IsZero() {
		return 0
	}
	return uGen.DecodeUid(uid)
}

// EncodeUid applies XTEA encryption to an int64 value. It's the inverse of DecodeUid.
func EncodeUid(id int64) types.Uid {
	if id == 0 {
		return types.ZeroUid
	}
	return uGen.EncodeInt64(id)
}

// DbStats returns a callback returning db connection stats object.
func (s storeObj) DbStats() func() interface{} {
	if !s.IsOpen() {
		return nil
	}
	return adp.Stats
}

// RegisterAdapter makes a persistence adapter available.
// If Register is called twice or if the adapter is nil, it panics.
func RegisterAdapter(a adapter.Adapter) {
	if a == nil {
		panic("store: register adapter is nil")
	}

	adapterName := a.GetName()
	if _, ok := availableAdapters[adapterName]; ok {
		panic("store: adapter '" + adapterName + "' is already registered")
	}
	availableAdapters[adapterName] = a
}

// RegisterAuthScheme registers an authentication scheme handler.
// The 'name' must be unique. If the name is already registered it panics.
func RegisterAuthScheme(name string, handler auth.AuthHandler) {
	if name == "" {
		panic("store: empty auth scheme name")
	}
	if handler == nil {
		panic("store: nil auth handler for scheme '" + name + "'")
	}
	if _, ok := authHandlers[name]; ok {
		panic("store: auth scheme '" + name + "' is already registered")
	}
	authHandlers[name] = handler
}

// GetAuthHandler returns an auth handler by name.
func (storeObj) GetAuthHandler(name string) auth.AuthHandler {
	return authHandlers[name]
}

// InitAuthHandlers initializes registered authentication handlers from the
// config: a map of scheme name to scheme-specific config.
func (storeObj) InitAuthHandlers(jsonconf json.RawMessage) error {
	var config map[string]json.RawMessage
	if err := json.Unmarshal(jsonconf, &config); err != nil {
		return errors.New("store: failed to parse auth config: " + err.Error())
	}

	for name, handler := range authHandlers {
		conf := config[name]
		if conf == nil {
			continue
		}
		if err := handler.Init(conf, name); err != nil {
			return err
		}
	}
	return nil
}

// UsersPersistenceInterface is an interface which defines methods for persistent storage of users.
type UsersPersistenceInterface interface {
	Create(user *types.User) (*types.User, error)
	Get(uid types.Uid) (*types.User, error)
	GetByName(username string) (*types.User, error)
	Delete(uid types.Uid) error
}

// Users is the anchor for storing/retrieving User objects.
var Users UsersPersistenceInterface

type usersMapper struct{}

// Create inserts a new user record.
func (usersMapper) Create(user *types.User) (*types.User, error) {
	user.SetUid(Store.GetUid())
	user.InitTimes()

	if err := adp.UserCreate(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Get returns a user record given its id. Returns (nil, nil) if the user is not found.
func (usersMapper) Get(uid types.Uid) (*types.User, error) {
	return adp.UserGet(uid)
}

// GetByName returns a user record given its unique login name.
func (usersMapper) GetByName(username string) (*types.User, error) {
	return adp.UserGetByName(username)
}

// Delete removes a user record.
func (usersMapper) Delete(uid types.Uid) error {
	return adp.UserDelete(uid)
}

// PostsPersistenceInterface is an interface which defines methods for persistent storage of posts.
type PostsPersistenceInterface interface {
	Create(post *types.Post) (*types.Post, error)
	Get(uid types.Uid) (*types.Post, error)
	GetAll() ([]types.Post, error)
	Update(post *types.Post) (*types.Post, error)
	Delete(post *types.Post) error
}

// Posts is the anchor for storing/retrieving Post objects.
var Posts PostsPersistenceInterface

type postsMapper struct{}

// Create assigns an id and timestamps to the post and inserts it.
func (postsMapper) Create(post *types.Post) (*types.Post, error) {
	post.SetUid(Store.GetUid())
	post.InitTimes()

	if err := adp.PostCreate(post); err != nil {
		return nil, err
	}
	return post, nil
}

// Get loads a single post by id. Returns (nil, nil) if the post does not exist.
func (postsMapper) Get(uid types.Uid) (*types.Post, error) {
	return adp.PostGet(uid)
}

// GetAll loads posts sorted by creation time, most recent first.
func (postsMapper) GetAll() ([]types.Post, error) {
	return adp.PostGetAll()
}

// Update replaces the stored post document and bumps its UpdatedAt.
func (postsMapper) Update(post *types.Post) (*types.Post, error) {
	post.UpdatedAt = types.TimeNow()
	if err := adp.PostUpdate(post); err != nil {
		return nil, err
	}
	return post, nil
}

// Delete removes the post document.
func (postsMapper) Delete(post *types.Post) error {
	return adp.PostDelete(post.Uid())
}

func init() {
	Store = storeObj{}
	Users = usersMapper{}
	Posts = postsMapper{}
}

// GenerateCommentId returns a unique id for a new comment.
func GenerateCommentId() string {
	return uGen.GetStr()
}
