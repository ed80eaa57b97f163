// Package mongodb is a database adapter for MongoDB.
package mongodb

import (
	"context"
	"encoding/json"
	"errors"

	b "go.mongodb.org/mongo-driver/bson"
	mdb "go.mongodb.org/mongo-driver/mongo"
	mdbopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/hootsocial/hoot/server/logs"
	"github.com/hootsocial/hoot/server/store"
	t "github.com/hootsocial/hoot/server/store/types"
)

// adapter holds MongoDB connection data.
type adapter struct {
	conn       *mdb.Client
	db         *mdb.Database
	dbName     string
	maxResults int
	ctx        context.Context
}

const (
	defaultHost     = "localhost:27017"
	defaultDatabase = "hoot"

	adapterName = "mongodb"

	defaultMaxResults = 1024
)

// See https://godoc.org/go.mongodb.org/mongo-driver/mongo/options#ClientOptions for explanations.
type configType struct {
	// Connection string. Takes precedence over Addresses when set.
	Uri       string      `json:"uri,omitempty"`
	Addresses interface{} `json:"addresses,omitempty"`

	// Options separate from ClientOptions (custom options):
	Database   string `json:"database,omitempty"`
	ReplicaSet string `json:"replica_set,omitempty"`

	AuthSource string `json:"auth_source,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
}

// Open initializes mongodb session.
func (a *adapter) Open(jsonconfig json.RawMessage) error {
	if a.conn != nil {
		return errors.New("adapter mongodb is already connected")
	}

	var err error
	var config configType
	if err = json.Unmarshal(jsonconfig, &config); err != nil {
		return errors.New("adapter mongodb failed to parse config: " + err.Error())
	}

	var opts mdbopts.ClientOptions

	if config.Uri != "" {
		opts.ApplyURI(config.Uri)
	} else if config.Addresses == nil {
		opts.SetHosts([]string{defaultHost})
	} else if host, ok := config.Addresses.(string); ok {
		opts.SetHosts([]string{host})
	} else if hosts, ok := config.Addresses.([]string); ok {
		opts.SetHosts(hosts)
	} else {
		return errors.New("adapter mongodb failed to parse config.Addresses")
	}

	if config.Database == "" {
		a.dbName = defaultDatabase
	} else {
		a.dbName = config.Database
	}

	if config.ReplicaSet != "" {
		opts.SetReplicaSet(config.ReplicaSet)
	}

	if config.Username != "" {
		var passwordSet bool
		if config.AuthSource == "" {
			config.AuthSource = "admin"
		}
		if config.Password != "" {
			passwordSet = true
		}
		opts.SetAuth(
			mdbopts.Credential{
				AuthMechanism: "SCRAM-SHA-256",
				AuthSource:    config.AuthSource,
				Username:      config.Username,
				Password:      config.Password,
				PasswordSet:   passwordSet,
			})
	}

	if a.maxResults <= 0 {
		a.maxResults = defaultMaxResults
	}

	a.ctx = context.Background()
	a.conn, err = mdb.Connect(a.ctx, &opts)
	a.db = a.conn.Database(a.dbName)

	return err
}

// Close the adapter.
func (a *adapter) Close() error {
	var err error
	if a.conn != nil {
		err = a.conn.Disconnect(a.ctx)
		a.conn = nil
	}
	return err
}

// IsOpen checks if the adapter is ready for use.
func (a *adapter) IsOpen() bool {
	return a.conn != nil
}

// GetName returns the name of the adapter.
func (a *adapter) GetName() string {
	return adapterName
}

// SetMaxResults configures how many results can be returned in a single DB call.
func (a *adapter) SetMaxResults(val int) error {
	if val <= 0 {
		a.maxResults = defaultMaxResults
	} else {
		a.maxResults = val
	}

	return nil
}

// CreateDb creates the database optionally dropping an existing database first.
func (a *adapter) CreateDb(reset bool) error {
	if reset {
		logs.Info.Println("mongodb: dropping database", a.dbName)
		if err := a.db.Drop(a.ctx); err != nil {
			return err
		}
	}

	// Collections do not need to be explicitly created since MongoDB creates
	// them with the first write. Just define the indexes.

	// Unique login names.
	if _, err := a.db.Collection("users").Indexes().CreateOne(a.ctx, mdb.IndexModel{
		Keys:    b.M{"username": 1},
		Options: mdbopts.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	// Posts are fetched sorted by creation time, most recent first.
	if _, err := a.db.Collection("posts").Indexes().CreateOne(a.ctx, mdb.IndexModel{
		Keys: b.M{"createdat": -1},
	}); err != nil {
		return err
	}

	return nil
}

// Stats returns a DB connection stats object. Not provided by the mongodb driver.
func (a *adapter) Stats() interface{} {
	return nil
}

// User management

// UserCreate creates user record.
func (a *adapter) UserCreate(usr *t.User) error {
	if _, err := a.db.Collection("users").InsertOne(a.ctx, usr); err != nil {
		if mdb.IsDuplicateKeyError(err) {
			return t.ErrDuplicate
		}
		return err
	}

	return nil
}

// UserGet fetches a single user by user id. If the user is not found it returns (nil, nil).
func (a *adapter) UserGet(uid t.Uid) (*t.User, error) {
	var user t.User

	if err := a.db.Collection("users").FindOne(a.ctx, b.M{"_id": uid.String()}).Decode(&user); err != nil {
		if err == mdb.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// UserGetByName fetches a single user by login name. If the user is not found it returns (nil, nil).
func (a *adapter) UserGetByName(username string) (*t.User, error) {
	var user t.User

	if err := a.db.Collection("users").FindOne(a.ctx, b.M{"username": username}).Decode(&user); err != nil {
		if err == mdb.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &user, nil
}

// UserDelete deletes user record.
func (a *adapter) UserDelete(uid t.Uid) error {
	_, err := a.db.Collection("users").DeleteOne(a.ctx, b.M{"_id": uid.String()})
	return err
}

// Post management

// PostCreate inserts a new post document.
func (a *adapter) PostCreate(post *t.Post) error {
	_, err := a.db.Collection("posts").InsertOne(a.ctx, post)
	return err
}

// PostGet loads a single post by id. Returns (nil, nil) if the post does not exist.
func (a *adapter) PostGet(uid t.Uid) (*t.Post, error) {
	var post t.Post

	if err := a.db.Collection("posts").FindOne(a.ctx, b.M{"_id": uid.String()}).Decode(&post); err != nil {
		if err == mdb.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}

	return &post, nil
}

// PostGetAll loads posts sorted by creation time, most recent first.
func (a *adapter) PostGetAll() ([]t.Post, error) {
	findOpts := mdbopts.Find().
		SetSort(b.D{{Key: "createdat", Value: -1}}).
		SetLimit(int64(a.maxResults))

	cur, err := a.db.Collection("posts").Find(a.ctx, b.M{}, findOpts)
	if err != nil {
		return nil, err
	}

	var posts []t.Post
	if err = cur.All(a.ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// PostUpdate replaces the stored post document (comments and likes included).
func (a *adapter) PostUpdate(post *t.Post) error {
	_, err := a.db.Collection("posts").ReplaceOne(a.ctx, b.M{"_id": post.Id}, post)
	return err
}

// PostDelete removes the post document.
func (a *adapter) PostDelete(uid t.Uid) error {
	_, err := a.db.Collection("posts").DeleteOne(a.ctx, b.M{"_id": uid.String()})
	return err
}

func init() {
	store.RegisterAdapter(&adapter{})
}
