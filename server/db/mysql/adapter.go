// Package mysql is a database adapter for MySQL.
package mysql

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ms "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/hootsocial/hoot/server/logs"
	"github.com/hootsocial/hoot/server/store"
	t "github.com/hootsocial/hoot/server/store/types"
)

// adapter holds MySQL connection data.
type adapter struct {
	db     *sqlx.DB
	dsn    string
	dbName string
	// Maximum number of records to return.
	maxResults int
}

const (
	defaultDSN      = "root:@tcp(localhost:3306)/hoot?parseTime=true&collation=utf8mb4_unicode_ci"
	defaultDatabase = "hoot"

	adapterName = "mysql"

	defaultMaxResults = 1024
)

// MySQL error code for duplicate entry.
const msErrDuplicateEntry = 1062

type configType struct {
	// DSN, passed unchanged to the driver.
	DSN string `json:"dsn,omitempty"`
	// Name of the database.
	DBName string `json:"database,omitempty"`

	// Connection pool settings.
	//
	// Maximum number of open connections to the database.
	MaxOpenConns int `json:"max_open_conns,omitempty"`
	// Maximum number of connections in the idle connection pool.
	MaxIdleConns int `json:"max_idle_conns,omitempty"`
	// Maximum amount of time a connection may be reused (in seconds).
	ConnMaxLifetime int `json:"conn_max_lifetime,omitempty"`
}

// Open initializes the database session.
func (a *adapter) Open(jsonconfig json.RawMessage) error {
	if a.db != nil {
		return errors.New("mysql adapter is already connected")
	}

	var err error
	var config configType
	if err = json.Unmarshal(jsonconfig, &config); err != nil {
		return errors.New("mysql adapter failed to parse config: " + err.Error())
	}

	a.dsn = config.DSN
	if a.dsn == "" {
		a.dsn = defaultDSN
	}

	a.dbName = config.DBName
	if a.dbName == "" {
		a.dbName = defaultDatabase
	}

	if a.maxResults <= 0 {
		a.maxResults = defaultMaxResults
	}

	a.db, err = sqlx.Open("mysql", a.dsn)
	if err != nil {
		return err
	}

	// sql.Open does not open the network connection.
	// Force the network connection here.
	if err = a.db.Ping(); err != nil {
		if isMissingDb(err) {
			// Missing DB is OK if we are initializing the database.
			return nil
		}
		a.db.Close()
		a.db = nil
		return err
	}

	if config.MaxOpenConns > 0 {
		a.db.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		a.db.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		a.db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetime) * time.Second)
	}

	return nil
}

// Close closes the underlying database connection.
func (a *adapter) Close() error {
	var err error
	if a.db != nil {
		err = a.db.Close()
		a.db = nil
	}
	return err
}

// IsOpen returns true if the connection to the database has been established.
// It does not check if the connection is actually live.
func (a *adapter) IsOpen() bool {
	return a.db != nil
}

// GetName returns the string which the adapter uses to register itself with the store.
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

// Stats returns the DB connection stats object.
func (a *adapter) Stats() interface{} {
	if a.db == nil {
		return nil
	}
	return a.db.Stats()
}

// CreateDb initializes the storage.
func (a *adapter) CreateDb(reset bool) error {
	if reset {
		logs.Info.Println("mysql: dropping database", a.dbName)
		if _, err := a.db.Exec("DROP DATABASE IF EXISTS " + a.dbName); err != nil {
			return err
		}
	}

	if _, err := a.db.Exec(
		fmt.Sprintf("CREATE DATABASE %s CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", a.dbName)); err != nil {
		return err
	}

	if _, err := a.db.Exec("USE " + a.dbName); err != nil {
		return err
	}

	if _, err := a.db.Exec(
		`CREATE TABLE users(
			id        BIGINT NOT NULL,
			createdat DATETIME(3) NOT NULL,
			updatedat DATETIME(3) NOT NULL,
			username  VARCHAR(32) NOT NULL,
			public    JSON,
			PRIMARY KEY(id),
			UNIQUE INDEX users_username(username)
		)`); err != nil {
		return err
	}

	if _, err := a.db.Exec(
		`CREATE TABLE posts(
			id        BIGINT NOT NULL,
			createdat DATETIME(3) NOT NULL,
			updatedat DATETIME(3) NOT NULL,
			userid    BIGINT NOT NULL,
			username  VARCHAR(32) NOT NULL,
			body      TEXT NOT NULL,
			comments  JSON,
			likes     JSON,
			PRIMARY KEY(id),
			FOREIGN KEY(userid) REFERENCES users(id),
			INDEX posts_createdat(createdat)
		)`); err != nil {
		return err
	}

	return nil
}

// User management

// UserCreate creates user record.
func (a *adapter) UserCreate(usr *t.User) error {
	_, err := a.db.Exec(
		"INSERT INTO users(id,createdat,updatedat,username,public) VALUES(?,?,?,?,?)",
		store.DecodeUid(usr.Uid()), usr.CreatedAt, usr.UpdatedAt, usr.Username, toJSON(usr.Public))
	if isDupe(err) {
		return t.ErrDuplicate
	}
	return err
}

// UserGet fetches a single user by user id. If the user is not found it returns (nil, nil).
func (a *adapter) UserGet(uid t.Uid) (*t.User, error) {
	return a.userGetByQuery(
		"SELECT id,createdat,updatedat,username,public FROM users WHERE id=?",
		store.DecodeUid(uid))
}

// UserGetByName fetches a single user by login name. If the user is not found it returns (nil, nil).
func (a *adapter) UserGetByName(username string) (*t.User, error) {
	return a.userGetByQuery(
		"SELECT id,createdat,updatedat,username,public FROM users WHERE username=?",
		username)
}

func (a *adapter) userGetByQuery(query string, arg interface{}) (*t.User, error) {
	var row userRecord
	if err := a.db.Get(&row, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return row.toUser(), nil
}

// UserDelete deletes user record.
func (a *adapter) UserDelete(uid t.Uid) error {
	_, err := a.db.Exec("DELETE FROM users WHERE id=?", store.DecodeUid(uid))
	return err
}

// Post management

// PostCreate inserts a new post record.
func (a *adapter) PostCreate(post *t.Post) error {
	_, err := a.db.Exec(
		"INSERT INTO posts(id,createdat,updatedat,userid,username,body,comments,likes) "+
			"VALUES(?,?,?,?,?,?,?,?)",
		store.DecodeUid(post.Uid()), post.CreatedAt, post.UpdatedAt,
		store.DecodeUid(t.ParseUid(post.User)), post.Username, post.Body,
		toJSON(post.Comments), toJSON(post.Likes))
	return err
}

// PostGet loads a single post by id. Returns (nil, nil) if the post does not exist.
func (a *adapter) PostGet(uid t.Uid) (*t.Post, error) {
	var row postRecord
	if err := a.db.Get(&row,
		"SELECT id,createdat,updatedat,userid,username,body,comments,likes FROM posts WHERE id=?",
		store.DecodeUid(uid)); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return row.toPost()
}

// PostGetAll loads posts sorted by creation time, most recent first.
func (a *adapter) PostGetAll() ([]t.Post, error) {
	var rows []postRecord
	if err := a.db.Select(&rows,
		"SELECT id,createdat,updatedat,userid,username,body,comments,likes FROM posts "+
			"ORDER BY createdat DESC LIMIT ?",
		a.maxResults); err != nil {
		return nil, err
	}

	var posts []t.Post
	for i := range rows {
		post, err := rows[i].toPost()
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, nil
}

// PostUpdate replaces the stored post record (comments and likes included).
func (a *adapter) PostUpdate(post *t.Post) error {
	_, err := a.db.Exec(
		"UPDATE posts SET updatedat=?,body=?,comments=?,likes=? WHERE id=?",
		post.UpdatedAt, post.Body, toJSON(post.Comments), toJSON(post.Likes),
		store.DecodeUid(post.Uid()))
	return err
}

// PostDelete removes the post record.
func (a *adapter) PostDelete(uid t.Uid) error {
	_, err := a.db.Exec("DELETE FROM posts WHERE id=?", store.DecodeUid(uid))
	return err
}

// Database rows as read by sqlx.

type userRecord struct {
	Id        int64     `db:"id"`
	CreatedAt time.Time `db:"createdat"`
	UpdatedAt time.Time `db:"updatedat"`
	Username  string    `db:"username"`
	Public    []byte    `db:"public"`
}

func (r *userRecord) toUser() *t.User {
	user := &t.User{Username: r.Username}
	user.SetUid(store.EncodeUid(r.Id))
	user.CreatedAt = r.CreatedAt
	user.UpdatedAt = r.UpdatedAt
	if r.Public != nil {
		var pub interface{}
		json.Unmarshal(r.Public, &pub)
		user.Public = pub
	}
	return user
}

type postRecord struct {
	Id        int64     `db:"id"`
	CreatedAt time.Time `db:"createdat"`
	UpdatedAt time.Time `db:"updatedat"`
	UserId    int64     `db:"userid"`
	Username  string    `db:"username"`
	Body      string    `db:"body"`
	Comments  []byte    `db:"comments"`
	Likes     []byte    `db:"likes"`
}

func (r *postRecord) toPost() (*t.Post, error) {
	post := &t.Post{Username: r.Username, Body: r.Body}
	post.SetUid(store.EncodeUid(r.Id))
	post.CreatedAt = r.CreatedAt
	post.UpdatedAt = r.UpdatedAt
	post.User = store.EncodeUid(r.UserId).String()
	if r.Comments != nil {
		if err := json.Unmarshal(r.Comments, &post.Comments); err != nil {
			return nil, err
		}
	}
	if r.Likes != nil {
		if err := json.Unmarshal(r.Likes, &post.Likes); err != nil {
			return nil, err
		}
	}
	return post, nil
}

// Helper functions.

// Check if the error is MySQL Error Code 1062 "Duplicate entry ... for key ...".
func isDupe(err error) bool {
	if err == nil {
		return false
	}
	myerr, ok := err.(*ms.MySQLError)
	return ok && myerr.Number == msErrDuplicateEntry
}

// Check if the error is MySQL Error Code 1049 "Unknown database ...".
func isMissingDb(err error) bool {
	if err == nil {
		return false
	}
	myerr, ok := err.(*ms.MySQLError)
	return ok && myerr.Number == 1049
}

// Convert to JSON before storing to a JSON field.
func toJSON(src interface{}) []byte {
	if src == nil {
		return nil
	}

	jval, _ := json.Marshal(src)
	return jval
}

func init() {
	store.RegisterAdapter(&adapter{})
}
