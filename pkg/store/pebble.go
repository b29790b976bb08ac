package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// PebbleDB is a SetStore kept in a local Pebble database, for working offline.
// Every member is its own key: "set/<project>\x00<member>".
type PebbleDB struct {
	Path string
	// FS defaults to the OS filesystem. tests use vfs.NewMem()
	FS vfs.FS
	DB *pebble.DB

	// serializes the read-then-write in Add
	mu sync.Mutex
}

// NewPebble creates a new PebbleDB instance.
// Note that the database is not opened until Open() is called.
func NewPebble(path string) *PebbleDB {
	return &PebbleDB{Path: path}
}

// Value is what gets saved inside the K/V store for every member.
type Value struct {
	TimeAdded int64 `json:"now"`
}

// Open opens the database located at path.
func (db *PebbleDB) Open() error {
	var err error
	db.DB, err = pebble.Open(db.Path, &pebble.Options{FS: db.FS})
	if err != nil {
		return &Error{Op: "open", Key: db.Path, Kind: KindConnectivity, Err: err}
	}
	return nil
}

// Ping reports whether the database is open.
func (db *PebbleDB) Ping(_ context.Context) error {
	if db.DB == nil {
		return &Error{Op: "ping", Key: db.Path, Kind: KindConnectivity, Err: errors.New("database is not open")}
	}
	return nil
}

// Close closes the database.
func (db *PebbleDB) Close() error {
	if db.DB == nil {
		return nil
	}
	err := db.DB.Close()
	db.DB = nil
	return err
}

func setPrefix(key string) []byte {
	return append([]byte("set/"+key), 0x00)
}

// setBounds returns the [lower, upper) range holding every member of key.
func setBounds(key string) ([]byte, []byte) {
	lower := setPrefix(key)
	upper := append([]byte("set/"+key), 0x01)
	return lower, upper
}

func memberKey(key, member string) []byte {
	return append(setPrefix(key), member...)
}

// Add adds member to the set if it is not already there.
func (db *PebbleDB) Add(_ context.Context, key, member string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	k := memberKey(key, member)
	_, closer, err := db.DB.Get(k)
	if err == nil {
		return 0, opError("add", key, closer.Close())
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return 0, opError("add", key, err)
	}
	// as a value, we store the "Now" timestamp
	j, _ := json.Marshal(Value{TimeAdded: time.Now().Unix()})
	if err := db.DB.Set(k, j, pebble.Sync); err != nil {
		return 0, opError("add", key, err)
	}
	return 1, nil
}

// scan calls fn with the member part of every key in the set, stopping when fn returns false.
func (db *PebbleDB) scan(key string, fn func(member []byte) bool) error {
	lower, upper := setBounds(key)
	iter := db.DB.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(bytes.TrimPrefix(iter.Key(), lower)) {
			break
		}
	}
	return iter.Close()
}

// Members returns every member of the set.
func (db *PebbleDB) Members(_ context.Context, key string) ([]string, error) {
	members := []string{}
	err := db.scan(key, func(m []byte) bool {
		members = append(members, string(m))
		return true
	})
	if err != nil {
		return nil, opError("members", key, err)
	}
	return members, nil
}

// Exists reports whether the set has at least one member.
func (db *PebbleDB) Exists(_ context.Context, key string) (bool, error) {
	found := false
	err := db.scan(key, func([]byte) bool {
		found = true
		return false
	})
	return found, opError("exists", key, err)
}

// Card counts the members of the set.
func (db *PebbleDB) Card(_ context.Context, key string) (int64, error) {
	var n int64
	err := db.scan(key, func([]byte) bool {
		n++
		return true
	})
	return n, opError("card", key, err)
}

// Delete drops every member of the set with a single range deletion.
func (db *PebbleDB) Delete(ctx context.Context, key string) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	ok, err := db.Exists(ctx, key)
	if err != nil || !ok {
		return 0, err
	}
	lower, upper := setBounds(key)
	if err := db.DB.DeleteRange(lower, upper, pebble.Sync); err != nil {
		return 0, opError("delete", key, err)
	}
	return 1, nil
}
