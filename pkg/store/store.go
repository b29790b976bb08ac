// Package store provides a unified interface to keep named sets of domains
// ("projects") in any key-value store that can model a set.
package store

import (
	"context"
	"fmt"
	"time"
)

// SetStore is the interface that must be implemented by any store that is to be used.
// Every method is keyed by the project name.
type SetStore interface {
	// Ping checks that the store is reachable
	Ping(ctx context.Context) error
	// Close releases the connection to the store
	Close() error
	// Add adds member to the set. returns 1 if it was new, 0 if it was already there
	Add(ctx context.Context, key, member string) (int64, error)
	// Members returns every member of the set, empty if the key is absent
	Members(ctx context.Context, key string) ([]string, error)
	// Exists reports whether the key is present
	Exists(ctx context.Context, key string) (bool, error)
	// Card returns the cardinality of the set, 0 if the key is absent
	Card(ctx context.Context, key string) (int64, error)
	// Delete removes the whole set. returns the number of keys removed
	Delete(ctx context.Context, key string) (int64, error)
}

// Supported engines.
const (
	EngineRedis  = "redis"
	EnginePebble = "pebble"
)

// Config struct is corresponding to the YAML payload in store section of the config file
type Config struct {
	// Engine is either "redis" or "pebble"
	Engine string
	// Host of the redis server
	Host string
	// Port of the redis server
	Port int
	// DB is the redis database index
	DB int
	// MaxConnections is the size of the redis connection pool
	MaxConnections int
	// DialTimeout bounds connecting and every single redis command
	DialTimeout time.Duration
	// Path is the pebble database directory
	Path string
}

// Addr returns host:port for the redis engine.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Open connects to the engine named in cfg and verifies it is reachable.
// Any failure here is a connectivity error.
func Open(ctx context.Context, cfg Config) (SetStore, error) {
	var s SetStore
	switch cfg.Engine {
	case EngineRedis, "":
		s = NewRedis(cfg)
	case EnginePebble:
		p := NewPebble(cfg.Path)
		if err := p.Open(); err != nil {
			return nil, err
		}
		s = p
	default:
		return nil, &Error{Op: "open", Kind: KindConnectivity, Err: fmt.Errorf("unsupported store engine: %s", cfg.Engine)}
	}
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}
