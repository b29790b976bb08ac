package store

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Redis is a SetStore backed by redis sets. The underlying client keeps a
// connection pool that is reused across calls.
type Redis struct {
	Addr   string
	Client *redis.Client
}

// NewRedis creates a new Redis instance. No connection is made until the first call.
func NewRedis(cfg Config) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr(),
		DB:       cfg.DB,
		PoolSize: cfg.MaxConnections,
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
		opts.ReadTimeout = cfg.DialTimeout
		opts.WriteTimeout = cfg.DialTimeout
	}
	return &Redis{Addr: opts.Addr, Client: redis.NewClient(opts)}
}

// Ping verifies the server answers. A failure is a connectivity error.
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return &Error{Op: "ping", Key: r.Addr, Kind: KindConnectivity, Err: err}
	}
	return nil
}

// Close closes the connection pool.
func (r *Redis) Close() error {
	return r.Client.Close()
}

// Add runs SADD for a single member.
func (r *Redis) Add(ctx context.Context, key, member string) (int64, error) {
	n, err := r.Client.SAdd(ctx, key, member).Result()
	return n, opError("add", key, err)
}

// Members runs SMEMBERS.
func (r *Redis) Members(ctx context.Context, key string) ([]string, error) {
	members, err := r.Client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, opError("members", key, err)
	}
	return members, nil
}

// Exists runs EXISTS.
func (r *Redis) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.Client.Exists(ctx, key).Result()
	return n > 0, opError("exists", key, err)
}

// Card runs SCARD.
func (r *Redis) Card(ctx context.Context, key string) (int64, error) {
	n, err := r.Client.SCard(ctx, key).Result()
	return n, opError("card", key, err)
}

// Delete runs DEL.
func (r *Redis) Delete(ctx context.Context, key string) (int64, error) {
	n, err := r.Client.Del(ctx, key).Result()
	return n, opError("delete", key, err)
}
