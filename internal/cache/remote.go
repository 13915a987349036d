package cache

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"

	"readcache/internal/common/errors"
	"readcache/internal/common/logging"
)

// ConnState describes the remote tier's connection lifecycle. The only legal
// transitions are NotAttempted -> Attempting -> Connected | Degraded and
// Connected -> Degraded. There is no path back to Attempting: a degraded
// connection stays degraded for the process lifetime, which trades cache hit
// rate for freedom from reconnect storms.
type ConnState int32

const (
	StateNotAttempted ConnState = iota
	StateAttempting
	StateConnected
	StateDegraded
)

// String returns the state name for logs and stats.
func (s ConnState) String() string {
	switch s {
	case StateNotAttempted:
		return "not_attempted"
	case StateAttempting:
		return "attempting"
	case StateConnected:
		return "connected"
	case StateDegraded:
		return "degraded"
	default:
		return "unknown"
	}
}

// RemoteConfig holds the remote tier's connection settings. A URL wins over
// host/port. When neither is set the store never dials and the cache runs
// local-only.
type RemoteConfig struct {
	URL      string
	Host     string
	Port     string
	Username string
	Password string
	DB       int

	KeyPrefix      string
	ConnectTimeout time.Duration
	OpTimeout      time.Duration
}

// Configured reports whether any remote endpoint is set.
func (c RemoteConfig) Configured() bool {
	return c.URL != "" || c.Host != ""
}

// RemoteStore is the Redis-backed cache tier. It owns the connection
// lifecycle and absorbs every transport error: failures downgrade the
// connection state and surface as misses or no-ops, never as errors to the
// facade. Every operation races the network call against a timeout so a hung
// connection cannot stall a caller.
type RemoteStore[T any] struct {
	cfg    RemoteConfig
	logger logging.Logger

	client      *redis.Client
	state       atomic.Int32
	attempted   atomic.Bool
	connectOnce sync.Once
}

// NewRemoteStore creates a remote store. No connection is made until
// Connect is called.
func NewRemoteStore[T any](cfg RemoteConfig, logger logging.Logger) *RemoteStore[T] {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = 3 * time.Second
	}

	r := &RemoteStore[T]{
		cfg:    cfg,
		logger: logger.WithFields(logging.Field{Key: "component", Value: "remote-store"}),
	}
	r.state.Store(int32(StateNotAttempted))
	return r
}

// Connect dials Redis exactly once per process; subsequent calls are no-ops.
// When no endpoint is configured the store is marked degraded without a
// network attempt and the attempt counter stays untouched. A dial that fails
// or exceeds the connect timeout also degrades the store; neither case is an
// error the caller can see.
func (r *RemoteStore[T]) Connect(ctx context.Context) {
	r.connectOnce.Do(func() {
		if !r.cfg.Configured() {
			r.state.Store(int32(StateDegraded))
			r.logger.Info("no remote endpoint configured, running local-only")
			return
		}

		opts, err := r.options()
		if err != nil {
			r.state.Store(int32(StateDegraded))
			r.logger.Warn("invalid remote configuration, running local-only",
				logging.Field{Key: "error", Value: err.Error()})
			return
		}

		r.attempted.Store(true)
		r.state.Store(int32(StateAttempting))

		client := redis.NewClient(opts)

		dialCtx, cancel := context.WithTimeout(ctx, r.cfg.ConnectTimeout)
		defer cancel()

		if err := client.Ping(dialCtx).Err(); err != nil {
			_ = client.Close()
			r.state.Store(int32(StateDegraded))
			r.logger.Warn("remote connect failed, running local-only",
				logging.Field{Key: "error", Value: classifyConnect(err).Error()})
			return
		}

		r.client = client
		r.state.Store(int32(StateConnected))
		r.logger.Info("remote cache tier connected",
			logging.Field{Key: "addr", Value: opts.Addr})
	})
}

func (r *RemoteStore[T]) options() (*redis.Options, error) {
	if r.cfg.URL != "" {
		opts, err := redis.ParseURL(r.cfg.URL)
		if err != nil {
			return nil, errors.ConfigError("invalid REDIS_URL").WithContext("cause", err.Error())
		}
		return opts, nil
	}

	return &redis.Options{
		Addr:     net.JoinHostPort(r.cfg.Host, r.cfg.Port),
		Username: r.cfg.Username,
		Password: r.cfg.Password,
		DB:       r.cfg.DB,
	}, nil
}

// State returns the current connection state.
func (r *RemoteStore[T]) State() ConnState {
	return ConnState(r.state.Load())
}

// Connected reports whether the store is usable right now.
func (r *RemoteStore[T]) Connected() bool {
	return r.State() == StateConnected
}

// Attempted reports whether a network connection attempt was ever made.
func (r *RemoteStore[T]) Attempted() bool {
	return r.attempted.Load()
}

// Get retrieves the entry for key. A transport error degrades the store and
// reads as a miss; a redis.Nil reply is a plain miss with no state change.
func (r *RemoteStore[T]) Get(ctx context.Context, key string) (Entry[T], bool) {
	var zero Entry[T]
	if !r.Connected() {
		return zero, false
	}

	opCtx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	raw, err := r.client.Get(opCtx, r.cfg.KeyPrefix+key).Result()
	if err == redis.Nil {
		return zero, false
	}
	if err != nil {
		r.degrade("get", err)
		return zero, false
	}

	var entry Entry[T]
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// Undecodable payload, likely written by an incompatible version.
		r.logger.Warn("discarding undecodable remote entry",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()})
		return zero, false
	}
	return entry, true
}

// Set writes an entry with Redis-native expiry of ttl when ttl > 0,
// otherwise no expiry. Failures degrade the store and are otherwise silent.
func (r *RemoteStore[T]) Set(ctx context.Context, key string, entry Entry[T], ttl time.Duration) {
	if !r.Connected() {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		r.logger.Warn("skipping unserializable cache entry",
			logging.Field{Key: "key", Value: key},
			logging.Field{Key: "error", Value: err.Error()})
		return
	}

	var expiry time.Duration
	if ttl > 0 {
		expiry = ttl
	}

	opCtx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	if err := r.client.Set(opCtx, r.cfg.KeyPrefix+key, data, expiry).Err(); err != nil {
		r.degrade("set", err)
	}
}

// Delete removes the entry for key, best effort.
func (r *RemoteStore[T]) Delete(ctx context.Context, key string) {
	if !r.Connected() {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	if err := r.client.Del(opCtx, r.cfg.KeyPrefix+key).Err(); err != nil {
		r.degrade("delete", err)
	}
}

// Clear removes every entry under the store's key prefix, best effort.
func (r *RemoteStore[T]) Clear(ctx context.Context) {
	if !r.Connected() {
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, r.cfg.OpTimeout)
	defer cancel()

	iter := r.client.Scan(opCtx, 0, r.cfg.KeyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(opCtx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		r.degrade("clear", err)
		return
	}

	if len(keys) > 0 {
		if err := r.client.Del(opCtx, keys...).Err(); err != nil {
			r.degrade("clear", err)
		}
	}
}

// Close releases the Redis connection, if one was established.
func (r *RemoteStore[T]) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}

// degrade flips Connected to Degraded. Only the transition is logged; once
// degraded, further operations are silent no-ops.
func (r *RemoteStore[T]) degrade(op string, err error) {
	if r.state.CompareAndSwap(int32(StateConnected), int32(StateDegraded)) {
		r.logger.Warn("remote cache tier degraded",
			logging.Field{Key: "operation", Value: op},
			logging.Field{Key: "error", Value: classifyOp(op, err).Error()})
	}
}

func classifyConnect(err error) *errors.AppError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TimeoutError("connect")
	}
	return errors.ConnectionError("remote connect failed", err)
}

func classifyOp(op string, err error) *errors.AppError {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.TimeoutError(op)
	}
	return errors.RemoteOpError(op, err)
}
