package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/docqueue/internal/config"
	"github.com/phrazzld/docqueue/internal/store"
	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN when listing keys.
const scanBatch = 100

// pushBoundedScript appends ARGV[2] to KEYS[1] only while the list holds
// fewer than ARGV[1] entries. Returns 1 when pushed, 0 when rejected.
var pushBoundedScript = redis.NewScript(`
if redis.call("LLEN", KEYS[1]) < tonumber(ARGV[1]) then
	redis.call("RPUSH", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

// RedisStore implements store.KeyValueStore using two Redis connections.
type RedisStore struct {
	text   *redis.Client
	binary *redis.Client
	logger *slog.Logger
}

var _ store.KeyValueStore = (*RedisStore)(nil)

// New connects to the Redis server described by cfg and verifies both
// connections with PING. A store that cannot be reached is a startup error.
func New(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (*RedisStore, error) {
	opts := &redis.Options{
		Addr:        cfg.StoreAddr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	}
	binaryOpts := *opts

	s := NewFromClients(redis.NewClient(opts), redis.NewClient(&binaryOpts), logger)
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.logger.Info("connected to redis", "addr", opts.Addr, "db", opts.DB)
	return s, nil
}

// NewFromClients wraps already-configured clients. The same client may be
// passed for both roles.
func NewFromClients(text, binary *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{
		text:   text,
		binary: binary,
		logger: logger.With("component", "redis_store"),
	}
}

// Get returns the text value stored under key.
func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.text.Get(ctx, key).Result()
	if err != nil {
		return "", wrap("get", key, err)
	}
	return val, nil
}

// SetEx stores a text value that expires after ttl.
func (s *RedisStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.text.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrap("setex", key, err)
	}
	return nil
}

// GetBytes returns the binary value stored under key.
func (s *RedisStore) GetBytes(ctx context.Context, key string) ([]byte, error) {
	val, err := s.binary.Get(ctx, key).Bytes()
	if err != nil {
		return nil, wrap("get", key, err)
	}
	return val, nil
}

// SetBytesEx stores a binary value that expires after ttl.
func (s *RedisStore) SetBytesEx(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.binary.Set(ctx, key, value, ttl).Err(); err != nil {
		return wrap("setex", key, err)
	}
	return nil
}

// RPush appends value to the tail of list.
func (s *RedisStore) RPush(ctx context.Context, list, value string) (int64, error) {
	n, err := s.text.RPush(ctx, list, value).Result()
	if err != nil {
		return 0, wrap("rpush", list, err)
	}
	return n, nil
}

// PushBounded appends value when the list is below max, in one round trip.
func (s *RedisStore) PushBounded(ctx context.Context, list, value string, max int64) (bool, error) {
	pushed, err := pushBoundedScript.Run(ctx, s.text, []string{list}, max, value).Int()
	if err != nil {
		return false, wrap("push_bounded", list, err)
	}
	return pushed == 1, nil
}

// BLPop pops the head of list, blocking up to timeout. Redis only accepts
// whole-second timeouts for BLPOP, so sub-second values are rounded up by the client.
func (s *RedisStore) BLPop(ctx context.Context, list string, timeout time.Duration) (string, error) {
	res, err := s.text.BLPop(ctx, timeout, list).Result()
	if err != nil {
		return "", wrap("blpop", list, err)
	}
	// BLPOP replies with [list, value]
	if len(res) != 2 {
		return "", store.NewStoreError("blpop", list, fmt.Errorf("unexpected reply length %d", len(res)))
	}
	return res[1], nil
}

// LLen returns the number of entries in list.
func (s *RedisStore) LLen(ctx context.Context, list string) (int64, error) {
	n, err := s.text.LLen(ctx, list).Result()
	if err != nil {
		return 0, wrap("llen", list, err)
	}
	return n, nil
}

// Del removes keys from both logical keyspaces. When the binary client
// points at a separate database its keys are removed there too.
func (s *RedisStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	n, err := s.text.Del(ctx, keys...).Result()
	if err != nil {
		return 0, wrap("del", keys[0], err)
	}
	if s.binary != s.text {
		bn, err := s.binary.Del(ctx, keys...).Result()
		if err != nil {
			return n, wrap("del", keys[0], err)
		}
		n += bn
	}
	return n, nil
}

// Keys walks the keyspace with SCAN rather than KEYS so large keyspaces do
// not block the server. SCAN may return a key more than once; each key is
// reported once.
func (s *RedisStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	seen := make(map[string]struct{})
	iter := s.text.Scan(ctx, 0, prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = appendUnique(keys, seen, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, wrap("scan", prefix, err)
	}
	return keys, nil
}

func appendUnique(keys []string, seen map[string]struct{}, key string) []string {
	if _, ok := seen[key]; ok {
		return keys
	}
	seen[key] = struct{}{}
	return append(keys, key)
}

// Ping checks both connections.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.text.Ping(ctx).Err(); err != nil {
		return wrap("ping", "text", err)
	}
	if s.binary != s.text {
		if err := s.binary.Ping(ctx).Err(); err != nil {
			return wrap("ping", "binary", err)
		}
	}
	return nil
}

// Close closes both connections.
func (s *RedisStore) Close() error {
	err := s.text.Close()
	if s.binary != s.text {
		if bErr := s.binary.Close(); bErr != nil && err == nil {
			err = bErr
		}
	}
	return err
}

// wrap converts go-redis errors into store sentinels. redis.Nil means the key
// is missing (or BLPOP timed out); everything except server-side reply errors
// is treated as a connectivity problem.
func wrap(op, key string, err error) error {
	switch {
	case errors.Is(err, redis.Nil):
		return store.NewStoreError(op, key, store.ErrNotFound)
	case errors.Is(err, redis.ErrClosed):
		return store.NewStoreError(op, key, store.ErrClosed)
	case isReplyError(err):
		return store.NewStoreError(op, key, err)
	default:
		return store.NewStoreError(op, key, fmt.Errorf("%w: %v", store.ErrUnavailable, err))
	}
}

func isReplyError(err error) bool {
	var replyErr redis.Error
	return errors.As(err, &replyErr)
}
