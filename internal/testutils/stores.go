package testutils

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/phrazzld/docqueue/internal/platform/boltstore"
	"github.com/phrazzld/docqueue/internal/platform/logger"
	"github.com/phrazzld/docqueue/internal/platform/redisstore"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// NewRedisStore starts an in-process Redis server and returns it with a
// store connected to it. Both are closed when the test ends.
func NewRedisStore(t testing.TB) (*miniredis.Miniredis, *redisstore.RedisStore) {
	t.Helper()

	mr := miniredis.RunT(t)
	kv := ConnectRedisStore(mr)
	t.Cleanup(func() { _ = kv.Close() })
	return mr, kv
}

// ConnectRedisStore opens a new store on an already running server. The
// caller owns the returned store.
func ConnectRedisStore(mr *miniredis.Miniredis) *redisstore.RedisStore {
	return redisstore.NewFromClients(
		redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		logger.Discard(),
	)
}

// NewBoltStore opens a bolt store in a temporary directory and closes it
// when the test ends.
func NewBoltStore(t testing.TB, opts boltstore.Options) *boltstore.BoltStore {
	t.Helper()

	kv, err := boltstore.Open(filepath.Join(t.TempDir(), "docqueue.db"), opts, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })
	return kv
}
