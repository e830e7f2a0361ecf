package boltstore

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/docqueue/internal/store"
	"go.etcd.io/bbolt"
)

var (
	valuesBucket = []byte("values")
	listsBucket  = []byte("lists")
)

// headerSize is the width of the expiry prefix stored in front of each value.
const headerSize = 8

// Clock abstracts time so expiry can be tested deterministically.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Options tunes a BoltStore.
type Options struct {
	// Clock defaults to the system clock.
	Clock Clock
	// SweepInterval controls how often expired values are purged.
	// Zero defaults to one minute; negative disables the sweeper.
	SweepInterval time.Duration
}

// BoltStore implements store.KeyValueStore over a bbolt database file.
type BoltStore struct {
	db     *bbolt.DB
	clock  Clock
	logger *slog.Logger

	mu     sync.Mutex
	signal chan struct{}
	closed bool

	stop chan struct{}
	done chan struct{}
}

var _ store.KeyValueStore = (*BoltStore)(nil)

// Open opens (creating if needed) the bbolt file at path.
func Open(path string, opts Options, logger *slog.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		logger.Error("failed to open bolt database", "path", path, "error", err)
		return nil, fmt.Errorf("%w: open %s: %v", store.ErrUnavailable, path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(valuesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(listsBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create buckets: %v", store.ErrUnavailable, err)
	}

	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = time.Minute
	}

	s := &BoltStore{
		db:     db,
		clock:  opts.Clock,
		logger: logger.With("component", "bolt_store"),
		signal: make(chan struct{}),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}

	if opts.SweepInterval > 0 {
		go s.sweepLoop(opts.SweepInterval)
	} else {
		close(s.done)
	}

	s.logger.Info("bolt database opened", "path", path)
	return s, nil
}

// Get returns the text value stored under key.
func (s *BoltStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.GetBytes(ctx, key)
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// SetEx stores a text value that expires after ttl.
func (s *BoltStore) SetEx(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.SetBytesEx(ctx, key, []byte(value), ttl)
}

// GetBytes returns the binary value stored under key.
func (s *BoltStore) GetBytes(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(valuesBucket).Get([]byte(key))
		if raw == nil || s.expired(raw) {
			return store.ErrNotFound
		}
		out = bytes.Clone(raw[headerSize:])
		return nil
	})
	if err != nil {
		return nil, fail("get", key, err)
	}
	return out, nil
}

// SetBytesEx stores a binary value that expires after ttl. A non-positive
// ttl stores the value without expiry.
func (s *BoltStore) SetBytesEx(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.clock.Now().Add(ttl).UnixNano()
	}

	raw := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(raw, uint64(expiresAt))
	copy(raw[headerSize:], value)

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(valuesBucket).Put([]byte(key), raw)
	})
	if err != nil {
		return fail("setex", key, err)
	}
	return nil
}

// RPush appends value to the tail of list.
func (s *BoltStore) RPush(_ context.Context, list, value string) (int64, error) {
	var length int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(listsBucket).CreateBucketIfNotExists([]byte(list))
		if err != nil {
			return err
		}
		if err := push(b, value); err != nil {
			return err
		}
		length = count(b)
		return nil
	})
	if err != nil {
		return 0, fail("rpush", list, err)
	}
	s.notify()
	return length, nil
}

// PushBounded appends value when the list holds fewer than max entries.
// Both steps run inside one write transaction.
func (s *BoltStore) PushBounded(_ context.Context, list, value string, max int64) (bool, error) {
	pushed := false
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.Bucket(listsBucket).CreateBucketIfNotExists([]byte(list))
		if err != nil {
			return err
		}
		if count(b) >= max {
			return nil
		}
		pushed = true
		return push(b, value)
	})
	if err != nil {
		return false, fail("push_bounded", list, err)
	}
	if pushed {
		s.notify()
	}
	return pushed, nil
}

// BLPop removes the head of list, waiting up to timeout for an entry.
func (s *BoltStore) BLPop(ctx context.Context, list string, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		// Grab the signal before looking so a push between the look and the
		// wait still wakes us.
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return "", store.NewStoreError("blpop", list, store.ErrClosed)
		}
		wake := s.signal
		s.mu.Unlock()

		val, ok, err := s.popHead(list)
		if err != nil {
			return "", fail("blpop", list, err)
		}
		if ok {
			return val, nil
		}

		select {
		case <-wake:
		case <-timer.C:
			return "", store.NewStoreError("blpop", list, store.ErrNotFound)
		case <-ctx.Done():
			return "", store.NewStoreError("blpop", list, ctx.Err())
		}
	}
}

// LLen returns the number of entries in list.
func (s *BoltStore) LLen(_ context.Context, list string) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(listsBucket).Bucket([]byte(list)); b != nil {
			n = count(b)
		}
		return nil
	})
	if err != nil {
		return 0, fail("llen", list, err)
	}
	return n, nil
}

// Del removes values and lists by name and returns how many existed.
func (s *BoltStore) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		values := tx.Bucket(valuesBucket)
		lists := tx.Bucket(listsBucket)
		for _, key := range keys {
			k := []byte(key)
			if raw := values.Get(k); raw != nil {
				if !s.expired(raw) {
					n++
				}
				if err := values.Delete(k); err != nil {
					return err
				}
			}
			if lists.Bucket(k) != nil {
				n++
				if err := lists.DeleteBucket(k); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, fail("del", strings.Join(keys, ","), err)
	}
	return n, nil
}

// Keys returns every live value key starting with prefix.
func (s *BoltStore) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	p := []byte(prefix)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(valuesBucket).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if !s.expired(v) {
				keys = append(keys, string(k))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fail("scan", prefix, err)
	}
	return keys, nil
}

// Ping reports whether the database is still open.
func (s *BoltStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Close stops the sweeper, wakes blocked pops and closes the file.
func (s *BoltStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.signal)
	s.mu.Unlock()

	close(s.stop)
	<-s.done
	return s.db.Close()
}

// Sweep deletes every expired value and returns how many were removed.
func (s *BoltStore) Sweep() (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(valuesBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			if s.expired(v) {
				stale = append(stale, bytes.Clone(k))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) sweepLoop(interval time.Duration) {
	defer close(s.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			n, err := s.Sweep()
			if err != nil {
				s.logger.Error("failed to sweep expired values", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("swept expired values", "count", n)
			}
		}
	}
}

// popHead removes the first entry of list in its own write transaction.
func (s *BoltStore) popHead(list string) (string, bool, error) {
	var (
		val string
		ok  bool
	)
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(listsBucket).Bucket([]byte(list))
		if b == nil {
			return nil
		}
		k, v := b.Cursor().First()
		if k == nil {
			return nil
		}
		val, ok = string(v), true
		return b.Delete(k)
	})
	return val, ok, err
}

// notify wakes every goroutine blocked in BLPop.
func (s *BoltStore) notify() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	close(s.signal)
	s.signal = make(chan struct{})
}

func (s *BoltStore) expired(raw []byte) bool {
	if len(raw) < headerSize {
		return true
	}
	expiresAt := int64(binary.BigEndian.Uint64(raw[:headerSize]))
	return expiresAt != 0 && s.clock.Now().UnixNano() >= expiresAt
}

func push(b *bbolt.Bucket, value string) error {
	seq, err := b.NextSequence()
	if err != nil {
		return err
	}
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return b.Put(key, []byte(value))
}

func count(b *bbolt.Bucket) int64 {
	var n int64
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}

// fail wraps a driver error, reporting a closed database as store.ErrClosed.
func fail(op, key string, err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		err = store.ErrClosed
	}
	return store.NewStoreError(op, key, err)
}
