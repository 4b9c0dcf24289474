// Package boltstore provides a hashstore.Store backed by a bbolt file.
//
// Layout: the records bucket holds one nested bucket per record key whose
// entries are the record's fields. The meta bucket maps each record key to
// its version and expiry. Versions come from the meta bucket's sequence.
// Field names and record keys must be non-empty; bbolt rejects empty keys.
package boltstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/roach88/hashview/internal/hashstore"
)

var (
	recordsBucket = []byte("records")
	metaBucket    = []byte("meta")
)

// Store is a hashstore.Store backed by boltdb.
type Store struct {
	path   string
	db     *bolt.DB
	logger *zap.Logger
	clock  hashstore.Clock
	closed atomic.Bool
}

var _ hashstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the clock used to evaluate expiries.
func WithClock(c hashstore.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// Open creates the bolt file if it doesn't exist and opens it otherwise.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:   path,
		logger: zap.NewNop(),
		clock:  hashstore.SystemClock{},
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("unable to create directory %s: %w", path, err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open boltdb file: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{recordsBucket, metaBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	s.db = db
	s.logger.Info("Hash store opened", zap.String("backend", "bolt"), zap.String("path", path))
	return s, nil
}

// Close the connection to the bolt database. Later calls are no-ops.
func (s *Store) Close() error {
	if s.closed.Swap(true) || s.db == nil {
		return nil
	}
	s.logger.Info("Hash store closed", zap.String("path", s.path))
	return s.db.Close()
}

// Path returns the bolt file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) view(fn func(tx *bolt.Tx, now int64) error) error {
	if s.closed.Load() {
		return hashstore.ErrClosed
	}
	return s.db.View(func(tx *bolt.Tx) error {
		return fn(tx, s.clock.Now().UnixMilli())
	})
}

func (s *Store) update(ctx context.Context, fn func(tx *bolt.Tx, now int64) error) error {
	if s.closed.Load() {
		return hashstore.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return fn(tx, s.clock.Now().UnixMilli())
	})
}

// meta is the per-record bookkeeping stored in the meta bucket.
type meta struct {
	version   uint64
	expiresAt int64 // unix millis, 0 when the record has no expiry
}

func (m meta) live(now int64) bool {
	return m.expiresAt == 0 || m.expiresAt > now
}

func encodeMeta(m meta) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], m.version)
	binary.BigEndian.PutUint64(buf[8:], uint64(m.expiresAt))
	return buf
}

func decodeMeta(b []byte) (meta, error) {
	if len(b) != 16 {
		return meta{}, fmt.Errorf("corrupt record meta: %d bytes", len(b))
	}
	return meta{
		version:   binary.BigEndian.Uint64(b[:8]),
		expiresAt: int64(binary.BigEndian.Uint64(b[8:])),
	}, nil
}
