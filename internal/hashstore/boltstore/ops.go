package boltstore

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/hashview/internal/hashstore"
)

func readMeta(tx *bolt.Tx, key string) (meta, bool, error) {
	raw := tx.Bucket(metaBucket).Get([]byte(key))
	if raw == nil {
		return meta{}, false, nil
	}
	m, err := decodeMeta(raw)
	if err != nil {
		return meta{}, false, fmt.Errorf("%s: %w", key, err)
	}
	return m, true, nil
}

// lookup returns the live record for key. ok is false when the record is
// missing or expired.
func lookup(tx *bolt.Tx, key string, now int64) (meta, *bolt.Bucket, bool, error) {
	m, found, err := readMeta(tx, key)
	if err != nil || !found || !m.live(now) {
		return meta{}, nil, false, err
	}
	b := tx.Bucket(recordsBucket).Bucket([]byte(key))
	if b == nil {
		return meta{}, nil, false, nil
	}
	return m, b, true, nil
}

// drop removes key and its fields unconditionally.
func drop(tx *bolt.Tx, key string) error {
	err := tx.Bucket(recordsBucket).DeleteBucket([]byte(key))
	if err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
		return fmt.Errorf("drop %q: %w", key, err)
	}
	return tx.Bucket(metaBucket).Delete([]byte(key))
}

// purge drops key if its expiry has passed.
func purge(tx *bolt.Tx, key string, now int64) error {
	m, found, err := readMeta(tx, key)
	if err != nil || !found || m.live(now) {
		return err
	}
	return drop(tx, key)
}

// stamp writes a fresh version for key, keeping the given expiry.
func stamp(tx *bolt.Tx, key string, expiresAt int64) error {
	mb := tx.Bucket(metaBucket)
	seq, err := mb.NextSequence()
	if err != nil {
		return fmt.Errorf("advance clock: %w", err)
	}
	return mb.Put([]byte(key), encodeMeta(meta{version: seq, expiresAt: expiresAt}))
}

func version(tx *bolt.Tx, key string, now int64) (hashstore.Version, error) {
	m, _, ok, err := lookup(tx, key, now)
	if err != nil || !ok {
		return hashstore.Version{}, err
	}
	return hashstore.Version{Exists: true, Seq: m.version}, nil
}

// fieldValue copies a field out of b. Values returned by bolt are only valid
// for the life of the transaction.
func fieldValue(b *bolt.Bucket, field string) ([]byte, bool) {
	name := []byte(field)
	k, v := b.Cursor().Seek(name)
	if k == nil || !bytes.Equal(k, name) {
		return nil, false
	}
	return clone(v), true
}

func getField(tx *bolt.Tx, key, field string, now int64) ([]byte, bool, error) {
	_, b, ok, err := lookup(tx, key, now)
	if err != nil || !ok {
		return nil, false, err
	}
	v, present := fieldValue(b, field)
	return v, present, nil
}

func setFields(tx *bolt.Tx, key string, fields map[string][]byte, now int64) error {
	if len(fields) == 0 {
		return nil
	}
	if err := purge(tx, key, now); err != nil {
		return err
	}
	m, _, err := readMeta(tx, key)
	if err != nil {
		return err
	}
	b, err := tx.Bucket(recordsBucket).CreateBucketIfNotExists([]byte(key))
	if err != nil {
		return fmt.Errorf("create record %q: %w", key, err)
	}
	for name, value := range fields {
		if err := b.Put([]byte(name), clone(value)); err != nil {
			return fmt.Errorf("set field %q: %w", name, err)
		}
	}
	return stamp(tx, key, m.expiresAt)
}

func deleteFields(tx *bolt.Tx, key string, names []string, now int64) (int64, error) {
	if err := purge(tx, key, now); err != nil {
		return 0, err
	}
	m, b, ok, err := lookup(tx, key, now)
	if err != nil || !ok {
		return 0, err
	}
	var removed int64
	for _, name := range names {
		if _, present := fieldValue(b, name); !present {
			continue
		}
		if err := b.Delete([]byte(name)); err != nil {
			return 0, fmt.Errorf("delete field %q: %w", name, err)
		}
		removed++
	}
	if removed == 0 {
		return 0, nil
	}
	if k, _ := b.Cursor().First(); k == nil {
		return removed, drop(tx, key)
	}
	return removed, stamp(tx, key, m.expiresAt)
}

func deleteKey(tx *bolt.Tx, key string, now int64) (bool, error) {
	if err := purge(tx, key, now); err != nil {
		return false, err
	}
	_, _, ok, err := lookup(tx, key, now)
	if err != nil || !ok {
		return false, err
	}
	return true, drop(tx, key)
}

func setExpiry(tx *bolt.Tx, key string, at, now int64) (bool, error) {
	if at <= now {
		return deleteKey(tx, key, now)
	}
	if err := purge(tx, key, now); err != nil {
		return false, err
	}
	_, _, ok, err := lookup(tx, key, now)
	if err != nil || !ok {
		return false, err
	}
	return true, stamp(tx, key, at)
}

func persist(tx *bolt.Tx, key string, now int64) (bool, error) {
	if err := purge(tx, key, now); err != nil {
		return false, err
	}
	m, _, ok, err := lookup(tx, key, now)
	if err != nil || !ok || m.expiresAt == 0 {
		return false, err
	}
	return true, stamp(tx, key, 0)
}

func rename(tx *bolt.Tx, oldKey, newKey string, nx bool, now int64) (bool, error) {
	if err := purge(tx, oldKey, now); err != nil {
		return false, err
	}
	if err := purge(tx, newKey, now); err != nil {
		return false, err
	}
	m, src, ok, err := lookup(tx, oldKey, now)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, hashstore.ErrNoSuchKey
	}
	if oldKey == newKey {
		return !nx, nil
	}
	_, _, taken, err := lookup(tx, newKey, now)
	if err != nil {
		return false, err
	}
	if taken {
		if nx {
			return false, nil
		}
		if err := drop(tx, newKey); err != nil {
			return false, err
		}
	}

	dst, err := tx.Bucket(recordsBucket).CreateBucket([]byte(newKey))
	if err != nil {
		return false, fmt.Errorf("rename: %w", err)
	}
	err = src.ForEach(func(k, v []byte) error {
		return dst.Put(clone(k), clone(v))
	})
	if err != nil {
		return false, fmt.Errorf("rename: %w", err)
	}
	if err := drop(tx, oldKey); err != nil {
		return false, err
	}
	return true, stamp(tx, newKey, m.expiresAt)
}

func scanFields(tx *bolt.Tx, key string, now int64, fn func(field string, value []byte) error) error {
	_, b, ok, err := lookup(tx, key, now)
	if err != nil || !ok {
		return err
	}
	return b.ForEach(func(k, v []byte) error {
		return fn(string(k), clone(v))
	})
}

func ttl(tx *bolt.Tx, key string, now int64) (time.Duration, error) {
	m, _, ok, err := lookup(tx, key, now)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, hashstore.ErrNoSuchKey
	}
	if m.expiresAt == 0 {
		return hashstore.NoExpiry, nil
	}
	return hashstore.Remaining(time.UnixMilli(now), time.UnixMilli(m.expiresAt)), nil
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
