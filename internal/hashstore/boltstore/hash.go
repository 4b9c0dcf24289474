package boltstore

import (
	"context"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/roach88/hashview/internal/hashstore"
)

type hash struct {
	s *Store

	mu  sync.RWMutex
	key string
}

var _ hashstore.Hash = (*hash)(nil)

func (h *hash) Key() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.key
}

func (h *hash) Get(ctx context.Context, field string) ([]byte, error) {
	var (
		value []byte
		ok    bool
	)
	err := h.s.view(func(tx *bolt.Tx, now int64) error {
		var err error
		value, ok, err = getField(tx, h.Key(), field, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, hashstore.ErrFieldNotFound
	}
	return value, nil
}

func (h *hash) MGet(ctx context.Context, fields ...string) ([]hashstore.Optional, error) {
	out := make([]hashstore.Optional, len(fields))
	err := h.s.view(func(tx *bolt.Tx, now int64) error {
		_, b, ok, err := lookup(tx, h.Key(), now)
		if err != nil || !ok {
			return err
		}
		for i, name := range fields {
			if v, present := fieldValue(b, name); present {
				out[i] = hashstore.Optional{Value: v, Present: true}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (h *hash) Exists(ctx context.Context, field string) (bool, error) {
	var ok bool
	err := h.s.view(func(tx *bolt.Tx, now int64) error {
		var err error
		_, ok, err = getField(tx, h.Key(), field, now)
		return err
	})
	return ok, err
}

func (h *hash) Set(ctx context.Context, field string, value []byte) error {
	return h.SetAll(ctx, map[string][]byte{field: value})
}

func (h *hash) SetNX(ctx context.Context, field string, value []byte) (bool, error) {
	var set bool
	err := h.s.update(ctx, func(tx *bolt.Tx, now int64) error {
		key := h.Key()
		_, present, err := getField(tx, key, field, now)
		if err != nil || present {
			return err
		}
		set = true
		return setFields(tx, key, map[string][]byte{field: value}, now)
	})
	return set, err
}

func (h *hash) SetAll(ctx context.Context, fields map[string][]byte) error {
	return h.s.update(ctx, func(tx *bolt.Tx, now int64) error {
		return setFields(tx, h.Key(), fields, now)
	})
}

func (h *hash) IncrBy(ctx context.Context, field string, delta int64) (int64, error) {
	var n int64
	err := h.s.update(ctx, func(tx *bolt.Tx, now int64) error {
		key := h.Key()
		current, present, err := getField(tx, key, field, now)
		if err != nil {
			return err
		}
		n, err = hashstore.AddInt(current, present, delta)
		if err != nil {
			return err
		}
		return setFields(tx, key, map[string][]byte{field: hashstore.FormatInt(n)}, now)
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (h *hash) Delete(ctx context.Context, fields ...string) (int64, error) {
	var n int64
	err := h.s.update(ctx, func(tx *bolt.Tx, now int64) error {
		var err error
		n, err = deleteFields(tx, h.Key(), fields, now)
		return err
	})
	return n, err
}

func (h *hash) Fields(ctx context.Context) ([]string, error) {
	var names []string
	err := h.scan(func(field string, _ []byte) error {
		names = append(names, field)
		return nil
	})
	return names, err
}

func (h *hash) Values(ctx context.Context) ([][]byte, error) {
	var values [][]byte
	err := h.scan(func(_ string, value []byte) error {
		values = append(values, value)
		return nil
	})
	return values, err
}

func (h *hash) Len(ctx context.Context) (int64, error) {
	var n int64
	err := h.scan(func(string, []byte) error {
		n++
		return nil
	})
	return n, err
}

func (h *hash) Entries(ctx context.Context) (map[string][]byte, error) {
	entries := make(map[string][]byte)
	err := h.scan(func(field string, value []byte) error {
		entries[field] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (h *hash) Scan(ctx context.Context, match string, fn func(field string, value []byte) error) error {
	return h.scan(func(field string, value []byte) error {
		if !hashstore.MatchPattern(match, field) {
			return nil
		}
		return fn(field, value)
	})
}

// scan collects fields inside a read transaction and calls fn after it ends,
// so fn may write to the store without deadlocking against bbolt.
func (h *hash) scan(fn func(field string, value []byte) error) error {
	type row struct {
		field string
		value []byte
	}
	var rows []row
	err := h.s.view(func(tx *bolt.Tx, now int64) error {
		return scanFields(tx, h.Key(), now, func(field string, value []byte) error {
			rows = append(rows, row{field, value})
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := fn(r.field, r.value); err != nil {
			return err
		}
	}
	return nil
}

func (h *hash) Expire(ctx context.Context, ttl time.Duration) (bool, error) {
	return h.s.Expire(ctx, h.Key(), ttl)
}

func (h *hash) ExpireAt(ctx context.Context, at time.Time) (bool, error) {
	return h.s.ExpireAt(ctx, h.Key(), at)
}

func (h *hash) Persist(ctx context.Context) (bool, error) {
	return h.s.Persist(ctx, h.Key())
}

func (h *hash) TTL(ctx context.Context) (time.Duration, error) {
	return h.s.TTL(ctx, h.Key())
}

func (h *hash) Rename(ctx context.Context, newKey string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.s.Rename(ctx, h.key, newKey); err != nil {
		return err
	}
	h.key = newKey
	return nil
}

func (h *hash) Type(ctx context.Context) (hashstore.Type, error) {
	return h.s.Type(ctx, h.Key())
}
