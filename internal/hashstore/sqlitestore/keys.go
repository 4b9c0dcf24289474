package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/hashview/internal/hashstore"
)

// Hash returns a handle bound to key.
func (s *Store) Hash(key string) hashstore.Hash {
	return &hash{s: s, key: key}
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	err := s.read(func(q querier, now int64) error {
		for _, key := range keys {
			ok, err := keyExists(ctx, q, key, now)
			if err != nil {
				return err
			}
			if ok {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	err := s.update(ctx, func(tx *sql.Tx, now int64) error {
		for _, key := range keys {
			ok, err := deleteKey(ctx, tx, key, now)
			if err != nil {
				return err
			}
			if ok {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) Type(ctx context.Context, key string) (hashstore.Type, error) {
	n, err := s.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if n == 0 {
		return hashstore.TypeNone, nil
	}
	return hashstore.TypeHash, nil
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := s.read(func(q querier, now int64) error {
		rows, err := q.QueryContext(ctx,
			`SELECT r.key FROM records r WHERE `+live+` ORDER BY r.key ASC`, now)
		if err != nil {
			return fmt.Errorf("keys: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return fmt.Errorf("keys: %w", err)
			}
			if hashstore.MatchPattern(pattern, key) {
				keys = append(keys, key)
			}
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) Rename(ctx context.Context, oldKey, newKey string) error {
	return s.update(ctx, func(tx *sql.Tx, now int64) error {
		_, err := rename(ctx, tx, oldKey, newKey, false, now)
		return err
	})
}

func (s *Store) RenameNX(ctx context.Context, oldKey, newKey string) (bool, error) {
	var moved bool
	err := s.update(ctx, func(tx *sql.Tx, now int64) error {
		var err error
		moved, err = rename(ctx, tx, oldKey, newKey, true, now)
		return err
	})
	return moved, err
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	at := hashstore.ExpiryAfter(s.clock, ttl)
	if ttl <= 0 {
		at = time.UnixMilli(0)
	}
	return s.ExpireAt(ctx, key, at)
}

func (s *Store) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	var ok bool
	err := s.update(ctx, func(tx *sql.Tx, now int64) error {
		var err error
		ok, err = setExpiry(ctx, tx, key, at.UnixMilli(), now)
		return err
	})
	return ok, err
}

func (s *Store) Persist(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := s.update(ctx, func(tx *sql.Tx, now int64) error {
		var err error
		ok, err = persist(ctx, tx, key, now)
		return err
	})
	return ok, err
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	var d time.Duration
	err := s.read(func(q querier, now int64) error {
		var err error
		d, err = ttl(ctx, q, key, now)
		return err
	})
	return d, err
}

// Watch implements optimistic WATCH/MULTI/EXEC. Versions are re-read inside
// the write transaction, which holds the database write lock.
func (s *Store) Watch(ctx context.Context, fn func(tx *hashstore.Tx) error, keys ...string) error {
	before := make([]hashstore.Version, len(keys))
	err := s.read(func(q querier, now int64) error {
		for i, key := range keys {
			v, err := version(ctx, q, key, now)
			if err != nil {
				return err
			}
			before[i] = v
		}
		return nil
	})
	if err != nil {
		return err
	}

	queued := &hashstore.Tx{}
	if err := fn(queued); err != nil {
		return err
	}

	return s.update(ctx, func(tx *sql.Tx, now int64) error {
		for i, key := range keys {
			v, err := version(ctx, tx, key, now)
			if err != nil {
				return err
			}
			if v != before[i] {
				s.logger.Debug("Watched key changed, aborting transaction", zap.String("key", key))
				return hashstore.ErrTxFailed
			}
		}
		for _, op := range queued.Ops() {
			if err := s.apply(ctx, tx, op, now); err != nil {
				return fmt.Errorf("exec %s %q: %w", op.Type, op.Key, err)
			}
		}
		return nil
	})
}

func (s *Store) apply(ctx context.Context, tx *sql.Tx, op hashstore.Op, now int64) error {
	var err error
	switch op.Type {
	case hashstore.OpSet:
		err = setFields(ctx, tx, op.Key, op.Fields, now)
	case hashstore.OpDeleteFields:
		_, err = deleteFields(ctx, tx, op.Key, op.Names, now)
	case hashstore.OpDeleteKey:
		_, err = deleteKey(ctx, tx, op.Key, now)
	case hashstore.OpExpire:
		at := int64(0)
		if op.TTL > 0 {
			at = hashstore.ExpiryAfter(s.clock, op.TTL).UnixMilli()
		}
		_, err = setExpiry(ctx, tx, op.Key, at, now)
	case hashstore.OpPersist:
		_, err = persist(ctx, tx, op.Key, now)
	default:
		err = fmt.Errorf("unknown op type %d", op.Type)
	}
	return err
}
