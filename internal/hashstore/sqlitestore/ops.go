package sqlitestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/roach88/hashview/internal/hashstore"
)

// live filters records whose expiry has not passed. Takes one argument: now.
const live = "(r.expires_at IS NULL OR r.expires_at > ?)"

// purge drops key if its expiry has passed. Writes call it first so expired
// records never leak fields into a fresh one.
func purge(ctx context.Context, tx *sql.Tx, key string, now int64) error {
	_, err := tx.ExecContext(ctx,
		`DELETE FROM records WHERE key = ? AND expires_at IS NOT NULL AND expires_at <= ?`,
		key, now)
	if err != nil {
		return fmt.Errorf("purge expired: %w", err)
	}
	return nil
}

// nextSeq advances the logical clock.
func nextSeq(ctx context.Context, tx *sql.Tx) (uint64, error) {
	if _, err := tx.ExecContext(ctx, `UPDATE clock SET seq = seq + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("advance clock: %w", err)
	}
	var seq uint64
	if err := tx.QueryRowContext(ctx, `SELECT seq FROM clock WHERE id = 1`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read clock: %w", err)
	}
	return seq, nil
}

// touch creates key if needed and stamps it with a new version.
func touch(ctx context.Context, tx *sql.Tx, key string) error {
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (key, version) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET version = excluded.version
	`, key, seq)
	if err != nil {
		return fmt.Errorf("touch record: %w", err)
	}
	return nil
}

func keyExists(ctx context.Context, q querier, key string, now int64) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx,
		`SELECT 1 FROM records r WHERE r.key = ? AND `+live, key, now).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check key: %w", err)
	}
	return true, nil
}

func version(ctx context.Context, q querier, key string, now int64) (hashstore.Version, error) {
	var seq uint64
	err := q.QueryRowContext(ctx,
		`SELECT r.version FROM records r WHERE r.key = ? AND `+live, key, now).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return hashstore.Version{}, nil
	}
	if err != nil {
		return hashstore.Version{}, fmt.Errorf("read version: %w", err)
	}
	return hashstore.Version{Exists: true, Seq: seq}, nil
}

func getField(ctx context.Context, q querier, key, field string, now int64) ([]byte, bool, error) {
	var value []byte
	err := q.QueryRowContext(ctx, `
		SELECT f.value FROM fields f JOIN records r ON r.key = f.key
		WHERE f.key = ? AND f.field = ? AND `+live,
		key, field, now).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get field: %w", err)
	}
	return nonNil(value), true, nil
}

// setFields upserts fields. An empty map is a no-op and creates no record.
func setFields(ctx context.Context, tx *sql.Tx, key string, fields map[string][]byte, now int64) error {
	if len(fields) == 0 {
		return nil
	}
	if err := purge(ctx, tx, key, now); err != nil {
		return err
	}
	if err := touch(ctx, tx, key); err != nil {
		return err
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fields (key, field, value) VALUES (?, ?, ?)
			ON CONFLICT(key, field) DO UPDATE SET value = excluded.value
		`, key, name, nonNil(fields[name]))
		if err != nil {
			return fmt.Errorf("set field %q: %w", name, err)
		}
	}
	return nil
}

// deleteFields removes names and drops the record once it has no fields.
func deleteFields(ctx context.Context, tx *sql.Tx, key string, names []string, now int64) (int64, error) {
	if err := purge(ctx, tx, key, now); err != nil {
		return 0, err
	}
	var removed int64
	for _, name := range names {
		res, err := tx.ExecContext(ctx, `DELETE FROM fields WHERE key = ? AND field = ?`, key, name)
		if err != nil {
			return 0, fmt.Errorf("delete field %q: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("delete field %q: %w", name, err)
		}
		removed += n
	}
	if removed == 0 {
		return 0, nil
	}
	if err := touch(ctx, tx, key); err != nil {
		return 0, err
	}
	_, err := tx.ExecContext(ctx, `
		DELETE FROM records
		WHERE key = ? AND NOT EXISTS (SELECT 1 FROM fields WHERE fields.key = records.key)
	`, key)
	if err != nil {
		return 0, fmt.Errorf("drop empty record: %w", err)
	}
	return removed, nil
}

func deleteKey(ctx context.Context, tx *sql.Tx, key string, now int64) (bool, error) {
	if err := purge(ctx, tx, key, now); err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM records WHERE key = ?`, key)
	if err != nil {
		return false, fmt.Errorf("delete key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete key: %w", err)
	}
	return n > 0, nil
}

// setExpiry sets an absolute expiry in unix millis; at <= now deletes.
func setExpiry(ctx context.Context, tx *sql.Tx, key string, at, now int64) (bool, error) {
	if at <= now {
		return deleteKey(ctx, tx, key, now)
	}
	if err := purge(ctx, tx, key, now); err != nil {
		return false, err
	}
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE records SET expires_at = ?, version = ? WHERE key = ?`, at, seq, key)
	if err != nil {
		return false, fmt.Errorf("set expiry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set expiry: %w", err)
	}
	return n > 0, nil
}

func persist(ctx context.Context, tx *sql.Tx, key string, now int64) (bool, error) {
	if err := purge(ctx, tx, key, now); err != nil {
		return false, err
	}
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return false, err
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE records SET expires_at = NULL, version = ? WHERE key = ? AND expires_at IS NOT NULL`,
		seq, key)
	if err != nil {
		return false, fmt.Errorf("persist: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("persist: %w", err)
	}
	return n > 0, nil
}

// rename moves oldKey onto newKey. With nx set an existing newKey wins and
// nothing moves.
func rename(ctx context.Context, tx *sql.Tx, oldKey, newKey string, nx bool, now int64) (bool, error) {
	if err := purge(ctx, tx, oldKey, now); err != nil {
		return false, err
	}
	if err := purge(ctx, tx, newKey, now); err != nil {
		return false, err
	}
	ok, err := keyExists(ctx, tx, oldKey, now)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, hashstore.ErrNoSuchKey
	}
	if oldKey == newKey {
		return !nx, nil
	}
	taken, err := keyExists(ctx, tx, newKey, now)
	if err != nil {
		return false, err
	}
	if taken {
		if nx {
			return false, nil
		}
		if _, err := deleteKey(ctx, tx, newKey, now); err != nil {
			return false, err
		}
	}
	seq, err := nextSeq(ctx, tx)
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET key = ?, version = ? WHERE key = ?`, newKey, seq, oldKey); err != nil {
		return false, fmt.Errorf("rename: %w", err)
	}
	return true, nil
}

// scanFields streams fields of key in ascending field order.
func scanFields(ctx context.Context, q querier, key string, now int64, fn func(field string, value []byte) error) error {
	rows, err := q.QueryContext(ctx, `
		SELECT f.field, f.value FROM fields f JOIN records r ON r.key = f.key
		WHERE f.key = ? AND `+live+`
		ORDER BY f.field ASC
	`, key, now)
	if err != nil {
		return fmt.Errorf("scan fields: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			field string
			value []byte
		)
		if err := rows.Scan(&field, &value); err != nil {
			return fmt.Errorf("scan fields: %w", err)
		}
		if err := fn(field, nonNil(value)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan fields: %w", err)
	}
	return nil
}

// multiGet fetches names in one query and aligns the rows with names.
func multiGet(ctx context.Context, q querier, key string, names []string, now int64) ([]hashstore.Optional, error) {
	out := make([]hashstore.Optional, len(names))
	if len(names) == 0 {
		return out, nil
	}

	args := make([]any, 0, len(names)+2)
	args = append(args, key, now)
	for _, n := range names {
		args = append(args, n)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")

	rows, err := q.QueryContext(ctx, `
		SELECT f.field, f.value FROM fields f JOIN records r ON r.key = f.key
		WHERE f.key = ? AND `+live+` AND f.field IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}
	defer rows.Close()

	found := make(map[string][]byte, len(names))
	for rows.Next() {
		var (
			field string
			value []byte
		)
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("mget: %w", err)
		}
		found[field] = nonNil(value)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("mget: %w", err)
	}

	for i, n := range names {
		if v, ok := found[n]; ok {
			out[i] = hashstore.Optional{Value: v, Present: true}
		}
	}
	return out, nil
}

func ttl(ctx context.Context, q querier, key string, now int64) (time.Duration, error) {
	var expiresAt sql.NullInt64
	err := q.QueryRowContext(ctx,
		`SELECT r.expires_at FROM records r WHERE r.key = ? AND `+live, key, now).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, hashstore.ErrNoSuchKey
	}
	if err != nil {
		return 0, fmt.Errorf("ttl: %w", err)
	}
	if !expiresAt.Valid {
		return hashstore.NoExpiry, nil
	}
	return hashstore.Remaining(time.UnixMilli(now), time.UnixMilli(expiresAt.Int64)), nil
}

// nonNil keeps present empty values distinguishable from absent ones. The
// driver binds a nil slice as NULL and may scan an empty blob back as nil.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
