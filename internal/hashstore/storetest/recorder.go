// Package storetest holds test support shared by hashstore backends and
// their decorators: a conformance suite and a call-recording store.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roach88/hashview/internal/hashstore"
)

// Call is one recorded operation. Args and Results are rendered with %q/%v
// so traces from independent stores compare with plain equality.
type Call struct {
	Op      string
	Key     string
	Args    string
	Results string
}

func (c Call) String() string {
	return fmt.Sprintf("%s(%s %s) -> %s", c.Op, c.Key, c.Args, c.Results)
}

// Recorder is a hashstore.Store that forwards every call to an inner store
// and records it. Handles it returns record into the same trace.
type Recorder struct {
	inner hashstore.Store

	mu    sync.Mutex
	calls []Call
}

var _ hashstore.Store = (*Recorder)(nil)

// NewRecorder wraps inner.
func NewRecorder(inner hashstore.Store) *Recorder {
	return &Recorder{inner: inner}
}

// Calls returns a copy of the trace.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Ops returns just the operation names of the trace.
func (r *Recorder) Ops() []string {
	calls := r.Calls()
	ops := make([]string, len(calls))
	for i, c := range calls {
		ops[i] = c.Op
	}
	return ops
}

// Reset clears the trace.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) record(op, key string, args []any, results ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{
		Op:      op,
		Key:     key,
		Args:    render(args...),
		Results: render(results...),
	})
}

func render(vals ...any) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		switch x := v.(type) {
		case []byte:
			parts[i] = fmt.Sprintf("%q", x)
		case [][]byte:
			s := make([]string, len(x))
			for j, b := range x {
				s[j] = fmt.Sprintf("%q", b)
			}
			parts[i] = "[" + strings.Join(s, " ") + "]"
		case map[string][]byte:
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			s := make([]string, len(keys))
			for j, k := range keys {
				s[j] = fmt.Sprintf("%q:%q", k, x[k])
			}
			parts[i] = "{" + strings.Join(s, " ") + "}"
		case []hashstore.Optional:
			s := make([]string, len(x))
			for j, o := range x {
				if o.Present {
					s[j] = fmt.Sprintf("%q", o.Value)
				} else {
					s[j] = "<absent>"
				}
			}
			parts[i] = "[" + strings.Join(s, " ") + "]"
		case error:
			parts[i] = "error: " + x.Error()
		case nil:
			parts[i] = "<nil>"
		default:
			parts[i] = fmt.Sprintf("%v", x)
		}
	}
	return strings.Join(parts, ", ")
}

func args(vals ...any) []any { return vals }

func (r *Recorder) Hash(key string) hashstore.Hash {
	r.record("Hash", key, nil)
	return &recordedHash{r: r, inner: r.inner.Hash(key)}
}

func (r *Recorder) Exists(ctx context.Context, keys ...string) (int64, error) {
	n, err := r.inner.Exists(ctx, keys...)
	r.record("Exists", "", args(keys), n, err)
	return n, err
}

func (r *Recorder) Delete(ctx context.Context, keys ...string) (int64, error) {
	n, err := r.inner.Delete(ctx, keys...)
	r.record("Delete", "", args(keys), n, err)
	return n, err
}

func (r *Recorder) Type(ctx context.Context, key string) (hashstore.Type, error) {
	t, err := r.inner.Type(ctx, key)
	r.record("Type", key, nil, t, err)
	return t, err
}

func (r *Recorder) Keys(ctx context.Context, pattern string) ([]string, error) {
	keys, err := r.inner.Keys(ctx, pattern)
	r.record("Keys", "", args(pattern), keys, err)
	return keys, err
}

func (r *Recorder) Rename(ctx context.Context, oldKey, newKey string) error {
	err := r.inner.Rename(ctx, oldKey, newKey)
	r.record("Rename", oldKey, args(newKey), err)
	return err
}

func (r *Recorder) RenameNX(ctx context.Context, oldKey, newKey string) (bool, error) {
	ok, err := r.inner.RenameNX(ctx, oldKey, newKey)
	r.record("RenameNX", oldKey, args(newKey), ok, err)
	return ok, err
}

func (r *Recorder) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.inner.Expire(ctx, key, ttl)
	r.record("Expire", key, args(ttl), ok, err)
	return ok, err
}

func (r *Recorder) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	ok, err := r.inner.ExpireAt(ctx, key, at)
	r.record("ExpireAt", key, args(at.UnixMilli()), ok, err)
	return ok, err
}

func (r *Recorder) Persist(ctx context.Context, key string) (bool, error) {
	ok, err := r.inner.Persist(ctx, key)
	r.record("Persist", key, nil, ok, err)
	return ok, err
}

func (r *Recorder) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := r.inner.TTL(ctx, key)
	r.record("TTL", key, nil, d, err)
	return d, err
}

func (r *Recorder) Watch(ctx context.Context, fn func(tx *hashstore.Tx) error, keys ...string) error {
	var ops []string
	err := r.inner.Watch(ctx, func(tx *hashstore.Tx) error {
		err := fn(tx)
		for _, op := range tx.Ops() {
			ops = append(ops, op.Type.String()+" "+op.Key)
		}
		return err
	}, keys...)
	r.record("Watch", "", args(keys, ops), err)
	return err
}

func (r *Recorder) Close() error {
	err := r.inner.Close()
	r.record("Close", "", nil, err)
	return err
}

type recordedHash struct {
	r     *Recorder
	inner hashstore.Hash
}

func (h *recordedHash) Key() string {
	return h.inner.Key()
}

func (h *recordedHash) Get(ctx context.Context, field string) ([]byte, error) {
	v, err := h.inner.Get(ctx, field)
	h.r.record("Hash.Get", h.inner.Key(), args(field), v, err)
	return v, err
}

func (h *recordedHash) MGet(ctx context.Context, fields ...string) ([]hashstore.Optional, error) {
	v, err := h.inner.MGet(ctx, fields...)
	h.r.record("Hash.MGet", h.inner.Key(), args(fields), v, err)
	return v, err
}

func (h *recordedHash) Exists(ctx context.Context, field string) (bool, error) {
	ok, err := h.inner.Exists(ctx, field)
	h.r.record("Hash.Exists", h.inner.Key(), args(field), ok, err)
	return ok, err
}

func (h *recordedHash) Set(ctx context.Context, field string, value []byte) error {
	err := h.inner.Set(ctx, field, value)
	h.r.record("Hash.Set", h.inner.Key(), args(field, value), err)
	return err
}

func (h *recordedHash) SetNX(ctx context.Context, field string, value []byte) (bool, error) {
	ok, err := h.inner.SetNX(ctx, field, value)
	h.r.record("Hash.SetNX", h.inner.Key(), args(field, value), ok, err)
	return ok, err
}

func (h *recordedHash) SetAll(ctx context.Context, fields map[string][]byte) error {
	err := h.inner.SetAll(ctx, fields)
	h.r.record("Hash.SetAll", h.inner.Key(), args(fields), err)
	return err
}

func (h *recordedHash) IncrBy(ctx context.Context, field string, delta int64) (int64, error) {
	n, err := h.inner.IncrBy(ctx, field, delta)
	h.r.record("Hash.IncrBy", h.inner.Key(), args(field, delta), n, err)
	return n, err
}

func (h *recordedHash) Delete(ctx context.Context, fields ...string) (int64, error) {
	n, err := h.inner.Delete(ctx, fields...)
	h.r.record("Hash.Delete", h.inner.Key(), args(fields), n, err)
	return n, err
}

func (h *recordedHash) Fields(ctx context.Context) ([]string, error) {
	names, err := h.inner.Fields(ctx)
	h.r.record("Hash.Fields", h.inner.Key(), nil, names, err)
	return names, err
}

func (h *recordedHash) Values(ctx context.Context) ([][]byte, error) {
	values, err := h.inner.Values(ctx)
	h.r.record("Hash.Values", h.inner.Key(), nil, values, err)
	return values, err
}

func (h *recordedHash) Len(ctx context.Context) (int64, error) {
	n, err := h.inner.Len(ctx)
	h.r.record("Hash.Len", h.inner.Key(), nil, n, err)
	return n, err
}

func (h *recordedHash) Entries(ctx context.Context) (map[string][]byte, error) {
	entries, err := h.inner.Entries(ctx)
	h.r.record("Hash.Entries", h.inner.Key(), nil, entries, err)
	return entries, err
}

func (h *recordedHash) Scan(ctx context.Context, match string, fn func(field string, value []byte) error) error {
	var seen []string
	err := h.inner.Scan(ctx, match, func(field string, value []byte) error {
		seen = append(seen, field)
		return fn(field, value)
	})
	h.r.record("Hash.Scan", h.inner.Key(), args(match), seen, err)
	return err
}

func (h *recordedHash) Expire(ctx context.Context, ttl time.Duration) (bool, error) {
	ok, err := h.inner.Expire(ctx, ttl)
	h.r.record("Hash.Expire", h.inner.Key(), args(ttl), ok, err)
	return ok, err
}

func (h *recordedHash) ExpireAt(ctx context.Context, at time.Time) (bool, error) {
	ok, err := h.inner.ExpireAt(ctx, at)
	h.r.record("Hash.ExpireAt", h.inner.Key(), args(at.UnixMilli()), ok, err)
	return ok, err
}

func (h *recordedHash) Persist(ctx context.Context) (bool, error) {
	ok, err := h.inner.Persist(ctx)
	h.r.record("Hash.Persist", h.inner.Key(), nil, ok, err)
	return ok, err
}

func (h *recordedHash) TTL(ctx context.Context) (time.Duration, error) {
	d, err := h.inner.TTL(ctx)
	h.r.record("Hash.TTL", h.inner.Key(), nil, d, err)
	return d, err
}

func (h *recordedHash) Rename(ctx context.Context, newKey string) error {
	oldKey := h.inner.Key()
	err := h.inner.Rename(ctx, newKey)
	h.r.record("Hash.Rename", oldKey, args(newKey), err)
	return err
}

func (h *recordedHash) Type(ctx context.Context) (hashstore.Type, error) {
	t, err := h.inner.Type(ctx)
	h.r.record("Hash.Type", h.inner.Key(), nil, t, err)
	return t, err
}
