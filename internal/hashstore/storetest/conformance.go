package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hashview/internal/hashstore"
	"github.com/roach88/hashview/internal/testutil"
)

// Epoch is the start time of the fake clock handed to factories.
var Epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// Factory opens a fresh, empty store that evaluates expiries with clock.
// It should register cleanup with t.
type Factory func(t *testing.T, clock hashstore.Clock) hashstore.Store

// Run exercises the hashstore contract against stores produced by open.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s hashstore.Store, clock *testutil.FakeClock)
	}{
		{"SetGet", testSetGet},
		{"GetMissing", testGetMissing},
		{"MGetAlignment", testMGetAlignment},
		{"EmptyValueIsPresent", testEmptyValueIsPresent},
		{"SetNX", testSetNX},
		{"IncrBy", testIncrBy},
		{"DeleteFields", testDeleteFields},
		{"Enumeration", testEnumeration},
		{"Scan", testScan},
		{"Expiry", testExpiry},
		{"ExpiredRecordStartsFresh", testExpiredRecordStartsFresh},
		{"Rename", testRename},
		{"HandleRenameRebinds", testHandleRenameRebinds},
		{"KeysAndExists", testKeysAndExists},
		{"WatchCommits", testWatchCommits},
		{"WatchConflict", testWatchConflict},
		{"WatchFnError", testWatchFnError},
		{"Closed", testClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := testutil.NewFakeClock(Epoch)
			s := open(t, clock)
			tt.fn(t, s, clock)
		})
	}
}

func testSetGet(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("user:1")
	assert.Equal(t, "user:1", h.Key())

	require.NoError(t, h.Set(ctx, "name", []byte("ada")))
	require.NoError(t, h.SetAll(ctx, map[string][]byte{"lang": []byte("go"), "name": []byte("grace")}))

	v, err := h.Get(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []byte("grace"), v)

	ok, err := h.Exists(ctx, "lang")
	require.NoError(t, err)
	assert.True(t, ok)

	typ, err := h.Type(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashstore.TypeHash, typ)

	// Empty SetAll is a no-op and creates nothing.
	require.NoError(t, s.Hash("empty").SetAll(ctx, nil))
	n, err := s.Exists(ctx, "empty")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testGetMissing(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("user:1")

	_, err := h.Get(ctx, "nope")
	assert.ErrorIs(t, err, hashstore.ErrFieldNotFound)

	require.NoError(t, h.Set(ctx, "a", []byte("1")))
	_, err = h.Get(ctx, "nope")
	assert.ErrorIs(t, err, hashstore.ErrFieldNotFound)

	typ, err := s.Type(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, hashstore.TypeNone, typ)
}

func testMGetAlignment(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")
	require.NoError(t, h.SetAll(ctx, map[string][]byte{"a": []byte("1"), "c": []byte("3")}))

	got, err := h.MGet(ctx, "c", "b", "a", "c")
	require.NoError(t, err)
	assert.Equal(t, []hashstore.Optional{
		{Value: []byte("3"), Present: true},
		{},
		{Value: []byte("1"), Present: true},
		{Value: []byte("3"), Present: true},
	}, got)

	got, err = s.Hash("missing").MGet(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []hashstore.Optional{{}, {}}, got)

	got, err = h.MGet(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testEmptyValueIsPresent(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")
	require.NoError(t, h.Set(ctx, "blank", []byte{}))
	require.NoError(t, h.Set(ctx, "nil", nil))

	got, err := h.MGet(ctx, "blank", "nil", "unset")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.True(t, got[0].Present)
	assert.Empty(t, got[0].Value)
	assert.True(t, got[1].Present)
	assert.False(t, got[2].Present)

	v, err := h.Get(ctx, "blank")
	require.NoError(t, err)
	assert.NotNil(t, v)
	assert.Empty(t, v)
}

func testSetNX(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")

	ok, err := h.SetNX(ctx, "f", []byte("first"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.SetNX(ctx, "f", []byte("second"))
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := h.Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), v)
}

func testIncrBy(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("counter")

	n, err := h.IncrBy(ctx, "hits", 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = h.IncrBy(ctx, "hits", -7)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), n)

	v, err := h.Get(ctx, "hits")
	require.NoError(t, err)
	assert.Equal(t, []byte("-2"), v)

	require.NoError(t, h.Set(ctx, "word", []byte("abc")))
	_, err = h.IncrBy(ctx, "word", 1)
	assert.ErrorIs(t, err, hashstore.ErrNotInteger)
}

func testDeleteFields(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")
	require.NoError(t, h.SetAll(ctx, map[string][]byte{"a": []byte("1"), "b": []byte("2")}))

	n, err := h.Delete(ctx, "a", "a", "zzz")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := s.Exists(ctx, "rec")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n, err = h.Delete(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err = s.Exists(ctx, "rec")
	require.NoError(t, err)
	assert.Zero(t, count, "removing the last field removes the record")
}

func testEnumeration(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")
	require.NoError(t, h.SetAll(ctx, map[string][]byte{
		"b": []byte("2"),
		"a": []byte("1"),
		"c": []byte("3"),
	}))

	fields, err := h.Fields(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, fields)

	values, err := h.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("1"), []byte("2"), []byte("3")}, values)

	n, err := h.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	entries, err := h.Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")}, entries)

	entries, err = s.Hash("missing").Entries(ctx)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func testScan(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")
	require.NoError(t, h.SetAll(ctx, map[string][]byte{
		"sessionAttr:a": []byte("1"),
		"sessionAttr:b": []byte("2"),
		"creationTime":  []byte("3"),
	}))

	var seen []string
	err := h.Scan(ctx, "sessionAttr:*", func(field string, _ []byte) error {
		seen = append(seen, field)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"sessionAttr:a", "sessionAttr:b"}, seen)

	stop := errors.New("stop")
	calls := 0
	err = h.Scan(ctx, "*", func(string, []byte) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func testExpiry(t *testing.T, s hashstore.Store, clock *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")

	ok, err := h.Expire(ctx, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "expire on a missing key")

	_, err = h.TTL(ctx)
	assert.ErrorIs(t, err, hashstore.ErrNoSuchKey)

	require.NoError(t, h.Set(ctx, "a", []byte("1")))
	d, err := h.TTL(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashstore.NoExpiry, d)

	ok, err = h.Expire(ctx, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(20 * time.Second)
	d, err = h.TTL(ctx)
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, d)

	// Writes keep the expiry.
	require.NoError(t, h.Set(ctx, "b", []byte("2")))
	d, err = s.TTL(ctx, "rec")
	require.NoError(t, err)
	assert.Equal(t, 40*time.Second, d)

	ok, err = h.Persist(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.Persist(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ExpireAt(ctx, "rec", clock.Now().Add(time.Second))
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, err = h.Get(ctx, "a")
	assert.ErrorIs(t, err, hashstore.ErrFieldNotFound)
	n, err := s.Exists(ctx, "rec")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, h.Set(ctx, "a", []byte("1")))
	ok, err = s.Expire(ctx, "rec", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	n, err = s.Exists(ctx, "rec")
	require.NoError(t, err)
	assert.Zero(t, n, "non-positive ttl deletes")
}

func testExpiredRecordStartsFresh(t *testing.T, s hashstore.Store, clock *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")
	require.NoError(t, h.SetAll(ctx, map[string][]byte{"old": []byte("1")}))
	_, err := h.Expire(ctx, time.Second)
	require.NoError(t, err)

	clock.Advance(2 * time.Second)
	require.NoError(t, h.Set(ctx, "new", []byte("2")))

	fields, err := h.Fields(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, fields)

	d, err := h.TTL(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashstore.NoExpiry, d)
}

func testRename(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	require.NoError(t, s.Hash("a").Set(ctx, "f", []byte("from-a")))
	require.NoError(t, s.Hash("b").Set(ctx, "g", []byte("from-b")))

	err := s.Rename(ctx, "missing", "x")
	assert.ErrorIs(t, err, hashstore.ErrNoSuchKey)

	ok, err := s.RenameNX(ctx, "a", "b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Rename(ctx, "a", "b"))
	fields, err := s.Hash("b").Fields(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"f"}, fields, "rename replaces the destination")

	n, err := s.Exists(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)

	ok, err = s.RenameNX(ctx, "b", "c")
	require.NoError(t, err)
	assert.True(t, ok)
	v, err := s.Hash("c").Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, []byte("from-a"), v)
}

func testHandleRenameRebinds(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("old")
	require.NoError(t, h.Set(ctx, "f", []byte("v")))
	_, err := h.Expire(ctx, time.Hour)
	require.NoError(t, err)

	require.NoError(t, h.Rename(ctx, "new"))
	assert.Equal(t, "new", h.Key())

	v, err := h.Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	d, err := h.TTL(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, d, "rename keeps the expiry")
}

func testKeysAndExists(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	for _, key := range []string{"app:sessions:1", "app:sessions:2", "app:users:1"} {
		require.NoError(t, s.Hash(key).Set(ctx, "f", []byte("v")))
	}

	keys, err := s.Keys(ctx, "app:sessions:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"app:sessions:1", "app:sessions:2"}, keys)

	keys, err = s.Keys(ctx, "*")
	require.NoError(t, err)
	assert.Len(t, keys, 3)

	n, err := s.Exists(ctx, "app:users:1", "app:users:1", "nope")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Delete(ctx, "app:users:1", "nope")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func testWatchCommits(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	require.NoError(t, s.Hash("doomed").Set(ctx, "f", []byte("v")))

	err := s.Watch(ctx, func(tx *hashstore.Tx) error {
		tx.Set("rec", "a", []byte("1"))
		tx.SetAll("rec", map[string][]byte{"b": []byte("2"), "c": []byte("3")})
		tx.Delete("rec", "c")
		tx.Expire("rec", time.Minute)
		tx.Del("doomed")
		return nil
	}, "rec")
	require.NoError(t, err)

	entries, err := s.Hash("rec").Entries(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"a": []byte("1"), "b": []byte("2")}, entries)

	d, err := s.TTL(ctx, "rec")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, d)

	n, err := s.Exists(ctx, "doomed")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testWatchConflict(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	h := s.Hash("rec")
	require.NoError(t, h.Set(ctx, "n", []byte("1")))

	err := s.Watch(ctx, func(tx *hashstore.Tx) error {
		// A concurrent writer slips in between WATCH and EXEC.
		require.NoError(t, h.Set(ctx, "n", []byte("2")))
		tx.Set("rec", "n", []byte("100"))
		return nil
	}, "rec")
	assert.ErrorIs(t, err, hashstore.ErrTxFailed)

	v, err := h.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	// Delete then recreate is still a change.
	err = s.Watch(ctx, func(tx *hashstore.Tx) error {
		_, err := s.Delete(ctx, "rec")
		require.NoError(t, err)
		require.NoError(t, h.Set(ctx, "n", []byte("2")))
		tx.Set("rec", "n", []byte("100"))
		return nil
	}, "rec")
	assert.ErrorIs(t, err, hashstore.ErrTxFailed)

	// Watching a missing key that appears aborts too.
	err = s.Watch(ctx, func(tx *hashstore.Tx) error {
		require.NoError(t, s.Hash("fresh").Set(ctx, "x", []byte("1")))
		tx.Set("fresh", "x", []byte("2"))
		return nil
	}, "fresh")
	assert.ErrorIs(t, err, hashstore.ErrTxFailed)
}

func testWatchFnError(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Watch(ctx, func(tx *hashstore.Tx) error {
		tx.Set("rec", "a", []byte("1"))
		return boom
	}, "rec")
	assert.ErrorIs(t, err, boom)

	n, err := s.Exists(ctx, "rec")
	require.NoError(t, err)
	assert.Zero(t, n, "queued ops are discarded")
}

func testClosed(t *testing.T, s hashstore.Store, _ *testutil.FakeClock) {
	ctx := context.Background()
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")

	_, err := s.Hash("rec").Get(ctx, "f")
	assert.ErrorIs(t, err, hashstore.ErrClosed)
	err = s.Hash("rec").Set(ctx, "f", []byte("v"))
	assert.ErrorIs(t, err, hashstore.ErrClosed)
}
