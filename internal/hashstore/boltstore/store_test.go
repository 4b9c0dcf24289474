package boltstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/roach88/hashview/internal/hashstore"
	"github.com/roach88/hashview/internal/hashstore/storetest"
)

func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.bolt"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, clock hashstore.Clock) hashstore.Store {
		return createTestStore(t, WithClock(clock))
	})
}

func TestOpen_CreatesDirectoryAndBuckets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "test.bolt")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Path())

	err = s.db.View(func(tx *bolt.Tx) error {
		assert.NotNil(t, tx.Bucket(recordsBucket))
		assert.NotNil(t, tx.Bucket(metaBucket))
		return nil
	})
	require.NoError(t, err)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bolt")
	ctx := context.Background()

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Hash("rec").Set(ctx, "f", []byte("v")))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	v, err := s2.Hash("rec").Get(ctx, "f")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestMeta_RoundTrip(t *testing.T) {
	m := meta{version: 42, expiresAt: 1709294400000}
	got, err := decodeMeta(encodeMeta(m))
	require.NoError(t, err)
	assert.Equal(t, m, got)

	_, err = decodeMeta([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestDeleteLastField_DropsMeta(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	h := s.Hash("rec")
	require.NoError(t, h.Set(ctx, "a", []byte("1")))
	_, err := h.Delete(ctx, "a")
	require.NoError(t, err)

	err = s.db.View(func(tx *bolt.Tx) error {
		assert.Nil(t, tx.Bucket(metaBucket).Get([]byte("rec")))
		assert.Nil(t, tx.Bucket(recordsBucket).Bucket([]byte("rec")))
		return nil
	})
	require.NoError(t, err)
}
