package hashstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTx_QueuesInOrder(t *testing.T) {
	var tx Tx
	tx.Set("k", "a", []byte("1"))
	tx.Delete("k", "b", "c")
	tx.Expire("k", time.Minute)
	tx.Persist("k")
	tx.Del("x", "y")

	ops := tx.Ops()
	require.Equal(t, 6, tx.Len())
	types := make([]string, len(ops))
	for i, op := range ops {
		types[i] = op.Type.String()
	}
	assert.Equal(t, []string{"set", "hdel", "expire", "persist", "del", "del"}, types)
	assert.Equal(t, map[string][]byte{"a": []byte("1")}, ops[0].Fields)
	assert.Equal(t, []string{"b", "c"}, ops[1].Names)
	assert.Equal(t, time.Minute, ops[2].TTL)
	assert.Equal(t, "y", ops[5].Key)
}

func TestTx_SetAllCopies(t *testing.T) {
	var tx Tx
	fields := map[string][]byte{"a": []byte("1")}
	tx.SetAll("k", fields)
	fields["b"] = []byte("2")

	assert.Len(t, tx.Ops()[0].Fields, 1)
}

func TestOpType_Unknown(t *testing.T) {
	assert.Equal(t, "unknown", OpType(99).String())
}

func TestAddInt(t *testing.T) {
	n, err := AddInt(nil, false, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)

	n, err = AddInt([]byte("-3"), true, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-2), n)

	_, err = AddInt([]byte("x"), true, 1)
	assert.ErrorIs(t, err, ErrNotInteger)

	_, err = AddInt([]byte("9223372036854775807"), true, 1)
	assert.ErrorIs(t, err, ErrNotInteger)

	assert.Equal(t, []byte("42"), FormatInt(42))
}

func TestRemaining(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Minute, Remaining(now, now.Add(time.Minute)))
	assert.Zero(t, Remaining(now, now.Add(-time.Second)))
}
