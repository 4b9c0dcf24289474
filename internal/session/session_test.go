package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hashview/internal/hashstore/storetest"
)

func TestSession_IsExpired(t *testing.T) {
	s := newSession("id", storetest.Epoch, 10*time.Minute)

	assert.False(t, s.IsExpired(storetest.Epoch))
	assert.False(t, s.IsExpired(storetest.Epoch.Add(10*time.Minute-time.Millisecond)))
	assert.True(t, s.IsExpired(storetest.Epoch.Add(10*time.Minute)))

	s.SetMaxInactiveInterval(-1)
	assert.False(t, s.IsExpired(storetest.Epoch.Add(365*24*time.Hour)))
}

func TestSession_MaxInactiveTruncatesToSeconds(t *testing.T) {
	s := newSession("id", storetest.Epoch, 90*time.Second+400*time.Millisecond)
	assert.Equal(t, 90*time.Second, s.MaxInactiveInterval())
	assert.Equal(t, []byte("90"), s.delta[maxInactiveIntervalField])
}

func TestSession_AttributeErrors(t *testing.T) {
	s := newSession("id", storetest.Epoch, time.Minute)

	err := s.SetAttribute("ch", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, s.AttributeNames())

	require.NoError(t, s.SetAttribute("n", "not a number"))
	var n int
	ok, err := s.Attribute("n", &n)
	assert.True(t, ok)
	assert.Error(t, err)
}

func TestSession_Changes(t *testing.T) {
	s := newSession("id", storetest.Epoch, time.Minute)
	require.NoError(t, s.SetAttribute("keep", true))
	require.NoError(t, s.SetAttribute("drop", 1))
	s.RemoveAttribute("drop")
	s.RemoveAttribute("never")

	set, removed := s.changes()
	assert.Equal(t, []string{"sessionAttr:drop", "sessionAttr:never"}, removed)
	assert.Equal(t, []byte("true"), set["sessionAttr:keep"])
	assert.Contains(t, set, creationTimeField)
	assert.NotContains(t, set, "sessionAttr:drop")

	s.clearChanges()
	set, removed = s.changes()
	assert.Empty(t, set)
	assert.Empty(t, removed)
	assert.False(t, s.IsNew())
}

func TestDecode(t *testing.T) {
	s, err := decode("id", map[string][]byte{
		"creationTime":        []byte("1709294400000"),
		"maxInactiveInterval": []byte("60"),
		"sessionAttr:a":       []byte(`{"x":1}`),
		"unrelated":           []byte("ignored"),
	}, DefaultMaxInactiveInterval)
	require.NoError(t, err)

	assert.True(t, storetest.Epoch.Equal(s.CreationTime()))
	assert.True(t, s.LastAccessedTime().IsZero())
	assert.Equal(t, time.Minute, s.MaxInactiveInterval())
	assert.Equal(t, []string{"a"}, s.AttributeNames())
	assert.JSONEq(t, `{"x":1}`, string(s.Attributes()["a"]))
	assert.False(t, s.IsExpired(storetest.Epoch.Add(time.Hour)), "no access time known")
}

func TestDecode_DefaultsMaxInactive(t *testing.T) {
	s, err := decode("id", map[string][]byte{"sessionAttr:a": []byte("1")}, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, s.MaxInactiveInterval())
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		entries map[string][]byte
	}{
		{"creationTime", map[string][]byte{"creationTime": []byte("x")}},
		{"lastAccessedTime", map[string][]byte{"lastAccessedTime": []byte("")}},
		{"maxInactiveInterval", map[string][]byte{"maxInactiveInterval": []byte("1.5")}},
		{"attribute", map[string][]byte{"sessionAttr:a": []byte("{")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decode("id", tt.entries, time.Minute)
			assert.Error(t, err)
		})
	}
}

func TestIncrement(t *testing.T) {
	s := newSession("id", storetest.Epoch, time.Minute)

	c, err := Increment(s, storetest.Epoch)
	require.NoError(t, err)
	assert.Equal(t, Counter{Increment: 1, UpdatedDate: "2024-03-01"}, c)

	c, err = Increment(s, storetest.Epoch.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Counter{Increment: 2, UpdatedDate: "2024-03-02"}, c)

	assert.Equal(t, []string{IncrementAttr, UpdatedDateAttr, UUIDAttr}, s.AttributeNames())
}

func TestIncrement_ThroughSelectiveStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	repo := f.repo(f.view)

	s := repo.New()
	for want := int64(1); want <= 3; want++ {
		c, err := Increment(s, f.clock.Now())
		require.NoError(t, err)
		assert.Equal(t, want, c.Increment)
		require.NoError(t, repo.Save(ctx, s))

		s, err = repo.FindByID(ctx, s.ID())
		require.NoError(t, err)

		// uuid is written each time but never read back.
		ok, err := s.Attribute(UUIDAttr, new(string))
		require.NoError(t, err)
		assert.False(t, ok)
	}
}
