package testutil

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIDs_CountsUp(t *testing.T) {
	gen := NewSequentialIDs()

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", gen.Generate())
	assert.Equal(t, "00000000-0000-0000-0000-000000000002", gen.Generate())
	assert.Equal(t, "00000000-0000-0000-0000-000000000003", gen.Generate())
}

func TestSequentialIDs_AreUUIDShaped(t *testing.T) {
	_, err := uuid.Parse(NewSequentialIDs().Generate())
	require.NoError(t, err)
}

func TestSequentialIDs_ThreadSafe(t *testing.T) {
	gen := NewSequentialIDs()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				id := gen.Generate()
				mu.Lock()
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 1000, "every id is unique")
}
