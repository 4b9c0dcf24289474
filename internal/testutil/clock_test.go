package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFakeClock_IsFrozen(t *testing.T) {
	clock := NewFakeClock(start)

	assert.Equal(t, start, clock.Now())
	assert.Equal(t, start, clock.Now())
}

func TestFakeClock_Advance(t *testing.T) {
	clock := NewFakeClock(start)

	clock.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), clock.Now())

	clock.Advance(time.Millisecond)
	assert.Equal(t, start.Add(90*time.Second+time.Millisecond), clock.Now())
}

func TestFakeClock_Set(t *testing.T) {
	clock := NewFakeClock(start)
	later := start.Add(24 * time.Hour)

	clock.Set(later)
	assert.Equal(t, later, clock.Now())
}

func TestFakeClock_ThreadSafe(t *testing.T) {
	clock := NewFakeClock(start)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				clock.Advance(time.Millisecond)
				_ = clock.Now()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, start.Add(time.Second), clock.Now())
}
