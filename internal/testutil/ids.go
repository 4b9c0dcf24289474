package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDs generates uuid-shaped ids counting up from 1:
// 00000000-0000-0000-0000-000000000001, ...000002, and so on.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SequentialIDs struct {
	mu   sync.Mutex
	next uint64
}

// NewSequentialIDs creates a generator whose first id ends in 1.
func NewSequentialIDs() *SequentialIDs {
	return &SequentialIDs{next: 1}
}

// Generate returns the next id.
func (g *SequentialIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := fmt.Sprintf("00000000-0000-0000-0000-%012d", g.next)
	g.next++
	return id
}
