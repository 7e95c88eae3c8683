package testutil

import (
	"fmt"
	"sync"
)

// SessionGenerator numbers session identifiers: prefix-1, prefix-2, ...
//
// Unlike mpsl.FixedGenerator it never runs out, so scenarios may
// re-initialize any number of times and still produce byte-identical traces.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SessionGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSessionGenerator creates a generator for prefix.
// If prefix is empty, "test-session" is used.
func NewSessionGenerator(prefix string) *SessionGenerator {
	if prefix == "" {
		prefix = "test-session"
	}
	return &SessionGenerator{prefix: prefix}
}

// Generate returns the next identifier.
func (g *SessionGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Reset restarts numbering at 1.
func (g *SessionGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n = 0
}
