// Package treeguard implements the single-writer/multi-reader guard spec.md
// §5 requires in front of each tree backend: readers (get-num-leaves,
// get-root, get-proof) take a shared handle, writers (add-leaf,
// add-leaves) take an exclusive one, and no reader ever observes a
// half-applied mutation.
//
// Both MemoryTree and DurableTree already serialize their own internal
// state (an RWMutex for the former, bbolt's MVCC transactions for the
// latter), but the HTTP layer still needs one guard type it can hold
// regardless of backend — this is that type, grounded on the
// sync.RWMutex-guarded session/state maps in pkg/node/node.go in the
// teacher repo.
package treeguard

import "sync"

// Guard is a single-writer/multi-reader guard. The zero value is ready to
// use. Go's sync.RWMutex already blocks new RLock calls once a Lock is
// pending, which is what satisfies spec.md §5's "writers MUST NOT be
// starved indefinitely" fairness requirement.
type Guard struct {
	mu sync.RWMutex
}

// Read runs fn holding a shared handle.
func Read[T any](g *Guard, fn func() (T, error)) (T, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn()
}

// Write runs fn holding the exclusive handle.
func Write(g *Guard, fn func() error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn()
}
