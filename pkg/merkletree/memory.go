package merkletree

import (
	"sync"

	"github.com/Layr-Labs/merkletree-service/pkg/digest"
)

// MemoryTree is the volatile, in-process incremental Merkle tree. It keeps
// every leaf in memory and lazily rebuilds a level cache on the first read
// after a write, per the "dirty flag" design in spec.md §4.1 / §9.
//
// MemoryTree is safe for concurrent use; callers needing atomic read/write
// ordering across multiple calls (e.g. the HTTP layer's single-writer guard)
// still coordinate externally via pkg/treeguard — the mutex here only
// protects MemoryTree's own fields.
type MemoryTree struct {
	mu     sync.RWMutex
	leaves []digest.Digest
	levels [][]digest.Digest
	dirty  bool
}

// NewMemoryTree returns an empty tree.
func NewMemoryTree() *MemoryTree {
	return &MemoryTree{}
}

// AddLeaf appends a single leaf and marks the level cache dirty.
func (t *MemoryTree) AddLeaf(d digest.Digest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves = append(t.leaves, d)
	t.dirty = true
}

// AddLeaves appends every leaf in ds, in order, marking the cache dirty
// once. An empty ds is a no-op.
func (t *MemoryTree) AddLeaves(ds []digest.Digest) {
	if len(ds) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.leaves = append(t.leaves, ds...)
	t.dirty = true
}

// NumLeaves returns the current leaf count.
func (t *MemoryTree) NumLeaves() uint64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return uint64(len(t.leaves))
}

// Root returns the current root, rebuilding the level cache first if dirty.
// Returns ErrEmptyTree when there are no leaves.
func (t *MemoryTree) Root() (digest.Digest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.leaves) == 0 {
		return digest.Digest{}, ErrEmptyTree
	}
	t.rebuildIfDirtyLocked()
	top := t.levels[len(t.levels)-1]
	return top[0], nil
}

// Proof returns the inclusion proof for index, rebuilding the level cache
// first if dirty. Returns ErrEmptyTree when there are no leaves and
// ErrIndexOutOfRange when index >= NumLeaves().
func (t *MemoryTree) Proof(index uint64) (Proof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.leaves) == 0 {
		return Proof{}, ErrEmptyTree
	}
	if index >= uint64(len(t.leaves)) {
		return Proof{}, ErrIndexOutOfRange
	}
	t.rebuildIfDirtyLocked()
	return ProofFromLevels(t.levels, index), nil
}

// rebuildIfDirtyLocked rebuilds t.levels from t.leaves if dirty. Caller must
// hold t.mu for writing.
func (t *MemoryTree) rebuildIfDirtyLocked() {
	if !t.dirty && len(t.levels) > 0 {
		return
	}
	t.levels = BuildLevels(t.leaves)
	t.dirty = false
}
