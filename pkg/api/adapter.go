package api

import (
	"github.com/Layr-Labs/merkletree-service/pkg/digest"
	"github.com/Layr-Labs/merkletree-service/pkg/durabletree"
	"github.com/Layr-Labs/merkletree-service/pkg/merkletree"
)

// memoryAdapter makes *merkletree.MemoryTree satisfy Tree: its own
// operations cannot fail (everything lives in process memory), so the
// adapter simply reports nil for the mutation/count methods.
type memoryAdapter struct {
	tree *merkletree.MemoryTree
}

func (a memoryAdapter) AddLeaf(d digest.Digest) error {
	a.tree.AddLeaf(d)
	return nil
}

func (a memoryAdapter) AddLeaves(ds []digest.Digest) error {
	a.tree.AddLeaves(ds)
	return nil
}

func (a memoryAdapter) NumLeaves() (uint64, error) {
	return a.tree.NumLeaves(), nil
}

func (a memoryAdapter) Root() (digest.Digest, error) {
	return a.tree.Root()
}

func (a memoryAdapter) Proof(index uint64) (merkletree.Proof, error) {
	return a.tree.Proof(index)
}

// durableAdapter makes *durabletree.DurableTree satisfy Tree; it is
// already error-returning end to end, so this is a direct pass-through
// kept only so both backends share the same static type in the router.
type durableAdapter struct {
	tree *durabletree.DurableTree
}

func (a durableAdapter) AddLeaf(d digest.Digest) error        { return a.tree.AddLeaf(d) }
func (a durableAdapter) AddLeaves(ds []digest.Digest) error   { return a.tree.AddLeaves(ds) }
func (a durableAdapter) NumLeaves() (uint64, error)           { return a.tree.NumLeaves() }
func (a durableAdapter) Root() (digest.Digest, error)         { return a.tree.Root() }
func (a durableAdapter) Proof(i uint64) (merkletree.Proof, error) { return a.tree.Proof(i) }
