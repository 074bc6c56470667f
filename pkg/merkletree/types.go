// Package merkletree implements the incremental, duplicate-last-promotion
// binary Merkle tree shared by the memory and durable backends: the same
// promotion rule, proof format, and edge-case behavior, grounded on the
// build/proof logic in pkg/merkle in the teacher repo but generalized from
// acknowledgement leaves to arbitrary client-supplied digests.
package merkletree

import (
	"errors"

	"github.com/Layr-Labs/merkletree-service/pkg/digest"
)

// Sentinel errors mapped onto the HTTP layer's 400/500 split (see pkg/api).
var (
	// ErrEmptyTree is returned by Root and Proof when the tree has no leaves.
	ErrEmptyTree = errors.New("merkletree: tree is empty")
	// ErrIndexOutOfRange is returned by Proof when index >= NumLeaves().
	ErrIndexOutOfRange = errors.New("merkletree: index out of range")
)

// Side indicates which side of the current node a sibling sits on when
// folding a proof toward the root.
type Side int

const (
	// Left means the sibling is folded in as hash(sibling || current).
	Left Side = iota
	// Right means the sibling is folded in as hash(current || sibling).
	Right
)

func (s Side) String() string {
	if s == Left {
		return "left"
	}
	return "right"
}

// Sibling is one step of an inclusion proof: a digest and the side it sits
// on relative to the node being folded.
type Sibling struct {
	Hash digest.Digest
	Side Side
}

// Proof is an inclusion proof for a single leaf: the sibling path from the
// leaf level up to (but excluding) the root, leaf level first.
type Proof struct {
	LeafIndex uint64
	Siblings  []Sibling
}

// Verify folds Leaf through p.Siblings and reports whether the result
// equals root.
func Verify(leaf digest.Digest, p Proof, root digest.Digest) bool {
	cur := leaf
	for _, s := range p.Siblings {
		if s.Side == Right {
			cur = digest.Node(cur, s.Hash)
		} else {
			cur = digest.Node(s.Hash, cur)
		}
	}
	return cur == root
}

// BuildLevels applies the promotion rule (spec.md §4.1) to a leaf-level
// slice, returning every level from leaves (index 0) up to and including
// the single-digest root level. Panics are impossible: an empty input
// slice is the caller's responsibility to reject before calling this.
// Exported so pkg/durabletree shares the exact same promotion logic.
func BuildLevels(leaves []digest.Digest) [][]digest.Digest {
	levels := make([][]digest.Digest, 0, 1)
	levels = append(levels, leaves)

	current := leaves
	for len(current) > 1 {
		next := make([]digest.Digest, 0, (len(current)+1)/2)
		for i := 0; i < len(current); i += 2 {
			left := current[i]
			right := left
			if i+1 < len(current) {
				right = current[i+1]
			}
			next = append(next, digest.Node(left, right))
		}
		levels = append(levels, next)
		current = next
	}
	return levels
}

// ProofFromLevels walks a fully built level cache and returns the sibling
// path for leaf index, per the rule in spec.md §4.1: sibling is
// levels[i][p^1] when that index exists, or levels[i][p] itself when p is
// the odd-length tail (duplicate-last). Exported so pkg/durabletree shares
// the exact same proof walk.
func ProofFromLevels(levels [][]digest.Digest, index uint64) Proof {
	p := Proof{LeafIndex: index}
	pos := index
	for level := 0; level < len(levels)-1; level++ {
		row := levels[level]
		var sibIdx uint64
		var side Side
		if pos%2 == 0 {
			side = Right
			sibIdx = pos + 1
			if int(sibIdx) >= len(row) {
				sibIdx = pos
			}
		} else {
			side = Left
			sibIdx = pos - 1
		}
		p.Siblings = append(p.Siblings, Sibling{Hash: row[sibIdx], Side: side})
		pos /= 2
	}
	return p
}
