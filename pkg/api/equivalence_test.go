package api

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkletree-service/pkg/digest"
	"github.com/Layr-Labs/merkletree-service/pkg/durablestore"
	"github.com/Layr-Labs/merkletree-service/pkg/durabletree"
	"github.com/Layr-Labs/merkletree-service/pkg/merkletree"
)

// TestBackendsProduceIdenticalRootsAndProofs is spec.md §8's backend
// equivalence invariant: for identical leaf sequences, the volatile and
// durable trees must agree on leaf count, root, and every inclusion proof,
// even though they share no state.
func TestBackendsProduceIdenticalRootsAndProofs(t *testing.T) {
	leaves := make([]digest.Digest, 0, 23)
	for i := 0; i < 23; i++ {
		leaves = append(leaves, digest.Sum([]byte{byte(i)}))
	}

	mem := merkletree.NewMemoryTree()

	store, err := durablestore.Open(filepath.Join(t.TempDir(), "tree.db"), zap.NewNop())
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	dur := durabletree.New(store, zap.NewNop())

	// Split across two writes on each side to also exercise batching
	// invariance across both backends at once.
	mem.AddLeaves(leaves[:10])
	mem.AddLeaves(leaves[10:])
	require.NoError(t, dur.AddLeaves(leaves[:10]))
	require.NoError(t, dur.AddLeaves(leaves[10:]))

	memNum := mem.NumLeaves()
	durNum, err := dur.NumLeaves()
	require.NoError(t, err)
	require.Equal(t, memNum, durNum)

	memRoot, err := mem.Root()
	require.NoError(t, err)
	durRoot, err := dur.Root()
	require.NoError(t, err)
	require.Equal(t, memRoot, durRoot)

	for i := range leaves {
		memProof, err := mem.Proof(uint64(i))
		require.NoError(t, err)
		durProof, err := dur.Proof(uint64(i))
		require.NoError(t, err)
		require.Equal(t, memProof, durProof)
		require.True(t, merkletree.Verify(leaves[i], durProof, durRoot))
	}
}
