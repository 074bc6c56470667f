// Package durabletree implements the crash-safe Merkle tree backend: the
// same contract as pkg/merkletree.MemoryTree, persisted through
// pkg/durablestore. Write path, cache-invalidation, and reader-to-writer
// upgrade semantics follow spec.md §4.2 / §4.3 exactly; the promotion rule
// and proof walk are shared with pkg/merkletree so the two backends are
// provably equivalent for identical leaf sequences.
package durabletree

import (
	"encoding/binary"

	"go.uber.org/zap"

	"github.com/Layr-Labs/merkletree-service/pkg/digest"
	"github.com/Layr-Labs/merkletree-service/pkg/durablestore"
	"github.com/Layr-Labs/merkletree-service/pkg/merkletree"
)

const (
	metaKeyNumLeaves = "num_leaves"
	metaKeyRoot      = "root"
)

// DurableTree is the on-disk, restart-durable counterpart to
// merkletree.MemoryTree.
type DurableTree struct {
	store  *durablestore.Store
	logger *zap.Logger
}

// New wraps an already-open durable store as a Merkle tree. The tree keeps
// its state in the store's fixed meta, leaves and levels tables, so
// DurableTree values built over the same Store share one leaf sequence.
func New(store *durablestore.Store, logger *zap.Logger) *DurableTree {
	return &DurableTree{store: store, logger: logger}
}

func leafKey(index uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], index)
	return b[:]
}

func encodeCount(n uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], n)
	return b[:]
}

func decodeCount(b []byte) uint64 {
	return binary.LittleEndian.Uint64(b)
}

// levelKey packs (level, index) into the key format used by the `levels`
// table: a 4-byte big-endian level followed by an 8-byte big-endian index,
// ordered so that a bucket scan naturally groups levels in ascending order.
func levelKey(level uint32, index uint64) []byte {
	var b [12]byte
	binary.BigEndian.PutUint32(b[0:4], level)
	binary.BigEndian.PutUint64(b[4:12], index)
	return b[:]
}

// AddLeaf appends a single leaf in its own committed transaction.
func (t *DurableTree) AddLeaf(d digest.Digest) error {
	return t.AddLeaves([]digest.Digest{d})
}

// AddLeaves appends every leaf in ds in a single committed transaction: all
// leaves land or none do. An empty ds is a no-op that still succeeds.
func (t *DurableTree) AddLeaves(ds []digest.Digest) error {
	if len(ds) == 0 {
		return nil
	}
	return t.store.Update(func(tx *durablestore.Tx) error {
		num := t.numLeavesTx(tx)
		for i, d := range ds {
			if err := tx.Put(durablestore.TableLeaves, leafKey(num+uint64(i)), d[:]); err != nil {
				return err
			}
		}
		if err := tx.Put(durablestore.TableMeta, []byte(metaKeyNumLeaves), encodeCount(num+uint64(len(ds)))); err != nil {
			return err
		}
		// Invalidate the cached root and the level cache: any levels built
		// against the old leaf count no longer describe the committed state.
		if err := tx.Delete(durablestore.TableMeta, []byte(metaKeyRoot)); err != nil {
			return err
		}
		return tx.Clear(durablestore.TableLevels)
	})
}

// NumLeaves returns the current leaf count in a single read transaction.
func (t *DurableTree) NumLeaves() (uint64, error) {
	var n uint64
	err := t.store.View(func(tx *durablestore.Tx) error {
		n = t.numLeavesTx(tx)
		return nil
	})
	return n, err
}

func (t *DurableTree) numLeavesTx(tx *durablestore.Tx) uint64 {
	v, ok := tx.Get(durablestore.TableMeta, []byte(metaKeyNumLeaves))
	if !ok {
		return 0
	}
	return decodeCount(v)
}

// Root returns the cached root if present, else upgrades to a write
// transaction to materialize and persist it. Returns
// merkletree.ErrEmptyTree when there are no leaves.
func (t *DurableTree) Root() (digest.Digest, error) {
	var (
		root  digest.Digest
		found bool
		empty bool
	)
	err := t.store.View(func(tx *durablestore.Tx) error {
		if t.numLeavesTx(tx) == 0 {
			empty = true
			return nil
		}
		if v, ok := tx.Get(durablestore.TableMeta, []byte(metaKeyRoot)); ok {
			copy(root[:], v)
			found = true
		}
		return nil
	})
	if err != nil {
		return digest.Digest{}, err
	}
	if empty {
		return digest.Digest{}, merkletree.ErrEmptyTree
	}
	if found {
		return root, nil
	}

	// Cold cache: drop the read handle (already released above) and
	// upgrade to a write transaction, per spec.md §4.2/§9's no-upgrade-
	// deadlock rule. Re-check after acquiring the writer in case another
	// request already warmed the cache.
	err = t.store.Update(func(tx *durablestore.Tx) error {
		if t.numLeavesTx(tx) == 0 {
			empty = true
			return nil
		}
		if v, ok := tx.Get(durablestore.TableMeta, []byte(metaKeyRoot)); ok {
			copy(root[:], v)
			return nil
		}

		leaves, err := t.loadLeavesTx(tx)
		if err != nil {
			return err
		}
		levels := buildLevels(leaves)
		if err := t.persistLevelsTx(tx, levels); err != nil {
			return err
		}
		root = levels[len(levels)-1][0]
		return tx.Put(durablestore.TableMeta, []byte(metaKeyRoot), root[:])
	})
	if err != nil {
		return digest.Digest{}, err
	}
	if empty {
		return digest.Digest{}, merkletree.ErrEmptyTree
	}
	return root, nil
}

// Proof returns the inclusion proof for index. It walks a persisted level
// cache if one is fresh, otherwise it materializes levels in memory from
// the leaves without persisting them.
func (t *DurableTree) Proof(index uint64) (merkletree.Proof, error) {
	var proof merkletree.Proof
	err := t.store.View(func(tx *durablestore.Tx) error {
		num := t.numLeavesTx(tx)
		if num == 0 {
			return merkletree.ErrEmptyTree
		}
		if index >= num {
			return merkletree.ErrIndexOutOfRange
		}

		levels, err := t.loadLevelsTx(tx, num)
		if err != nil {
			return err
		}
		if levels == nil {
			leaves, err := t.loadLeavesTx(tx)
			if err != nil {
				return err
			}
			levels = buildLevels(leaves)
		}
		proof = proofFromLevels(levels, index)
		return nil
	})
	if err != nil {
		return merkletree.Proof{}, err
	}
	return proof, nil
}

func (t *DurableTree) loadLeavesTx(tx *durablestore.Tx) ([]digest.Digest, error) {
	num := t.numLeavesTx(tx)
	leaves := make([]digest.Digest, num)
	for i := uint64(0); i < num; i++ {
		v, ok := tx.Get(durablestore.TableLeaves, leafKey(i))
		if !ok {
			return nil, errMissingLeaf(i)
		}
		copy(leaves[i][:], v)
	}
	return leaves, nil
}

// loadLevelsTx returns the persisted level cache if one exists and its leaf
// level has exactly numLeaves entries, or nil if the cache is absent/stale.
// A stale cache (wrong leaf level length) is treated as a miss rather than
// an error: the write path always clears this table on every mutation, so
// staleness here would indicate a bug rather than a recoverable condition,
// but materializing from leaves is always correct regardless.
func (t *DurableTree) loadLevelsTx(tx *durablestore.Tx, numLeaves uint64) ([][]digest.Digest, error) {
	var levels [][]digest.Digest
	expectedLen := numLeaves
	for level := uint32(0); ; level++ {
		row, err := t.loadLevelRowTx(tx, level)
		if err != nil {
			return nil, err
		}
		if uint64(len(row)) != expectedLen {
			// Missing or stale row: treat the whole cache as cold rather
			// than trust a partial persisted state.
			return nil, nil
		}
		levels = append(levels, row)
		if len(row) == 1 {
			return levels, nil
		}
		expectedLen = (expectedLen + 1) / 2
	}
}

func (t *DurableTree) loadLevelRowTx(tx *durablestore.Tx, level uint32) ([]digest.Digest, error) {
	prefix := make([]byte, 4)
	binary.BigEndian.PutUint32(prefix, level)

	var row []digest.Digest
	err := tx.ScanPrefix(durablestore.TableLevels, prefix, func(k, v []byte) error {
		var d digest.Digest
		copy(d[:], v)
		row = append(row, d)
		return nil
	})
	return row, err
}

func (t *DurableTree) persistLevelsTx(tx *durablestore.Tx, levels [][]digest.Digest) error {
	if err := tx.Clear(durablestore.TableLevels); err != nil {
		return err
	}
	for level, row := range levels {
		for idx, d := range row {
			key := levelKey(uint32(level), uint64(idx))
			if err := tx.Put(durablestore.TableLevels, key, d[:]); err != nil {
				return err
			}
		}
	}
	return nil
}

type errMissingLeaf uint64

func (e errMissingLeaf) Error() string {
	return "durabletree: missing leaf at persisted index"
}

// buildLevels and proofFromLevels are re-exported thin wrappers so this
// package shares the exact promotion rule and proof walk with
// pkg/merkletree instead of re-deriving them.
func buildLevels(leaves []digest.Digest) [][]digest.Digest {
	return merkletree.BuildLevels(leaves)
}

func proofFromLevels(levels [][]digest.Digest, index uint64) merkletree.Proof {
	return merkletree.ProofFromLevels(levels, index)
}
