// Package digest provides the Keccak-256 primitive shared by every tree
// backend: a fixed-width 32-byte digest type and the two-input node-hash
// helper used by the promotion rule.
package digest

import "github.com/ethereum/go-ethereum/crypto"

// Size is the width in bytes of every leaf and internal node digest.
const Size = 32

// Digest is an immutable 32-byte Keccak-256 output.
type Digest [Size]byte

// Sum hashes data with Keccak-256 and returns the resulting digest.
func Sum(data []byte) Digest {
	return Digest(crypto.Keccak256Hash(data))
}

// Node computes keccak256(left || right), the promotion-rule hash used to
// derive a parent node from its two children (or a node from itself, in the
// duplicate-last case).
func Node(left, right Digest) Digest {
	buf := make([]byte, 0, 2*Size)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return Sum(buf)
}
