// Package api is the HTTP surface: five routes per backend, mounted under a
// prefix ("" for memory, "/lmdb" for durable), JSON bodies, hex-encoded
// digests. Routing and handler shape are grounded on pkg/node/server.go and
// pkg/node/handlers.go in the teacher repo (net/http.ServeMux, manual
// method checks, json.NewDecoder/Encoder, zap structured logging) — the
// DKG/reshare protocol surface those files implement is replaced here with
// the five Merkle-tree routes spec.md §6 defines.
package api

import (
	"github.com/Layr-Labs/merkletree-service/pkg/digest"
	"github.com/Layr-Labs/merkletree-service/pkg/merkletree"
)

// Tree is the uniform contract the HTTP layer drives, satisfied by both
// backends via the adapters in adapter.go. Every method reports failure
// through a returned error so a single handler body can serve either
// backend identically.
type Tree interface {
	AddLeaf(d digest.Digest) error
	AddLeaves(ds []digest.Digest) error
	NumLeaves() (uint64, error)
	Root() (digest.Digest, error)
	Proof(index uint64) (merkletree.Proof, error)
}

// addLeafRequest is the body of POST /add-leaf.
type addLeafRequest struct {
	Leaf string `json:"leaf"`
}

// addLeavesRequest is the body of POST /add-leaves.
type addLeavesRequest struct {
	Leaves []string `json:"leaves"`
}

// addResponse is the shared success body for /add-leaf and /add-leaves,
// per SPEC_FULL.md's resolution of spec.md §9's open question on the
// response shape.
type addResponse struct {
	Status    string `json:"status"`
	NumLeaves uint64 `json:"num_leaves"`
}

// numLeavesResponse is the body of GET /get-num-leaves.
type numLeavesResponse struct {
	NumLeaves uint64 `json:"num_leaves"`
}

// rootResponse is the body of GET /get-root.
type rootResponse struct {
	Root string `json:"root"`
}

// proofRequest is the body of POST /get-proof.
type proofRequest struct {
	Index uint64 `json:"index"`
}

// siblingJSON is one entry of a proof's sibling path.
type siblingJSON struct {
	Hash string `json:"hash"`
	Side string `json:"side"`
}

// proofJSON is the wire shape of a merkletree.Proof.
type proofJSON struct {
	Siblings  []siblingJSON `json:"siblings"`
	LeafIndex uint64        `json:"leaf_index"`
}

// proofResponse is the body of POST /get-proof.
type proofResponse struct {
	Proof proofJSON `json:"proof"`
}

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
}

func toProofJSON(p merkletree.Proof) proofJSON {
	out := proofJSON{LeafIndex: p.LeafIndex, Siblings: make([]siblingJSON, len(p.Siblings))}
	for i, s := range p.Siblings {
		out.Siblings[i] = siblingJSON{Hash: hexEncode(s.Hash), Side: s.Side.String()}
	}
	return out
}
