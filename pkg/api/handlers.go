package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Layr-Labs/merkletree-service/pkg/digest"
	"github.com/Layr-Labs/merkletree-service/pkg/hexcodec"
	"github.com/Layr-Labs/merkletree-service/pkg/merkletree"
	"github.com/Layr-Labs/merkletree-service/pkg/treeguard"
)

func hexEncode(d digest.Digest) string { return hexcodec.Encode(d) }

// backend bundles one tree implementation with the guard spec.md §5
// requires in front of it and the rate limiter SPEC_FULL.md §6 adds on the
// write routes. One backend instance is mounted per route prefix.
type backend struct {
	tree    Tree
	guard   *treeguard.Guard
	limiter *rate.Limiter
	logger  *zap.Logger
}

func newBackend(tree Tree, logger *zap.Logger) *backend {
	return &backend{tree: tree, guard: &treeguard.Guard{}, limiter: defaultWriteLimiter(), logger: logger}
}

// mount registers the five routes spec.md §6 defines under prefix on mux.
func (b *backend) mount(mux *http.ServeMux, prefix string) {
	mux.HandleFunc(prefix+"/add-leaf", rateLimited(b.limiter, b.handleAddLeaf))
	mux.HandleFunc(prefix+"/add-leaves", rateLimited(b.limiter, b.handleAddLeaves))
	mux.HandleFunc(prefix+"/get-num-leaves", b.handleGetNumLeaves)
	mux.HandleFunc(prefix+"/get-root", b.handleGetRoot)
	mux.HandleFunc(prefix+"/get-proof", b.handleGetProof)
}

func (b *backend) handleAddLeaf(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req addLeafRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	leaf, err := hexcodec.Decode(req.Leaf)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hex")
		return
	}

	err = treeguard.Write(b.guard, func() error {
		return b.tree.AddLeaf(leaf)
	})
	if err != nil {
		b.logger.Sugar().Errorw("add-leaf failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	b.writeAddResponse(w)
}

func (b *backend) handleAddLeaves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req addLeavesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	leaves := make([]digest.Digest, len(req.Leaves))
	for i, s := range req.Leaves {
		d, err := hexcodec.Decode(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid hex")
			return
		}
		leaves[i] = d
	}

	err := treeguard.Write(b.guard, func() error {
		return b.tree.AddLeaves(leaves)
	})
	if err != nil {
		b.logger.Sugar().Errorw("add-leaves failed", "error", err, "count", len(leaves))
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}

	b.writeAddResponse(w)
}

func (b *backend) writeAddResponse(w http.ResponseWriter) {
	num, err := treeguard.Read(b.guard, b.tree.NumLeaves)
	if err != nil {
		b.logger.Sugar().Errorw("num-leaves read failed after write", "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, addResponse{Status: "ok", NumLeaves: num})
}

func (b *backend) handleGetNumLeaves(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	num, err := treeguard.Read(b.guard, b.tree.NumLeaves)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage failure")
		return
	}
	writeJSON(w, http.StatusOK, numLeavesResponse{NumLeaves: num})
}

func (b *backend) handleGetRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	root, err := treeguard.Read(b.guard, b.tree.Root)
	if err != nil {
		b.writeTreeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rootResponse{Root: hexEncode(root)})
}

func (b *backend) handleGetProof(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req proofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	proof, err := treeguard.Read(b.guard, func() (merkletree.Proof, error) {
		return b.tree.Proof(req.Index)
	})
	if err != nil {
		b.writeTreeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proofResponse{Proof: toProofJSON(proof)})
}

// writeTreeError maps the sentinel tree errors onto the HTTP status codes
// spec.md §7 defines; anything else is treated as an unexpected storage
// failure.
func (b *backend) writeTreeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, merkletree.ErrEmptyTree):
		writeError(w, http.StatusBadRequest, "empty tree")
	case errors.Is(err, merkletree.ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "index out of range")
	default:
		b.logger.Sugar().Errorw("tree read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage failure")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
