package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Layr-Labs/merkletree-service/pkg/digest"
	"github.com/Layr-Labs/merkletree-service/pkg/durablestore"
	"github.com/Layr-Labs/merkletree-service/pkg/durabletree"
	"github.com/Layr-Labs/merkletree-service/pkg/hexcodec"
	"github.com/Layr-Labs/merkletree-service/pkg/merkletree"
)

func newTestMux(t *testing.T) http.Handler {
	t.Helper()
	memTree := merkletree.NewMemoryTree()

	store, err := durablestore.Open(filepath.Join(t.TempDir(), "tree.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	durTree := durabletree.New(store, zap.NewNop())

	mux := http.NewServeMux()
	newBackend(memoryAdapter{tree: memTree}, zap.NewNop()).mount(mux, memoryPrefix)
	newBackend(durableAdapter{tree: durTree}, zap.NewNop()).mount(mux, durablePrefix)
	return withRequestID(zap.NewNop(), mux)
}

func doJSON(t *testing.T, mux http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

// TestRoutes_FullLifecycle walks add-leaf/add-leaves/get-num-leaves/
// get-root/get-proof against both the memory and durable prefixes, checking
// each produces an internally-consistent view.
func TestRoutes_FullLifecycle(t *testing.T) {
	for _, prefix := range []string{memoryPrefix, durablePrefix} {
		t.Run("prefix="+prefix, func(t *testing.T) {
			mux := newTestMux(t)

			a := hexcodec.Encode(digest.Sum([]byte("a")))
			rec := doJSON(t, mux, http.MethodPost, prefix+"/add-leaf", addLeafRequest{Leaf: a})
			require.Equal(t, http.StatusOK, rec.Code)
			require.NotEmpty(t, rec.Header().Get(requestIDHeader))

			var addResp addResponse
			decodeBody(t, rec, &addResp)
			require.Equal(t, "ok", addResp.Status)
			require.Equal(t, uint64(1), addResp.NumLeaves)

			b := hexcodec.Encode(digest.Sum([]byte("b")))
			c := hexcodec.Encode(digest.Sum([]byte("c")))
			rec = doJSON(t, mux, http.MethodPost, prefix+"/add-leaves", addLeavesRequest{Leaves: []string{b, c}})
			require.Equal(t, http.StatusOK, rec.Code)
			decodeBody(t, rec, &addResp)
			require.Equal(t, uint64(3), addResp.NumLeaves)

			rec = doJSON(t, mux, http.MethodGet, prefix+"/get-num-leaves", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var numResp numLeavesResponse
			decodeBody(t, rec, &numResp)
			require.Equal(t, uint64(3), numResp.NumLeaves)

			rec = doJSON(t, mux, http.MethodGet, prefix+"/get-root", nil)
			require.Equal(t, http.StatusOK, rec.Code)
			var rootResp rootResponse
			decodeBody(t, rec, &rootResp)
			require.Len(t, rootResp.Root, 64)

			rootDigest, err := hexcodec.Decode(rootResp.Root)
			require.NoError(t, err)

			for i, leafHex := range []string{a, b, c} {
				rec = doJSON(t, mux, http.MethodPost, prefix+"/get-proof", proofRequest{Index: uint64(i)})
				require.Equal(t, http.StatusOK, rec.Code)
				var proofResp proofResponse
				decodeBody(t, rec, &proofResp)
				require.Equal(t, uint64(i), proofResp.Proof.LeafIndex)

				leaf, err := hexcodec.Decode(leafHex)
				require.NoError(t, err)

				proof := merkletree.Proof{LeafIndex: proofResp.Proof.LeafIndex}
				for _, s := range proofResp.Proof.Siblings {
					h, err := hexcodec.Decode(s.Hash)
					require.NoError(t, err)
					side := merkletree.Left
					if s.Side == "right" {
						side = merkletree.Right
					}
					proof.Siblings = append(proof.Siblings, merkletree.Sibling{Hash: h, Side: side})
				}
				require.True(t, merkletree.Verify(leaf, proof, rootDigest))
			}
		})
	}
}

func TestRoutes_EmptyTreeErrors(t *testing.T) {
	for _, prefix := range []string{memoryPrefix, durablePrefix} {
		mux := newTestMux(t)

		rec := doJSON(t, mux, http.MethodGet, prefix+"/get-root", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		var errResp errorResponse
		decodeBody(t, rec, &errResp)
		require.NotEmpty(t, errResp.Error)

		rec = doJSON(t, mux, http.MethodPost, prefix+"/get-proof", proofRequest{Index: 0})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestRoutes_ProofOutOfRange(t *testing.T) {
	mux := newTestMux(t)
	a := hexcodec.Encode(digest.Sum([]byte("a")))
	rec := doJSON(t, mux, http.MethodPost, "/add-leaf", addLeafRequest{Leaf: a})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, mux, http.MethodPost, "/get-proof", proofRequest{Index: 5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_InvalidHexRejected(t *testing.T) {
	mux := newTestMux(t)
	rec := doJSON(t, mux, http.MethodPost, "/add-leaf", addLeafRequest{Leaf: "not-hex"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_InvalidJSONRejected(t *testing.T) {
	mux := newTestMux(t)
	req := httptest.NewRequest(http.MethodPost, "/add-leaf", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRoutes_WrongMethodRejected(t *testing.T) {
	mux := newTestMux(t)
	rec := doJSON(t, mux, http.MethodGet, "/add-leaf", nil)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoutes_RateLimitReturns429(t *testing.T) {
	mux := newTestMux(t)
	// defaultWriteLimiter allows a burst of 50; the 51st immediate request
	// on the same backend should be throttled.
	var last *httptest.ResponseRecorder
	for i := 0; i < 51; i++ {
		leaf := hexcodec.Encode(digest.Sum([]byte{byte(i)}))
		last = doJSON(t, mux, http.MethodPost, "/add-leaf", addLeafRequest{Leaf: leaf})
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)
}
