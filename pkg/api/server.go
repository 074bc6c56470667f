package api

import (
	"context"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/Layr-Labs/merkletree-service/pkg/durabletree"
	"github.com/Layr-Labs/merkletree-service/pkg/merkletree"
)

// memoryPrefix and durablePrefix are the two route mount points spec.md §4.4
// requires: the memory backend at the root, the durable backend under
// /lmdb, with no shared leaf state between them.
const (
	memoryPrefix  = ""
	durablePrefix = "/lmdb"
)

// Server is the HTTP service: two independent backends sharing one
// listener, mirroring the single *http.Server wrapped by pkg/node.Server
// in the teacher repo.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds the router for both backends and binds it to addr
// (e.g. ":8080").
func NewServer(addr string, memTree *merkletree.MemoryTree, durTree *durabletree.DurableTree, logger *zap.Logger) *Server {
	mux := http.NewServeMux()

	newBackend(memoryAdapter{tree: memTree}, logger).mount(mux, memoryPrefix)
	newBackend(durableAdapter{tree: durTree}, logger).mount(mux, durablePrefix)

	return &Server{
		httpServer: &http.Server{
			Addr:    addr,
			Handler: withRequestID(logger, mux),
		},
		logger: logger,
	}
}

// Start binds the listener synchronously — so a bind failure surfaces to
// the caller and can drive a nonzero exit code, per spec.md §6 — then
// serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}

	go func() {
		s.logger.Sugar().Infow("starting http server", "addr", s.httpServer.Addr)
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Sugar().Errorw("http server error", "error", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests and stops accepting new ones, per
// spec.md §6's graceful-shutdown requirement.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
