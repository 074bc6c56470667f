// Command merkle-server is the process entrypoint: it resolves
// configuration from environment variables (spec.md §6), opens the durable
// store, wires up both tree backends, and serves the HTTP surface until a
// signal requests graceful shutdown.
//
// Flag/env-var wiring follows the cli.App/cli.Flag pattern in
// cmd/kms-server/main.go in the teacher repo rather than bespoke
// os.Getenv parsing.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/Layr-Labs/merkletree-service/pkg/api"
	"github.com/Layr-Labs/merkletree-service/pkg/durablestore"
	"github.com/Layr-Labs/merkletree-service/pkg/durabletree"
	merklelog "github.com/Layr-Labs/merkletree-service/pkg/log"
	"github.com/Layr-Labs/merkletree-service/pkg/merkletree"
)

const (
	defaultPort        = 8080
	defaultStoragePath = "./merkle_tree.db"
	shutdownTimeout    = 10 * time.Second
)

func main() {
	app := &cli.App{
		Name:  "merkle-server",
		Usage: "Keccak-256 incremental Merkle tree service",
		Description: `An append-only, content-addressed authenticated-set service.

Exposes two equally first-class backends on one HTTP listener:
  - a volatile in-memory tree, mounted at the root
  - a durable, crash-safe tree backed by a memory-mapped B-tree store,
    mounted under /lmdb

Both backends produce identical roots and proofs for identical leaf
sequences, but do not share leaf state.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   defaultPort,
				Usage:   "TCP port for the HTTP listener",
				EnvVars: []string{"PORT"},
			},
			&cli.StringFlag{
				Name:    "storage-path",
				Value:   defaultStoragePath,
				Usage:   "filesystem path for the durable store",
				EnvVars: []string{"STORAGE_PATH"},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "enable development-mode (human-readable) logging",
				EnvVars: []string{"MERKLE_VERBOSE"},
			},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("merkle-server: %v", err)
	}
}

func run(c *cli.Context) error {
	logger, err := merklelog.New(merklelog.Config{Debug: c.Bool("verbose")})
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	port := c.Int("port")
	storagePath := c.String("storage-path")

	store, err := durablestore.Open(storagePath, logger)
	if err != nil {
		return fmt.Errorf("failed to open durable store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Sugar().Errorw("error closing durable store", "error", err)
		}
	}()

	memTree := merkletree.NewMemoryTree()
	durTree := durabletree.New(store, logger)

	addr := fmt.Sprintf(":%d", port)
	srv := api.NewServer(addr, memTree, durTree, logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	logger.Sugar().Infow("merkle-server running",
		"port", port,
		"storage_path", storagePath,
		"routes_memory", "/add-leaf, /add-leaves, /get-num-leaves, /get-root, /get-proof",
		"routes_durable", "/lmdb/add-leaf, /lmdb/add-leaves, /lmdb/get-num-leaves, /lmdb/get-root, /lmdb/get-proof",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Sugar().Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
