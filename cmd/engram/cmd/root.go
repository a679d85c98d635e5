// Package cmd provides the CLI commands for engram.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/engramhq/engram/internal/config"
	"github.com/engramhq/engram/internal/crypto"
	engerrors "github.com/engramhq/engram/internal/errors"
	"github.com/engramhq/engram/internal/logging"
	"github.com/engramhq/engram/internal/memory"
	"github.com/engramhq/engram/internal/store"
	"github.com/engramhq/engram/internal/synonyms"
)

// Debug logging flag.
var (
	debugMode      bool
	loggingCleanup func()
)

// Shared flags read by most subcommands.
var (
	storePath string
	agentID   string
)

// NewRootCmd creates the root command for the engram CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: "Persistent episodic memory store for autonomous agents",
		Long: `Engram stores, searches, and prunes an agent's episodic memory:
BM25 + recency + synonym-aware recall, supersession chains, encryption at
rest, and Merkle-anchored integrity snapshots.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&storePath, "store", ".engram", "path to the engram store")
	cmd.PersistentFlags().StringVar(&agentID, "agent", "default", "agent id episodes are scoped to")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to ~/.engram/logs/")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newRememberCmd())
	cmd.AddCommand(newRecallCmd())
	cmd.AddCommand(newRecentCmd())
	cmd.AddCommand(newTemporalCmd())
	cmd.AddCommand(newContextCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newPruneCmd())
	cmd.AddCommand(newForgetCmd())
	cmd.AddCommand(newChainCmd())
	cmd.AddCommand(newInjectCmd())
	cmd.AddCommand(newHourlySummaryCmd())
	cmd.AddCommand(newSnapshotCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Debug("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command and returns the process exit code per
// §6.5: 0 on success, 1 on hard error, 2 on a not-found lookup.
func Execute() int {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	if engerrors.GetCategory(err) == engerrors.CategoryNotFound {
		return 2
	}
	return 1
}

// openMemory opens the local store rooted at storePath, loads its layered
// config and synonym table, resolves an encryption key if one is
// configured or requested via ENGRAM_KEY, and constructs an orchestrator
// bound to agentID. Callers must call the returned closer when done.
func openMemory(ctx context.Context) (*memory.Memory, func() error, error) {
	cfg, err := config.Load(storePath)
	if err != nil {
		return nil, nil, err
	}

	syn, err := synonyms.LoadLayered(storePath, os.Getenv("ENGRAM_SYNONYMS"), cfg.Synonyms.Path)
	if err != nil {
		return nil, nil, err
	}

	s := store.NewLocalStore(storePath)
	if err := s.Init(ctx); err != nil {
		return nil, nil, err
	}

	var key *crypto.Key
	if cfg.Crypto.Enabled || os.Getenv("ENGRAM_KEY") != "" {
		resolved, err := crypto.ResolveKey(crypto.KeyOptions{KeyDir: storePath})
		if err != nil {
			_ = s.Close()
			return nil, nil, err
		}
		key = &resolved
	}

	m := memory.New(memory.Options{
		AgentID:  agentID,
		Storage:  s,
		Config:   cfg,
		Synonyms: syn,
		Key:      key,
	})

	return m, s.Close, nil
}
