package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"evmAdapter/internal/config"
	"evmAdapter/internal/model"
	"evmAdapter/internal/storage"
	"evmAdapter/internal/storage/postgres"
)

func runExport(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadChain(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}
	if cfg.BlocksFile == "" {
		return fmt.Errorf("blocks-file is required")
	}

	hashes := make([]common.Hash, 0, len(args))
	for _, arg := range args {
		raw, err := hexutil.Decode(arg)
		if err != nil || len(raw) != common.HashLength {
			return fmt.Errorf("invalid block hash %q", arg)
		}
		hashes = append(hashes, common.BytesToHash(raw))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	blocks := make([]model.Block, 0, len(hashes))
	for _, hash := range hashes {
		block, err := store.BlockData(ctx, hash)
		if err != nil {
			return fmt.Errorf("load block %s: %w", hash.Hex(), err)
		}
		blocks = append(blocks, *block)
	}

	if err := storage.NewJsonlStore(cfg.BlocksFile).PutBlocks(blocks); err != nil {
		return err
	}

	logger.Info("export done",
		zap.Int("blocks", len(blocks)),
		zap.String("out", cfg.BlocksFile),
	)
	return nil
}
