package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"evmAdapter/internal/chain"
	"evmAdapter/internal/config"
	"evmAdapter/internal/storage"
	"evmAdapter/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "adapter",
		Short:        "Ethereum JSON-RPC adapter for a Substrate EVM chain",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON-RPC endpoints",
		RunE:  runServe,
	}

	serveCmd.Flags().String("http-addr", ":8545", "HTTP listen address")
	serveCmd.Flags().String("ws-addr", "", "WebSocket listen address, empty disables it")
	addChainFlags(serveCmd)
	serveCmd.Flags().Uint64("chain-id", 1000, "chain id reported by eth_chainId")
	serveCmd.Flags().String("network-version", "1000", "value reported by net_version")
	serveCmd.Flags().String("client-version", "Laguna/v1", "value reported by web3_clientVersion")
	serveCmd.Flags().Bool("extensive-instrumentation", false, "tag tracing spans with request details")
	serveCmd.Flags().StringSlice("cors-origins", nil, "allowed browser origins (comma-separated)")
	serveCmd.Flags().Bool("metrics", true, "expose Prometheus metrics on /metrics")

	root.AddCommand(serveCmd)

	receiptCmd := &cobra.Command{
		Use:   "receipt <tx-hash>",
		Short: "Print the receipt of one transaction",
		Args:  cobra.ExactArgs(1),
		RunE:  runReceipt,
	}

	addChainFlags(receiptCmd)

	root.AddCommand(receiptCmd)

	exportCmd := &cobra.Command{
		Use:   "export <block-hash>...",
		Short: "Copy indexed blocks from Postgres into a JSONL file",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runExport,
	}

	exportCmd.Flags().String("pg-dsn", "", "Postgres DSN of the block index")
	exportCmd.Flags().String("blocks-file", "./data/blocks.jsonl", "output JSONL path")
	exportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(exportCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().String("chain-rpc", "", "Substrate node RPC URL")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN of the block index")
	cmd.Flags().String("blocks-file", "", "JSONL block file used instead of Postgres")
	cmd.Flags().Int("native-decimals", 12, "decimals of the native token")
	cmd.Flags().String("storage-deposit-per-byte", "", "storage deposit charged per byte, in 18-decimal units (required)")
	cmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	cmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

// openStore picks the Postgres index when a DSN is set and falls back to a
// JSONL block file otherwise.
func openStore(ctx context.Context, pgDSN, blocksFile string) (storage.BlockStore, func(), error) {
	switch {
	case pgDSN != "":
		store, err := postgres.NewStore(ctx, pgDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return store, store.Close, nil
	case blocksFile != "":
		return storage.NewJsonlStore(blocksFile), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("pg-dsn or blocks-file is required")
	}
}

func openSource(ctx context.Context, cfg config.ChainConfig, logger *zap.Logger) (*chain.Source, func(), error) {
	if cfg.ChainRPC == "" {
		return nil, nil, fmt.Errorf("chain rpc url is required")
	}
	if cfg.StorageDepositPerByte == nil {
		return nil, nil, config.ErrStorageDepositUnset
	}

	store, closeStore, err := openStore(ctx, cfg.PGDSN, cfg.BlocksFile)
	if err != nil {
		return nil, nil, err
	}

	client, err := chain.NewClient(ctx, cfg.ChainRPC)
	if err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	source := chain.NewSource(client, store, chain.SourceConfig{
		NativeDecimals:        cfg.NativeDecimals,
		StorageDepositPerByte: cfg.StorageDepositPerByte,
		MaxRetries:            cfg.MaxRetries,
		RetryBackoff:          cfg.RetryBackoff,
	}, logger)

	return source, func() {
		client.Close()
		closeStore()
	}, nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
