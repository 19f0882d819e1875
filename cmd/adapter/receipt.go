package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"evmAdapter/internal/api"
	"evmAdapter/internal/config"
)

func runReceipt(cmd *cobra.Command, args []string) error {
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

	raw, err := hexutil.Decode(args[0])
	if err != nil || len(raw) != common.HashLength {
		return fmt.Errorf("invalid transaction hash %q", args[0])
	}
	hash := common.BytesToHash(raw)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := openSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	receipt, err := api.NewEthAPI(source, logger).GetTransactionReceipt(ctx, hash)
	if err != nil {
		return err
	}
	if receipt == nil {
		return fmt.Errorf("transaction %s is not indexed", hash.Hex())
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(receipt)
}
