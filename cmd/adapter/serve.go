package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"evmAdapter/internal/api"
	"evmAdapter/internal/config"
	"evmAdapter/internal/jsonrpc"
)

const shutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, closeSource, err := openSource(ctx, config.ChainConfig{
		ChainRPC:              cfg.ChainRPC,
		PGDSN:                 cfg.PGDSN,
		BlocksFile:            cfg.BlocksFile,
		NativeDecimals:        cfg.NativeDecimals,
		StorageDepositPerByte: cfg.StorageDepositPerByte,
		MaxRetries:            cfg.MaxRetries,
		RetryBackoff:          cfg.RetryBackoff,
	}, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	opts := []jsonrpc.Option{jsonrpc.WithLogger(logger)}
	if cfg.ExtensiveInstrumentation {
		opts = append(opts, jsonrpc.WithInstrumentation(jsonrpc.SpanInstrumentation{}))
	}

	registry := prometheus.NewRegistry()
	if cfg.Metrics {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics, err := jsonrpc.NewMetrics(registry)
		if err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		opts = append(opts, jsonrpc.WithMetrics(metrics))
	}

	dispatcher := jsonrpc.NewDispatcher(opts...)
	dispatcher.AddRouter(api.Web3Router(api.NodeInfo{
		ClientVersion:  cfg.ClientVersion,
		NetworkVersion: cfg.NetworkVersion,
		ChainID:        cfg.ChainID,
	}))
	dispatcher.AddRouter(api.NewEthAPI(source, logger).Router())
	if len(dispatcher.RouterNames()) == 0 {
		return jsonrpc.ErrNoRouters
	}

	mux := http.NewServeMux()
	mux.Handle("/", jsonrpc.WithCORS(jsonrpc.NewHTTPHandler(dispatcher, logger), cfg.CORSOrigins))
	if cfg.Metrics {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	servers := []*http.Server{{Addr: cfg.HTTPAddr, Handler: mux}}
	if cfg.WSAddr != "" {
		servers = append(servers, &http.Server{
			Addr:    cfg.WSAddr,
			Handler: jsonrpc.NewWSHandler(dispatcher, logger, cfg.CORSOrigins),
		})
	}

	logger.Info("adapter start",
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("ws_addr", cfg.WSAddr),
		zap.String("chain_rpc", cfg.ChainRPC),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("blocks_file", cfg.BlocksFile),
		zap.Uint64("chain_id", cfg.ChainID),
		zap.String("storage_deposit_per_byte", cfg.StorageDepositPerByte.String()),
		zap.Strings("routers", dispatcher.RouterNames()),
		zap.Bool("extensive_instrumentation", cfg.ExtensiveInstrumentation),
		zap.Bool("metrics", cfg.Metrics),
	)

	return serve(ctx, servers, logger)
}

// serve runs every server until ctx is done or one of them fails, then shuts
// the rest down.
func serve(ctx context.Context, servers []*http.Server, logger *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown failed", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}
		logger.Info("adapter stopped")
		return nil
	})

	return g.Wait()
}
