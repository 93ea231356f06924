package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/rpcclient"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/p2pk-tracker/internal/bitcoin"
	"github.com/goodnatureofminers/p2pk-tracker/internal/metrics"
	"github.com/goodnatureofminers/p2pk-tracker/internal/model"
	"github.com/goodnatureofminers/p2pk-tracker/internal/notify"
	"github.com/goodnatureofminers/p2pk-tracker/internal/repository/badger"
	"github.com/goodnatureofminers/p2pk-tracker/internal/repository/clickhouse"
	"github.com/goodnatureofminers/p2pk-tracker/internal/repository/sqlite"
	"github.com/goodnatureofminers/p2pk-tracker/internal/service/tracker"
)

type config struct {
	Network        string `long:"network" env:"P2PK_TRACKER_NETWORK" description:"bitcoin network name" default:"mainnet"`
	RPCURL         string `long:"rpc-url" env:"P2PK_TRACKER_RPC_URL" description:"Bitcoin RPC URL" default:"http://127.0.0.1:8332"`
	RPCUser        string `long:"rpc-user" env:"P2PK_TRACKER_RPC_USER" description:"Bitcoin RPC username"`
	RPCPassword    string `long:"rpc-password" env:"P2PK_TRACKER_RPC_PASSWORD" description:"Bitcoin RPC password"`
	RPCRateLimit   int    `long:"rpc-rate-limit" env:"P2PK_TRACKER_RPC_RATE_LIMIT" description:"node RPC calls per second, 0 disables limiting" default:"10"`
	CheckpointDSN  string `long:"checkpoint-dsn" env:"P2PK_TRACKER_CHECKPOINT_DSN" description:"checkpoint store DSN: sqlite path or clickhouse:// DSN" default:"sqlite://data/checkpoints.db"`
	DeltaDir       string `long:"delta-dir" env:"P2PK_TRACKER_DELTA_DIR" description:"delta store directory" default:"data/delta"`
	MinPeers       int    `long:"min-peers" env:"P2PK_TRACKER_MIN_PEERS" description:"peers required before processing starts, 0 disables the gate" default:"4"`
	NotifierBuffer int    `long:"notifier-buffer" env:"P2PK_TRACKER_NOTIFIER_BUFFER" description:"per-subscriber checkpoint event buffer" default:"16"`
	MetricsAddr    string `long:"metrics-addr" env:"P2PK_TRACKER_METRICS_ADDR" description:"ops HTTP listen address, empty disables" default:":9090"`
}

func main() {
	cfg := config{}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := zap.NewDevelopment()
	if err != nil {
		panic("can't initialize zap logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync()
	}()

	if _, err := flags.ParseArgs(&cfg, os.Args); err != nil {
		var ferr *flags.Error
		if errors.As(err, &ferr) && ferr.Type == flags.ErrHelp {
			return
		}
		logger.Fatal("failed to parse flags", zap.Error(err))
	}

	if err := run(ctx, cfg, logger); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("shutdown complete")
			return
		}
		logger.Fatal("p2pk tracker failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	network, err := model.ParseNetwork(cfg.Network)
	if err != nil {
		return err
	}
	matcher := bitcoin.NewPubKeyMatcher()

	startOpsServer(ctx, cfg.MetricsAddr, logger)

	deltaStore, err := badger.NewRepository(cfg.DeltaDir, metrics.NewDeltaRepository(network, matcher.Pattern()), logger)
	if err != nil {
		return fmt.Errorf("init delta store: %w", err)
	}
	defer func() {
		if closeErr := deltaStore.Close(); closeErr != nil {
			logger.Error("failed to close delta store", zap.Error(closeErr))
		}
	}()

	checkpoints, err := newCheckpointStore(cfg.CheckpointDSN, network, matcher.Pattern())
	if err != nil {
		return fmt.Errorf("init checkpoint store: %w", err)
	}
	defer func() {
		if closeErr := checkpoints.Close(); closeErr != nil {
			logger.Error("failed to close checkpoint store", zap.Error(closeErr))
		}
	}()

	hub, err := notify.NewHub(
		metrics.NewNotifier(network, matcher.Pattern()),
		logger,
		notify.WithBufferSize(cfg.NotifierBuffer),
	)
	if err != nil {
		return fmt.Errorf("init notifier: %w", err)
	}
	defer hub.Close()

	rpcClient, err := newRPCClient(cfg.RPCURL, cfg.RPCUser, cfg.RPCPassword)
	if err != nil {
		return fmt.Errorf("init bitcoin rpc client: %w", err)
	}
	defer func() {
		rpcClient.Shutdown()
		rpcClient.WaitForShutdown()
	}()
	rpc := bitcoin.NewRPCClient(rpcClient, metrics.NewRPCClient(network))

	provider, err := bitcoin.NewProvider(rpc, newRateLimiter(cfg.RPCRateLimit), logger)
	if err != nil {
		return fmt.Errorf("init chain provider: %w", err)
	}
	provider.Start(ctx)

	svc, err := tracker.NewService(
		tracker.Config{MinPeers: cfg.MinPeers},
		provider,
		deltaStore,
		checkpoints,
		matcher,
		hub,
		metrics.NewTracker(network, matcher.Pattern()),
		network,
		logger,
	)
	if err != nil {
		return err
	}
	return svc.Run(ctx)
}

// checkpointStore is the closable checkpoint surface run owns.
type checkpointStore interface {
	tracker.CheckpointRepository
	Close() error
}

// newCheckpointStore picks the checkpoint engine from the DSN: clickhouse://
// selects ClickHouse, anything else is treated as a sqlite database path
// with an optional sqlite:// prefix.
func newCheckpointStore(dsn string, network model.Network, pattern model.ScriptPattern) (checkpointStore, error) {
	if strings.HasPrefix(dsn, "clickhouse://") {
		return clickhouse.NewRepository(dsn, network, pattern,
			metrics.NewCheckpointRepository("clickhouse", network, pattern))
	}
	return sqlite.NewRepository(strings.TrimPrefix(dsn, "sqlite://"), pattern,
		metrics.NewCheckpointRepository("sqlite", network, pattern))
}

func newRateLimiter(rps int) ratelimit.Limiter {
	if rps <= 0 {
		return ratelimit.NewUnlimited()
	}
	return ratelimit.New(rps)
}

// startOpsServer exposes prometheus metrics over HTTP until ctx is canceled.
// An empty addr disables the server.
func startOpsServer(ctx context.Context, addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           cors.Default().Handler(mux),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting ops server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown ops server", zap.Error(err))
		}
	}()
}

func newRPCClient(rawURL, user, password string) (*rpcclient.Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse rpc url: %w", err)
	}
	if parsed.Scheme != "http" {
		return nil, fmt.Errorf("rpc url scheme %q not supported, use http", parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, errors.New("rpc url missing host")
	}

	cfg := &rpcclient.ConnConfig{
		Host:         parsed.Host,
		User:         user,
		Pass:         password,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	return rpcclient.New(cfg, nil)
}
