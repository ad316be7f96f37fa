package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	ossignal "os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"stock-analysis/internal/cache"
	"stock-analysis/internal/config"
	"stock-analysis/internal/db"
	mcpserver "stock-analysis/internal/mcp"
	"stock-analysis/internal/provider"
	"stock-analysis/internal/repository"
	"stock-analysis/internal/service"
	"stock-analysis/pkg/tracing"

	"github.com/joho/godotenv"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"
)

const maxRequestBodyBytes int64 = 1 << 20

var (
	loadEnvFunc         = godotenv.Load
	loadConfigFunc      = config.Load
	initPostgresFunc    = db.InitPostgres
	initRedisFunc       = cache.InitRedis
	initTracerFunc      = tracing.InitTracer
	newPriceFetcherFunc = func(tracer trace.Tracer, cfg *config.Config) service.PriceFetcher {
		return provider.NewFMPProvider(tracer, &http.Client{Timeout: time.Duration(cfg.FMPTimeoutSecs) * time.Second}, provider.FMPConfig{
			BaseURL:    cfg.FMPBaseURL,
			APIKey:     cfg.FMPAPIKey,
			RatePerSec: cfg.FMPRatePerSec,
		})
	}
	newNotificationStoreFunc = func(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (service.NotificationStore, error) {
		return repository.OpenNotificationStore(ctx, cfg.NotificationStore, db.Pool, cache.Client, tracer)
	}
	newMCPServerFunc    = mcpserver.NewServer
	newMCPHandlerFunc   = mcpserver.NewHTTPTransportHandler
	newStockServiceFunc = service.NewStockService
	runStdioFunc        = func(ctx context.Context, server *sdkmcp.Server) error {
		return server.Run(ctx, &sdkmcp.StdioTransport{})
	}
	startHTTPServerFunc  = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFn = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
	setupSignalNotify    = ossignal.Notify
	waitForSignalFunc    = func(quit <-chan os.Signal) { <-quit }
)

func main() {
	loadEnvFunc()
	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Printf("Warning: %v", err)
	}
	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Printf("Warning: %v", err)
	}
	defer db.Close()

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	stockService := newStockServiceFunc(tracer, withPriceArchive(ctx, tracer, newPriceFetcherFunc(tracer, cfg)), cache.Client, service.StockServiceConfig{
		CacheTTL:     time.Duration(cfg.StockCacheTTLSecs) * time.Second,
		LookbackDays: cfg.SweepLookbackDays,
		StartingCash: cfg.BacktestStartingCash,
	})

	store, err := newNotificationStoreFunc(ctx, cfg, tracer)
	if err != nil {
		log.Fatalf("failed to open notification store: %v", err)
	}
	// Subscriptions created over MCP are swept by the server process; this
	// process never dispatches.
	var notifications mcpserver.NotificationReaderWriter
	if store != nil {
		notifications = service.NewNotificationService(tracer, store, stockService, nil, cfg.SweepConcurrency)
	}

	mcpSrv := newMCPServerFunc(tracer, stockService, notifications, mcpserver.ServerConfig{
		RequestTimeout: time.Duration(cfg.MCPRequestTimeoutSecs) * time.Second,
	})

	transport := strings.ToLower(strings.TrimSpace(cfg.MCPTransport))
	switch transport {
	case "", "stdio":
		if err := runStdioFunc(ctx, mcpSrv); err != nil {
			log.Fatalf("mcp stdio server failed: %v", err)
		}
	case "http":
		if err := runHTTPMode(ctx, cancel, cfg, mcpSrv); err != nil {
			log.Fatalf("mcp http server failed: %v", err)
		}
	default:
		log.Fatalf("unsupported MCP_TRANSPORT: %s", cfg.MCPTransport)
	}
}

// httpListenConfig validates the HTTP transport settings. The transport is
// opt-in and never runs without a bearer token.
func httpListenConfig(cfg *config.Config) (string, mcpserver.HTTPHandlerConfig, error) {
	if !cfg.MCPHTTPEnabled {
		return "", mcpserver.HTTPHandlerConfig{}, fmt.Errorf("MCP_HTTP_ENABLED must be true when MCP_TRANSPORT=http")
	}
	token := strings.TrimSpace(cfg.MCPAuthToken)
	if token == "" {
		return "", mcpserver.HTTPHandlerConfig{}, fmt.Errorf("MCP_AUTH_TOKEN is required when MCP_TRANSPORT=http")
	}
	addr := net.JoinHostPort(cfg.MCPHTTPBind, strconv.Itoa(cfg.MCPHTTPPort))
	return addr, mcpserver.HTTPHandlerConfig{
		AuthToken:       token,
		RateLimitPerMin: cfg.MCPRateLimitPerMin,
		MaxBodyBytes:    maxRequestBodyBytes,
	}, nil
}

func runHTTPMode(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, mcpSrv *sdkmcp.Server) error {
	addr, handlerCfg, err := httpListenConfig(cfg)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMCPHandlerFunc(mcpSrv, handlerCfg),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Printf("mcp http server failed: %v", err)
		}
	}()
	log.Printf("MCP HTTP transport listening on %s", addr)

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down MCP HTTP transport...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := shutdownHTTPServerFn(srv, shutdownCtx); err != nil {
		return fmt.Errorf("mcp server forced to shutdown: %w", err)
	}
	return nil
}

func withPriceArchive(ctx context.Context, tracer trace.Tracer, fetcher service.PriceFetcher) service.PriceFetcher {
	if db.Pool == nil {
		return fetcher
	}
	archive := repository.NewPriceBarRepository(db.Pool, tracer)
	if err := archive.RunMigrations(ctx); err != nil {
		log.Printf("Warning: price archive disabled: %v", err)
		return fetcher
	}
	return service.NewArchivingFetcher(tracer, fetcher, archive)
}
