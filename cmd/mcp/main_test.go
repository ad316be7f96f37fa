package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"testing"

	"stock-analysis/internal/config"
	"stock-analysis/internal/domain"
	mcpserver "stock-analysis/internal/mcp"
	"stock-analysis/internal/service"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainMCPStdio(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	called := false
	origRunStdio := runStdioFunc
	runStdioFunc = func(ctx context.Context, server *sdkmcp.Server) error {
		called = true
		return nil
	}
	defer func() { runStdioFunc = origRunStdio }()

	main()

	if !called {
		t.Fatal("expected stdio transport to run")
	}
}

func TestMainMCPHTTP(t *testing.T) {
	restore := stubMCPDeps(t, "http")
	defer restore()

	httpStarted := false
	started := make(chan struct{})
	origStartHTTP := startHTTPServerFunc
	origNotify := setupSignalNotify
	origWait := waitForSignalFunc
	origShutdown := shutdownHTTPServerFn

	startHTTPServerFunc = func(*http.Server) error {
		httpStarted = true
		close(started)
		return http.ErrServerClosed
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) { <-started }
	shutdownHTTPServerFn = func(*http.Server, context.Context) error { return nil }

	defer func() {
		startHTTPServerFunc = origStartHTTP
		setupSignalNotify = origNotify
		waitForSignalFunc = origWait
		shutdownHTTPServerFn = origShutdown
	}()

	main()

	if !httpStarted {
		t.Fatal("expected http transport to start")
	}
}

func TestMainMCPWithoutNotificationStore(t *testing.T) {
	restore := stubMCPDeps(t, "stdio")
	defer restore()

	var gotNotifications mcpserver.NotificationReaderWriter = &service.NotificationService{}
	origNewMCPServer := newMCPServerFunc
	origRunStdio := runStdioFunc
	newMCPServerFunc = func(_ trace.Tracer, _ mcpserver.StockReader, notifications mcpserver.NotificationReaderWriter, _ mcpserver.ServerConfig) *sdkmcp.Server {
		gotNotifications = notifications
		return sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test-mcp"}, nil)
	}
	runStdioFunc = func(context.Context, *sdkmcp.Server) error { return nil }
	defer func() {
		newMCPServerFunc = origNewMCPServer
		runStdioFunc = origRunStdio
	}()

	main()

	if gotNotifications != nil {
		t.Fatalf("expected a nil notification reader without a store, got %T", gotNotifications)
	}
}

func TestMainMCPHTTPRequiresToken(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		MCPHTTPEnabled: true,
		MCPHTTPBind:    "127.0.0.1",
		MCPHTTPPort:    8090,
	}
	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test"}, nil)

	err := runHTTPMode(ctx, cancel, cfg, srv)
	if err == nil {
		t.Fatal("expected missing token error")
	}
	if !strings.Contains(err.Error(), "MCP_AUTH_TOKEN is required") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMainMCPHTTPRequiresEnable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test"}, nil)
	err := runHTTPMode(ctx, cancel, &config.Config{MCPAuthToken: "secret"}, srv)
	if err == nil || !strings.Contains(err.Error(), "MCP_HTTP_ENABLED") {
		t.Fatalf("expected enable error, got %v", err)
	}
}

func TestHTTPListenConfig(t *testing.T) {
	addr, handlerCfg, err := httpListenConfig(&config.Config{
		MCPHTTPEnabled:     true,
		MCPHTTPBind:        "127.0.0.1",
		MCPHTTPPort:        8090,
		MCPAuthToken:       "  secret  ",
		MCPRateLimitPerMin: 30,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr != "127.0.0.1:8090" {
		t.Fatalf("unexpected addr %q", addr)
	}
	if handlerCfg.AuthToken != "secret" || handlerCfg.RateLimitPerMin != 30 || handlerCfg.MaxBodyBytes != maxRequestBodyBytes {
		t.Fatalf("unexpected handler config: %+v", handlerCfg)
	}
}

func stubMCPDeps(t *testing.T, transport string) func() {
	t.Helper()

	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewFetcher := newPriceFetcherFunc
	origNewStore := newNotificationStoreFunc
	origNewMCPServer := newMCPServerFunc
	origNewMCPHandler := newMCPHandlerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			NotificationStore:     config.StoreBackendRedis,
			MCPTransport:          transport,
			MCPHTTPEnabled:        true,
			MCPHTTPBind:           "127.0.0.1",
			MCPHTTPPort:           8090,
			MCPAuthToken:          "secret",
			MCPRequestTimeoutSecs: 1,
			MCPRateLimitPerMin:    60,
		}
	}
	initPostgresFunc = func(context.Context, string) error { return nil }
	initRedisFunc = func(context.Context, string) error { return nil }
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newPriceFetcherFunc = func(trace.Tracer, *config.Config) service.PriceFetcher { return stubMCPPriceFetcher{} }
	newNotificationStoreFunc = func(context.Context, *config.Config, trace.Tracer) (service.NotificationStore, error) {
		return nil, nil
	}
	newMCPServerFunc = func(trace.Tracer, mcpserver.StockReader, mcpserver.NotificationReaderWriter, mcpserver.ServerConfig) *sdkmcp.Server {
		return sdkmcp.NewServer(&sdkmcp.Implementation{Name: "test-mcp"}, nil)
	}
	newMCPHandlerFunc = func(server *sdkmcp.Server, cfg mcpserver.HTTPHandlerConfig) http.Handler {
		return http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newPriceFetcherFunc = origNewFetcher
		newNotificationStoreFunc = origNewStore
		newMCPServerFunc = origNewMCPServer
		newMCPHandlerFunc = origNewMCPHandler
	}
}

type stubMCPPriceFetcher struct{}

func (stubMCPPriceFetcher) FetchHistorical(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.PriceBar, error) {
	return nil, nil
}
