package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"stock-analysis/internal/bot"
	"stock-analysis/internal/config"
	"stock-analysis/internal/domain"
	"stock-analysis/internal/job"
	"stock-analysis/internal/repository"
	"stock-analysis/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	var router *gin.Engine
	sweepStarted := false
	restore := stubServerDeps(client, &router, &sweepStarted)
	defer restore()

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}

	if !sweepStarted {
		t.Fatal("expected notification sweep to be started")
	}
	if router == nil {
		t.Fatal("expected router to be built")
	}

	for _, path := range []string{"/health", "/metrics", "/notifications/a@b.co"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d: %s", path, rec.Code, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stock/AAPL", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /stock/AAPL: expected 200, got %d", rec.Code)
	}
}

func TestHTTPAddr(t *testing.T) {
	cases := map[string]string{
		"":      ":8080",
		"9090":  ":9090",
		":7070": ":7070",
	}
	for in, want := range cases {
		if got := httpAddr(in); got != want {
			t.Fatalf("httpAddr(%q) = %s, want %s", in, got, want)
		}
	}
}

func stubServerDeps(client *redis.Client, router **gin.Engine, sweepStarted *bool) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc
	origNewFetcher := newPriceFetcherFunc
	origNewStore := newNotificationStoreFunc
	origStartTelegram := startTelegramBotFunc
	origStartSweep := startSweepJobFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			Port:               "8080",
			NotificationStore:  config.StoreBackendRedis,
			CORSAllowedOrigins: []string{"http://localhost:5174"},
			SweepCron:          job.DefaultSweepSchedule,
			SweepConcurrency:   2,
		}
	}
	initPostgresFunc = func(context.Context, string) error { return nil }
	initRedisFunc = func(context.Context, string) error { return nil }
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newPriceFetcherFunc = func(trace.Tracer, *config.Config) service.PriceFetcher { return stubPriceFetcher{} }
	newNotificationStoreFunc = func(context.Context, *config.Config, trace.Tracer) (service.NotificationStore, error) {
		return repository.NewRedisNotificationStore(client, trace.NewNoopTracerProvider().Tracer("test")), nil
	}
	startTelegramBotFunc = func(string, int64, bot.StockQuerier, bot.SubscriptionFinder) *bot.TelegramDispatcher { return nil }
	startSweepJobFunc = func(j *job.NotificationSweep, ctx context.Context) { *sweepStarted = j != nil }
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine {
		*router = gin.New()
		return *router
	}
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
		newPriceFetcherFunc = origNewFetcher
		newNotificationStoreFunc = origNewStore
		startTelegramBotFunc = origStartTelegram
		startSweepJobFunc = origStartSweep
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

type stubPriceFetcher struct{}

func (stubPriceFetcher) FetchHistorical(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.PriceBar, error) {
	return []domain.PriceBar{
		{Date: domain.NewDate(2024, 1, 2), Open: 1, High: 2, Low: 1, Close: 2, Volume: 10},
	}, nil
}
