package main

import (
	"context"
	"log"
	"net/http"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"stock-analysis/internal/bot"
	"stock-analysis/internal/cache"
	"stock-analysis/internal/config"
	"stock-analysis/internal/db"
	"stock-analysis/internal/handler"
	"stock-analysis/internal/job"
	"stock-analysis/internal/metrics"
	"stock-analysis/internal/notify"
	"stock-analysis/internal/provider"
	"stock-analysis/internal/repository"
	"stock-analysis/internal/service"
	"stock-analysis/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "stock-analysis/docs"
)

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
	newStockServiceFunc        = service.NewStockService
	newNotificationServiceFunc = service.NewNotificationService
	startTelegramBotFunc       = bot.StartTelegramBot
	newSweepJobFunc            = job.NewNotificationSweep
	startSweepJobFunc          = func(j *job.NotificationSweep, ctx context.Context) { go j.Start(ctx) }
	newHandlerFunc             = handler.New
	newRouterFunc              = gin.Default
	setupSignalNotify          = ossignal.Notify
	waitForSignalFunc          = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc        = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc     = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Stock Analysis API
// @version         1.0
// @description     Daily stock indicators, rule backtests and indicator notifications.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Postgres is optional; Redis backs the stock cache and may back notifications.
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

	fetcher := withPriceArchive(ctx, tracer, newPriceFetcherFunc(tracer, cfg))
	stockService := newStockServiceFunc(tracer, fetcher, cache.Client, service.StockServiceConfig{
		CacheTTL:     time.Duration(cfg.StockCacheTTLSecs) * time.Second,
		LookbackDays: cfg.SweepLookbackDays,
		StartingCash: cfg.BacktestStartingCash,
	})

	store, err := newNotificationStoreFunc(ctx, cfg, tracer)
	if err != nil {
		log.Fatalf("failed to open notification store: %v", err)
	}

	// The bot reads subscriptions from the store so its dispatcher can be
	// handed to the notification service.
	dispatchers := notify.MultiDispatcher{notify.NewLogDispatcher(nil)}
	var finder bot.SubscriptionFinder
	if store != nil {
		finder = store
	}
	if alerts := startTelegramBotFunc(cfg.TelegramBotToken, cfg.TelegramAlertChatID, stockService, finder); alerts != nil {
		dispatchers = append(dispatchers, alerts)
	}

	var notifications handler.NotificationAPI
	if store != nil {
		notificationService := newNotificationServiceFunc(tracer, store, stockService, dispatchers, cfg.SweepConcurrency)
		notifications = notificationService

		sweep := newSweepJobFunc(tracer, notificationService, cfg.SweepCron, cfg.SweepRunOnStart)
		startSweepJobFunc(sweep, ctx)
	} else {
		log.Println("Warning: no notification store available, notification endpoints disabled")
	}

	h := newHandlerFunc(tracer, stockService, notifications)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("stock-analysis"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	h.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    httpAddr(cfg.Port),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func httpAddr(port string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		return ":8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// withPriceArchive wraps the fetcher with the Postgres bar archive when a
// database is configured.
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
