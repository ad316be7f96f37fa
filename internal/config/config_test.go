package config

import (
	"reflect"
	"testing"
)

var configKeys = []string{
	"PORT", "FMP_BASE_URL", "FMP_API_KEY", "FMP_TIMEOUT_SECS", "FMP_RATE_PER_SEC",
	"DATABASE_URL", "REDIS_URL", "NOTIFICATION_STORE", "STOCK_CACHE_TTL_SECS",
	"CORS_ALLOWED_ORIGINS", "SWEEP_CRON", "SWEEP_LOOKBACK_DAYS", "SWEEP_CONCURRENCY",
	"SWEEP_RUN_ON_START", "BACKTEST_STARTING_CASH", "TELEGRAM_BOT_TOKEN", "TELEGRAM_ALERT_CHAT_ID",
	"MCP_TRANSPORT", "MCP_HTTP_ENABLED", "MCP_HTTP_BIND", "MCP_HTTP_PORT", "MCP_AUTH_TOKEN",
	"MCP_REQUEST_TIMEOUT_SECS", "MCP_RATE_LIMIT_PER_MIN",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.FMPBaseURL != "https://financialmodelingprep.com/api/v3" {
		t.Fatalf("unexpected default FMP base url: %s", cfg.FMPBaseURL)
	}
	if cfg.FMPTimeoutSecs != 10 || cfg.FMPRatePerSec != 5 {
		t.Fatalf("unexpected FMP defaults: timeout=%d rate=%v", cfg.FMPTimeoutSecs, cfg.FMPRatePerSec)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Fatalf("expected default redis url, got %s", cfg.RedisURL)
	}
	if cfg.NotificationStore != StoreBackendRedis {
		t.Fatalf("expected redis store without DATABASE_URL, got %s", cfg.NotificationStore)
	}
	if cfg.StockCacheTTLSecs != 300 {
		t.Fatalf("expected cache ttl 300, got %d", cfg.StockCacheTTLSecs)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"http://localhost:5174"}) {
		t.Fatalf("unexpected CORS defaults: %+v", cfg.CORSAllowedOrigins)
	}
	if cfg.SweepCron != "0 0 0 * * 2-6" || cfg.SweepLookbackDays != 120 || cfg.SweepConcurrency != 4 || cfg.SweepRunOnStart {
		t.Fatalf("unexpected sweep defaults: %+v", cfg)
	}
	if cfg.BacktestStartingCash != 10000 {
		t.Fatalf("expected starting cash 10000, got %v", cfg.BacktestStartingCash)
	}
	if cfg.MCPTransport != "stdio" {
		t.Fatalf("expected default MCP transport stdio, got %s", cfg.MCPTransport)
	}
	if cfg.MCPHTTPBind != "127.0.0.1" || cfg.MCPHTTPPort != 8090 {
		t.Fatalf("unexpected MCP http defaults: %s:%d", cfg.MCPHTTPBind, cfg.MCPHTTPPort)
	}
	if cfg.MCPRequestTimeoutSecs != 5 || cfg.MCPRateLimitPerMin != 60 {
		t.Fatalf("unexpected MCP defaults: timeout=%d rate=%d", cfg.MCPRequestTimeoutSecs, cfg.MCPRateLimitPerMin)
	}
}

func TestLoadWithEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("FMP_BASE_URL", "https://fmp.example/api/v3/")
	t.Setenv("FMP_API_KEY", "key")
	t.Setenv("FMP_RATE_PER_SEC", "2.5")
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("REDIS_URL", "redis:6379")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,http://a.test")
	t.Setenv("SWEEP_CRON", "0 30 21 * * 1-5")
	t.Setenv("SWEEP_CONCURRENCY", "8")
	t.Setenv("SWEEP_RUN_ON_START", "TRUE")
	t.Setenv("BACKTEST_STARTING_CASH", "2500.5")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_ALERT_CHAT_ID", "-100123")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("MCP_HTTP_ENABLED", "true")
	t.Setenv("MCP_HTTP_PORT", "9999")
	t.Setenv("MCP_AUTH_TOKEN", "secret")

	cfg := Load()
	if cfg.Port != "9000" || cfg.FMPBaseURL != "https://fmp.example/api/v3" || cfg.FMPAPIKey != "key" || cfg.FMPRatePerSec != 2.5 {
		t.Fatalf("unexpected provider config: %+v", cfg)
	}
	if cfg.NotificationStore != StoreBackendPostgres {
		t.Fatalf("expected postgres store with DATABASE_URL, got %s", cfg.NotificationStore)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"http://a.test", "http://b.test"}) {
		t.Fatalf("unexpected CORS origins: %+v", cfg.CORSAllowedOrigins)
	}
	if cfg.SweepCron != "0 30 21 * * 1-5" || cfg.SweepConcurrency != 8 || !cfg.SweepRunOnStart {
		t.Fatalf("unexpected sweep config: %+v", cfg)
	}
	if cfg.BacktestStartingCash != 2500.5 {
		t.Fatalf("unexpected starting cash: %v", cfg.BacktestStartingCash)
	}
	if cfg.TelegramBotToken != "token" || cfg.TelegramAlertChatID != -100123 {
		t.Fatalf("unexpected telegram config: %+v", cfg)
	}
	if cfg.MCPTransport != "http" || !cfg.MCPHTTPEnabled || cfg.MCPHTTPPort != 9999 || cfg.MCPAuthToken != "secret" {
		t.Fatalf("unexpected MCP config: %+v", cfg)
	}
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTIFICATION_STORE", "mongo")
	t.Setenv("SWEEP_CRON", "every day")
	t.Setenv("SWEEP_LOOKBACK_DAYS", "-3")
	t.Setenv("MCP_TRANSPORT", "grpc")
	t.Setenv("TELEGRAM_ALERT_CHAT_ID", "abc")

	cfg := Load()
	if cfg.NotificationStore != StoreBackendRedis {
		t.Fatalf("expected redis fallback, got %s", cfg.NotificationStore)
	}
	if cfg.SweepCron != "0 0 0 * * 2-6" {
		t.Fatalf("expected default cron, got %s", cfg.SweepCron)
	}
	if cfg.SweepLookbackDays != 120 {
		t.Fatalf("expected default lookback, got %d", cfg.SweepLookbackDays)
	}
	if cfg.MCPTransport != "stdio" {
		t.Fatalf("expected stdio fallback, got %s", cfg.MCPTransport)
	}
	if cfg.TelegramAlertChatID != 0 {
		t.Fatalf("expected zero chat id, got %d", cfg.TelegramAlertChatID)
	}
}

func TestLoadPostgresWithoutDatabaseFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTIFICATION_STORE", "postgres")

	if got := Load().NotificationStore; got != StoreBackendRedis {
		t.Fatalf("expected redis fallback without DATABASE_URL, got %s", got)
	}
}
