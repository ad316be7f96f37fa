package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
)

const (
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"

	defaultSweepCron = "0 0 0 * * 2-6"
)

type Config struct {
	Port string

	FMPBaseURL     string
	FMPAPIKey      string
	FMPTimeoutSecs int
	FMPRatePerSec  float64

	DatabaseURL       string
	RedisURL          string
	NotificationStore string
	StockCacheTTLSecs int

	CORSAllowedOrigins []string

	SweepCron         string
	SweepLookbackDays int
	SweepConcurrency  int
	SweepRunOnStart   bool

	BacktestStartingCash float64

	TelegramBotToken    string
	TelegramAlertChatID int64

	MCPTransport          string
	MCPHTTPEnabled        bool
	MCPHTTPBind           string
	MCPHTTPPort           int
	MCPAuthToken          string
	MCPRequestTimeoutSecs int
	MCPRateLimitPerMin    int
}

func Load() *Config {
	cfg := &Config{
		FMPAPIKey:        os.Getenv("FMP_API_KEY"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MCPAuthToken:     os.Getenv("MCP_AUTH_TOKEN"),
	}

	cfg.Port = strings.TrimSpace(os.Getenv("PORT"))
	if cfg.Port == "" {
		cfg.Port = "8080"
	}

	cfg.FMPBaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FMP_BASE_URL")), "/")
	if cfg.FMPBaseURL == "" {
		cfg.FMPBaseURL = "https://financialmodelingprep.com/api/v3"
	}
	if cfg.FMPAPIKey == "" {
		log.Println("Warning: FMP_API_KEY not set, price requests will be rejected upstream")
	}

	cfg.FMPTimeoutSecs = positiveInt("FMP_TIMEOUT_SECS", 10)
	cfg.FMPRatePerSec = 5
	if v := strings.TrimSpace(os.Getenv("FMP_RATE_PER_SEC")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.FMPRatePerSec = n
		}
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}

	cfg.NotificationStore = strings.ToLower(strings.TrimSpace(os.Getenv("NOTIFICATION_STORE")))
	switch cfg.NotificationStore {
	case StoreBackendPostgres, StoreBackendRedis:
	case "":
		if cfg.DatabaseURL != "" {
			cfg.NotificationStore = StoreBackendPostgres
		} else {
			cfg.NotificationStore = StoreBackendRedis
		}
	default:
		log.Printf("Warning: unsupported NOTIFICATION_STORE=%q, defaulting to redis", cfg.NotificationStore)
		cfg.NotificationStore = StoreBackendRedis
	}
	if cfg.NotificationStore == StoreBackendPostgres && cfg.DatabaseURL == "" {
		log.Println("Warning: NOTIFICATION_STORE=postgres without DATABASE_URL, falling back to redis")
		cfg.NotificationStore = StoreBackendRedis
	}

	cfg.StockCacheTTLSecs = positiveInt("STOCK_CACHE_TTL_SECS", 300)

	cfg.CORSAllowedOrigins = parseList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"http://localhost:5174"}
	}

	cfg.SweepCron = strings.TrimSpace(os.Getenv("SWEEP_CRON"))
	if cfg.SweepCron == "" {
		cfg.SweepCron = defaultSweepCron
	}
	if _, err := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor).Parse(cfg.SweepCron); err != nil {
		log.Printf("Warning: invalid SWEEP_CRON=%q (%v), defaulting to %q", cfg.SweepCron, err, defaultSweepCron)
		cfg.SweepCron = defaultSweepCron
	}

	cfg.SweepLookbackDays = positiveInt("SWEEP_LOOKBACK_DAYS", 120)
	cfg.SweepConcurrency = positiveInt("SWEEP_CONCURRENCY", 4)
	cfg.SweepRunOnStart = strings.EqualFold(strings.TrimSpace(os.Getenv("SWEEP_RUN_ON_START")), "true")

	cfg.BacktestStartingCash = 10000
	if v := strings.TrimSpace(os.Getenv("BACKTEST_STARTING_CASH")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.BacktestStartingCash = n
		}
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if v := strings.TrimSpace(os.Getenv("TELEGRAM_ALERT_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramAlertChatID = n
		} else {
			log.Printf("Warning: invalid TELEGRAM_ALERT_CHAT_ID=%q", v)
		}
	}

	cfg.MCPTransport = strings.ToLower(strings.TrimSpace(os.Getenv("MCP_TRANSPORT")))
	if cfg.MCPTransport == "" {
		cfg.MCPTransport = "stdio"
	}
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Printf("Warning: unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	cfg.MCPHTTPEnabled = strings.EqualFold(strings.TrimSpace(os.Getenv("MCP_HTTP_ENABLED")), "true")

	cfg.MCPHTTPBind = strings.TrimSpace(os.Getenv("MCP_HTTP_BIND"))
	if cfg.MCPHTTPBind == "" {
		cfg.MCPHTTPBind = "127.0.0.1"
	}

	cfg.MCPHTTPPort = positiveInt("MCP_HTTP_PORT", 8090)
	cfg.MCPRequestTimeoutSecs = positiveInt("MCP_REQUEST_TIMEOUT_SECS", 5)
	cfg.MCPRateLimitPerMin = positiveInt("MCP_RATE_LIMIT_PER_MIN", 60)

	return cfg
}

func positiveInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func parseList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
