package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"stock-analysis/internal/bot"
	"stock-analysis/internal/cache"
	"stock-analysis/internal/config"
	"stock-analysis/internal/db"
	"stock-analysis/internal/notify"
	"stock-analysis/internal/provider"
	"stock-analysis/internal/repository"
	"stock-analysis/internal/service"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultLookbackDays = 120
	defaultConcurrency  = 4
)

var (
	loadEnvFunc         = godotenv.Load
	loadConfigFunc      = config.Load
	initPostgresFunc    = db.InitPostgres
	initRedisFunc       = cache.InitRedis
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
	newPushDispatcherFunc = func(token string, chatID int64) (notify.Dispatcher, error) {
		d, err := bot.NewPushDispatcher(token, chatID)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
)

type options struct {
	contact      string
	dryRun       bool
	lookbackDays int
	concurrency  int
	format       string
}

func main() {
	loadEnvFunc()

	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("parse options: %v", err)
	}
	cfg := loadConfigFunc()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		log.Fatalf("notification check: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	if err := initPostgresFunc(ctx, cfg.DatabaseURL); err != nil {
		log.Printf("Warning: %v", err)
	}
	if err := initRedisFunc(ctx, cfg.RedisURL); err != nil {
		log.Printf("Warning: %v", err)
	}
	defer db.Close()

	tracer := trace.NewNoopTracerProvider().Tracer("notifycheck")

	store, err := newNotificationStoreFunc(ctx, cfg, tracer)
	if err != nil {
		return fmt.Errorf("open notification store: %w", err)
	}
	if store == nil {
		return errors.New("no notification store available: set DATABASE_URL or REDIS_URL")
	}

	stockService := service.NewStockService(tracer, withPriceArchive(ctx, tracer, newPriceFetcherFunc(tracer, cfg)), cache.Client, service.StockServiceConfig{
		CacheTTL:     time.Duration(cfg.StockCacheTTLSecs) * time.Second,
		LookbackDays: opts.lookbackDays,
	})

	dispatchers := notify.MultiDispatcher{notify.NewLogDispatcher(nil)}
	if !opts.dryRun && cfg.TelegramBotToken != "" && cfg.TelegramAlertChatID != 0 {
		telegram, err := newPushDispatcherFunc(cfg.TelegramBotToken, cfg.TelegramAlertChatID)
		if err != nil {
			log.Printf("Warning: telegram delivery disabled: %v", err)
		} else {
			dispatchers = append(dispatchers, telegram)
		}
	}

	notifications := service.NewNotificationService(tracer, store, stockService, dispatchers, opts.concurrency)

	log.Printf("starting notification check: contact=%q dry_run=%t lookback_days=%d", opts.contact, opts.dryRun, opts.lookbackDays)

	var report service.SweepReport
	if opts.contact != "" {
		report, err = notifications.SweepContact(ctx, opts.contact)
	} else {
		report, err = notifications.Sweep(ctx)
	}
	if err != nil {
		return err
	}

	renderReport(out, report, opts.format)
	return nil
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	fs := flag.NewFlagSet("notifycheck", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	contact := fs.String("contact", "", "only evaluate subscriptions for this email or phone number")
	dryRun := fs.Bool("dry-run", false, "log triggered notifications instead of delivering them")
	lookback := fs.Int("lookback-days", envInt(getenv, "SWEEP_LOOKBACK_DAYS", defaultLookbackDays), "days of history used to compute the latest readings")
	concurrency := fs.Int("concurrency", envInt(getenv, "SWEEP_CONCURRENCY", defaultConcurrency), "symbols fetched in parallel")
	format := fs.String("format", "table", "output format: table, markdown or csv")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	if *lookback <= 0 {
		return options{}, fmt.Errorf("lookback-days must be > 0")
	}
	if *concurrency <= 0 {
		return options{}, fmt.Errorf("concurrency must be > 0")
	}

	f := strings.ToLower(strings.TrimSpace(*format))
	switch f {
	case "table", "markdown", "csv":
	default:
		return options{}, fmt.Errorf("unsupported format: %s", *format)
	}

	return options{
		contact:      strings.TrimSpace(*contact),
		dryRun:       *dryRun,
		lookbackDays: *lookback,
		concurrency:  *concurrency,
		format:       f,
	}, nil
}

func envInt(getenv func(string) string, key string, fallback int) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func renderReport(w io.Writer, report service.SweepReport, format string) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("NOTIFICATION CHECK %s", report.StartedAt.UTC().Format(time.RFC3339)))
	t.SetStyle(table.StyleRounded)

	t.AppendHeader(table.Row{"ID", "Contact", "Symbol", "Indicator", "Rule", "Reading", "Status", "Reason"})
	for _, res := range report.Results {
		sub := res.Subscription
		reading := "-"
		if res.Reading != nil {
			reading = fmt.Sprintf("%.2f", *res.Reading)
		}
		t.AppendRow(table.Row{
			sub.ID,
			sub.ContactKey(),
			sub.Symbol,
			sub.Indicator,
			fmt.Sprintf("%s %.2f", strings.ToLower(string(sub.Condition)), sub.Threshold),
			reading,
			string(res.Status),
			res.Reason,
		})
	}
	t.AppendFooter(table.Row{
		"Total", len(report.Results), "", "", "", "",
		fmt.Sprintf("triggered=%d quiet=%d skipped=%d failed=%d",
			report.Count(service.SweepTriggered),
			report.Count(service.SweepQuiet),
			report.Count(service.SweepSkipped),
			report.Count(service.SweepFailed),
		),
		"",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 6, Align: text.AlignRight},
		{Number: 8, WidthMax: 40},
	})

	switch format {
	case "markdown":
		t.RenderMarkdown()
	case "csv":
		t.RenderCSV()
	default:
		t.Render()
	}
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
