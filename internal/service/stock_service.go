package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"stock-analysis/internal/backtest"
	"stock-analysis/internal/domain"
	"stock-analysis/internal/indicator"
	"stock-analysis/internal/metrics"
	"stock-analysis/internal/series"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultStockCacheTTL = 5 * time.Minute
	defaultLookbackDays  = 120
)

type PriceFetcher interface {
	FetchHistorical(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.PriceBar, error)
}

type StockServiceConfig struct {
	CacheTTL     time.Duration
	LookbackDays int
	StartingCash float64
}

type StockService struct {
	tracer       trace.Tracer
	fetcher      PriceFetcher
	cache        *redis.Client
	cacheTTL     time.Duration
	lookbackDays int
	startingCash float64
	now          func() time.Time
}

func NewStockService(tracer trace.Tracer, fetcher PriceFetcher, cacheClient *redis.Client, cfg StockServiceConfig) *StockService {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultStockCacheTTL
	}
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = defaultLookbackDays
	}
	cash := cfg.StartingCash
	if cash <= 0 {
		cash = backtest.DefaultStartingCash
	}
	return &StockService{
		tracer:       tracer,
		fetcher:      fetcher,
		cache:        cacheClient,
		cacheTTL:     ttl,
		lookbackDays: lookback,
		startingCash: cash,
		now:          time.Now,
	}
}

// GetStockData returns one merged row per trading day in [from, to]. Provider
// failures come back as an empty slice; only invalid input is an error.
func (s *StockService) GetStockData(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.MergedRow, error) {
	ctx, span := s.tracer.Start(ctx, "stock-service.get-stock-data")
	defer span.End()

	symbol, err := domain.NormalizeSymbol(symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, validationError("from %s is after to %s", from, to)
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	key := stockCacheKey(symbol, from, to)
	if rows, ok := s.readCache(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		return rows, nil
	}

	bars := s.fetchBars(ctx, symbol, from, to)
	rows := series.Merge(bars, indicator.Compute(bars))
	if len(rows) > 0 {
		s.writeCache(ctx, key, rows)
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return rows, nil
}

// LatestReadings returns the indicator values defined on the most recent bar
// inside the lookback window. An empty map means no reading is available.
func (s *StockService) LatestReadings(ctx context.Context, symbol string) (map[string]float64, error) {
	ctx, span := s.tracer.Start(ctx, "stock-service.latest-readings")
	defer span.End()

	to := domain.DateOf(s.now().UTC())
	from := to.AddDays(-s.lookbackDays)
	rows, err := s.GetStockData(ctx, symbol, &from, &to)
	if err != nil {
		return nil, err
	}
	return series.LatestReadings(rows), nil
}

func (s *StockService) RunBacktest(
	ctx context.Context,
	symbol string,
	from, to *domain.Date,
	rules map[string]domain.TradeRule,
	startingCash float64,
) (domain.BacktestResult, error) {
	ctx, span := s.tracer.Start(ctx, "stock-service.run-backtest")
	defer span.End()

	rows, err := s.GetStockData(ctx, symbol, from, to)
	if err != nil {
		metrics.RecordBacktest("invalid")
		return domain.BacktestResult{}, err
	}
	if startingCash <= 0 {
		startingCash = s.startingCash
	}

	result, err := backtest.Run(rows, rules, startingCash)
	if err != nil {
		metrics.RecordBacktest("invalid")
		return domain.BacktestResult{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	metrics.RecordBacktest("ok")
	span.SetAttributes(attribute.Int("signals", len(result.Signals)), attribute.Float64("profit", result.Profit))
	return result, nil
}

func (s *StockService) fetchBars(ctx context.Context, symbol string, from, to *domain.Date) []domain.PriceBar {
	if s.fetcher == nil {
		return []domain.PriceBar{}
	}
	bars, err := s.fetcher.FetchHistorical(ctx, symbol, from, to)
	if err != nil {
		log.Printf("price fetch for %s failed, serving empty series: %v", symbol, err)
		return []domain.PriceBar{}
	}
	return bars
}

func (s *StockService) readCache(ctx context.Context, key string) ([]domain.MergedRow, bool) {
	if s.cache == nil {
		return nil, false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("stock cache read %s: %v", key, err)
		}
		metrics.RecordCacheLookup(false)
		return nil, false
	}
	var rows []domain.MergedRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		log.Printf("stock cache decode %s: %v", key, err)
		metrics.RecordCacheLookup(false)
		return nil, false
	}
	metrics.RecordCacheLookup(true)
	return rows, true
}

func (s *StockService) writeCache(ctx context.Context, key string, rows []domain.MergedRow) {
	if s.cache == nil {
		return
	}
	body, err := json.Marshal(rows)
	if err != nil {
		log.Printf("stock cache encode %s: %v", key, err)
		return
	}
	if err := s.cache.Set(ctx, key, body, s.cacheTTL).Err(); err != nil {
		log.Printf("stock cache write %s: %v", key, err)
	}
}

func stockCacheKey(symbol string, from, to *domain.Date) string {
	var f, t string
	if from != nil {
		f = from.String()
	}
	if to != nil {
		t = to.String()
	}
	return fmt.Sprintf("stock:%s:%s:%s", symbol, f, t)
}
