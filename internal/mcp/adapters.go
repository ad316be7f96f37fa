package mcp

import (
	"context"

	"stock-analysis/internal/domain"
	"stock-analysis/internal/service"
)

// StockReader exposes price series, readings and backtests.
type StockReader interface {
	GetStockData(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.MergedRow, error)
	LatestReadings(ctx context.Context, symbol string) (map[string]float64, error)
	RunBacktest(ctx context.Context, symbol string, from, to *domain.Date, rules map[string]domain.TradeRule, startingCash float64) (domain.BacktestResult, error)
}

// NotificationReaderWriter exposes subscription lookup and creation.
type NotificationReaderWriter interface {
	ListByContact(ctx context.Context, contact string) ([]domain.Subscription, error)
	Subscribe(ctx context.Context, req service.SubscribeRequest) (domain.Subscription, error)
}
