package mcp

import (
	"context"
	"fmt"

	"stock-analysis/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerTools(server *mcp.Server, stocks StockReader, notifications NotificationReaderWriter) {
	mcp.AddTool(server, &mcp.Tool{
		Name:         "stock_series_get",
		Description:  "Get daily OHLCV rows with MACD, RSI and SMA for a ticker and optional date range",
		OutputSchema: outputSchema[stockSeriesGetOutput](),
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in stockSeriesGetInput) (*mcp.CallToolResult, stockSeriesGetOutput, error) {
		if stocks == nil {
			return nil, stockSeriesGetOutput{}, fmt.Errorf("stock service unavailable")
		}
		symbol, err := domain.NormalizeSymbol(in.Symbol)
		if err != nil {
			return nil, stockSeriesGetOutput{}, err
		}
		from, to, err := parseDateRange(in.From, in.To)
		if err != nil {
			return nil, stockSeriesGetOutput{}, err
		}
		rows, err := stocks.GetStockData(ctx, symbol, from, to)
		if err != nil {
			return nil, stockSeriesGetOutput{}, err
		}
		if rows == nil {
			rows = []domain.MergedRow{}
		}
		return nil, stockSeriesGetOutput{Symbol: symbol, Rows: rows}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "stock_latest_readings",
		Description: "Get the indicator readings defined on the most recent trading day for a ticker",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in stockLatestReadingsInput) (*mcp.CallToolResult, stockLatestReadingsOutput, error) {
		if stocks == nil {
			return nil, stockLatestReadingsOutput{}, fmt.Errorf("stock service unavailable")
		}
		symbol, err := domain.NormalizeSymbol(in.Symbol)
		if err != nil {
			return nil, stockLatestReadingsOutput{}, err
		}
		readings, err := stocks.LatestReadings(ctx, symbol)
		if err != nil {
			return nil, stockLatestReadingsOutput{}, err
		}
		if readings == nil {
			readings = map[string]float64{}
		}
		return nil, stockLatestReadingsOutput{Symbol: symbol, Readings: readings}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:         "backtest_run",
		Description:  "Replay per-indicator buy/sell rules over a ticker's history and report profit and trades",
		OutputSchema: outputSchema[backtestRunOutput](),
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in backtestRunInput) (*mcp.CallToolResult, backtestRunOutput, error) {
		if stocks == nil {
			return nil, backtestRunOutput{}, fmt.Errorf("stock service unavailable")
		}
		symbol, err := domain.NormalizeSymbol(in.Symbol)
		if err != nil {
			return nil, backtestRunOutput{}, err
		}
		from, to, err := parseDateRange(in.From, in.To)
		if err != nil {
			return nil, backtestRunOutput{}, err
		}
		if in.StartingCash < 0 {
			return nil, backtestRunOutput{}, fmt.Errorf("startingCash must not be negative")
		}
		rules, err := toTradeRules(in.Rules)
		if err != nil {
			return nil, backtestRunOutput{}, err
		}
		result, err := stocks.RunBacktest(ctx, symbol, from, to, rules, in.StartingCash)
		if err != nil {
			return nil, backtestRunOutput{}, err
		}
		return nil, backtestRunOutput{Symbol: symbol, Result: result}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "notifications_list",
		Description: "List indicator notification subscriptions for an email address or phone number",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in notificationsListInput) (*mcp.CallToolResult, notificationsListOutput, error) {
		if notifications == nil {
			return nil, notificationsListOutput{}, fmt.Errorf("notification service unavailable")
		}
		subs, err := notifications.ListByContact(ctx, in.Contact)
		if err != nil {
			return nil, notificationsListOutput{}, err
		}
		if subs == nil {
			subs = []domain.Subscription{}
		}
		return nil, notificationsListOutput{Subscriptions: subs}, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "notifications_subscribe",
		Description: "Create a notification that fires when an indicator reading is strictly above or below a threshold",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in notificationsSubscribeInput) (*mcp.CallToolResult, notificationsSubscribeOutput, error) {
		if notifications == nil {
			return nil, notificationsSubscribeOutput{}, fmt.Errorf("notification service unavailable")
		}
		sub, err := notifications.Subscribe(ctx, in.request())
		if err != nil {
			return nil, notificationsSubscribeOutput{}, err
		}
		return nil, notificationsSubscribeOutput{Subscription: sub}, nil
	})
}
