package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"stock-analysis/internal/domain"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func registerResources(server *mcp.Server, stocks StockReader, notifications NotificationReaderWriter) {
	server.AddResource(&mcp.Resource{
		URI:         "market://indicators",
		Name:        "indicators",
		Description: "Indicators available to notifications and backtest rules",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		_ = ctx
		return jsonResource(req.Params.URI, indicatorCatalog)
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "stock://{symbol}{?from,to}",
		Name:        "stock-series",
		Description: "Daily rows with indicators for a ticker; optional from/to query params (YYYY-MM-DD)",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if stocks == nil {
			return nil, fmt.Errorf("stock service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "stock" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		symbol, err := domain.NormalizeSymbol(parsed.Host)
		if err != nil {
			return nil, err
		}
		from, to, err := parseDateRange(parsed.Query().Get("from"), parsed.Query().Get("to"))
		if err != nil {
			return nil, err
		}

		rows, err := stocks.GetStockData(ctx, symbol, from, to)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []domain.MergedRow{}
		}
		return jsonResource(req.Params.URI, stockSeriesGetOutput{Symbol: symbol, Rows: rows})
	})

	server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "notifications://contact/{+contact}",
		Name:        "notifications-by-contact",
		Description: "Notification subscriptions for an email address or phone number, raw (a@b.co, +15550100) or percent-encoded",
		MIMEType:    "application/json",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		if notifications == nil {
			return nil, fmt.Errorf("notification service unavailable")
		}

		parsed, err := url.Parse(req.Params.URI)
		if err != nil || parsed.Scheme != "notifications" || parsed.Host != "contact" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		contact := strings.Trim(strings.TrimSpace(parsed.Path), "/")
		if contact == "" {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}

		subs, err := notifications.ListByContact(ctx, contact)
		if err != nil {
			return nil, err
		}
		return jsonResource(req.Params.URI, notificationsListOutput{Subscriptions: subs})
	})
}

func jsonResource(uri string, payload any) (*mcp.ReadResourceResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(body),
		}},
	}, nil
}
