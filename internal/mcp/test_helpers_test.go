package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"stock-analysis/internal/domain"
	"stock-analysis/internal/service"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type stubStockService struct {
	rows     []domain.MergedRow
	readings map[string]float64
	result   domain.BacktestResult

	lastSymbol string
	lastFrom   *domain.Date
	lastTo     *domain.Date
	lastRules  map[string]domain.TradeRule
}

func (s *stubStockService) GetStockData(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.MergedRow, error) {
	s.lastSymbol, s.lastFrom, s.lastTo = symbol, from, to
	return append([]domain.MergedRow(nil), s.rows...), nil
}

func (s *stubStockService) LatestReadings(ctx context.Context, symbol string) (map[string]float64, error) {
	s.lastSymbol = symbol
	return s.readings, nil
}

func (s *stubStockService) RunBacktest(ctx context.Context, symbol string, from, to *domain.Date, rules map[string]domain.TradeRule, startingCash float64) (domain.BacktestResult, error) {
	s.lastSymbol, s.lastFrom, s.lastTo = symbol, from, to
	s.lastRules = rules
	return s.result, nil
}

type stubNotificationService struct {
	subs        []domain.Subscription
	lastContact string
	lastRequest service.SubscribeRequest
}

func (s *stubNotificationService) ListByContact(ctx context.Context, contact string) ([]domain.Subscription, error) {
	s.lastContact = contact
	return append([]domain.Subscription(nil), s.subs...), nil
}

func (s *stubNotificationService) Subscribe(ctx context.Context, req service.SubscribeRequest) (domain.Subscription, error) {
	s.lastRequest = req
	if req.Threshold == nil {
		return domain.Subscription{}, service.ErrValidation
	}
	return domain.Subscription{
		ID:        "sub-1",
		Email:     req.Email,
		Symbol:    req.StockSymbol,
		Indicator: req.Indicator,
		Threshold: *req.Threshold,
		Condition: domain.Condition(req.Condition),
		CreatedAt: time.Unix(0, 0).UTC(),
	}, nil
}

func testServer() (*sdkmcp.Server, *stubStockService, *stubNotificationService) {
	rsi := 61.2
	stocks := &stubStockService{
		rows: []domain.MergedRow{
			{Date: domain.NewDate(2024, 1, 2), Open: 1, High: 2, Low: 1, Close: 2, Volume: 3},
			{Date: domain.NewDate(2024, 1, 3), Open: 2, High: 3, Low: 2, Close: 3, Volume: 4, RSI: &rsi},
		},
		readings: map[string]float64{domain.IndicatorPrice: 3, domain.IndicatorRSI: rsi},
		result: domain.BacktestResult{
			StartingCash: 10000, EndingCash: 10070, FinalValue: 10070, Profit: 70,
			Signals: []domain.TradeSignal{
				{Type: domain.SignalBuy, Indicator: domain.IndicatorRSI, Date: domain.NewDate(2024, 1, 2), Price: 100, Shares: 1},
				{Type: domain.SignalSell, Indicator: domain.IndicatorRSI, Date: domain.NewDate(2024, 1, 3), Price: 170, Shares: 1},
			},
		},
	}
	notifications := &stubNotificationService{
		subs: []domain.Subscription{{
			ID: "abc", Email: "a@b.co", Symbol: "AAPL", Indicator: domain.IndicatorRSI,
			Threshold: 70, Condition: domain.ConditionAbove, CreatedAt: time.Unix(0, 0).UTC(),
		}},
	}

	srv := NewServer(nil, stocks, notifications, ServerConfig{RequestTimeout: time.Second})
	return srv, stocks, notifications
}

func connectInMemory(ctx context.Context, srv *sdkmcp.Server) (*sdkmcp.ClientSession, context.CancelFunc, error) {
	clientTransport, serverTransport := sdkmcp.NewInMemoryTransports()
	runCtx, cancel := context.WithCancel(ctx)
	go func() { _ = srv.Run(runCtx, serverTransport) }()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "mcp-test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return session, cancel, nil
}

type authRoundTripper struct {
	token string
	base  http.RoundTripper
}

func (t *authRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "Bearer "+t.token)
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

func decodeResourceJSON(result *sdkmcp.ReadResourceResult, out any) error {
	if len(result.Contents) == 0 {
		return nil
	}
	return json.Unmarshal([]byte(result.Contents[0].Text), out)
}
