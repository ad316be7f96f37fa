package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"stock-analysis/internal/domain"
	"stock-analysis/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

const (
	DefaultFMPBaseURL = "https://financialmodelingprep.com/api/v3"
	maxResponseBytes  = 16 << 20
)

// ErrUpstreamUnavailable wraps every fetch failure: timeouts, non-2xx
// statuses, malformed or empty payloads.
var ErrUpstreamUnavailable = errors.New("market data provider unavailable")

// HTTPClient is satisfied by *http.Client and by test doubles.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type FMPConfig struct {
	BaseURL    string
	APIKey     string
	RatePerSec float64
}

// FMPProvider reads daily history from the Financial Modeling Prep API.
type FMPProvider struct {
	tracer  trace.Tracer
	client  HTTPClient
	baseURL string
	apiKey  string
	limiter *rate.Limiter
}

func NewFMPProvider(tracer trace.Tracer, client HTTPClient, cfg FMPConfig) *FMPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultFMPBaseURL
	}
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
		burst = max(1, int(cfg.RatePerSec))
	}
	return &FMPProvider{
		tracer:  tracer,
		client:  client,
		baseURL: baseURL,
		apiKey:  cfg.APIKey,
		limiter: rate.NewLimiter(limit, burst),
	}
}

type fmpHistoricalResponse struct {
	Symbol     string          `json:"symbol"`
	Historical []fmpHistorical `json:"historical"`
}

type fmpHistorical struct {
	Date   domain.Date `json:"date"`
	Open   float64     `json:"open"`
	High   float64     `json:"high"`
	Low    float64     `json:"low"`
	Close  float64     `json:"close"`
	Volume float64     `json:"volume"`
}

// FetchHistorical returns daily bars ascending by date. Nil from/to leave the
// range to the provider's default. Both bounds are inclusive.
func (p *FMPProvider) FetchHistorical(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.PriceBar, error) {
	ctx, span := p.tracer.Start(ctx, "fmp-provider.fetch-historical")
	defer span.End()
	span.SetAttributes(attribute.String("symbol", symbol))

	bars, outcome, err := p.fetch(ctx, symbol, from, to)
	metrics.RecordProviderRequest(outcome)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return nil, err
	}
	span.SetAttributes(attribute.Int("bars", len(bars)))
	return bars, nil
}

func (p *FMPProvider) fetch(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.PriceBar, string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, "rate_limited", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.historicalURL(symbol, from, to), nil)
	if err != nil {
		return nil, "request_error", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, "transport_error", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "bad_status", fmt.Errorf("%w: status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "read_error", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil, "empty_body", fmt.Errorf("%w: empty response body", ErrUpstreamUnavailable)
	}

	var payload fmpHistoricalResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, "malformed", fmt.Errorf("%w: decode: %v", ErrUpstreamUnavailable, err)
	}

	return toBars(payload.Historical), "ok", nil
}

func (p *FMPProvider) historicalURL(symbol string, from, to *domain.Date) string {
	q := url.Values{}
	if from != nil && !from.IsZero() {
		q.Set("from", from.String())
	}
	if to != nil && !to.IsZero() {
		q.Set("to", to.String())
	}
	q.Set("apikey", p.apiKey)
	return fmt.Sprintf("%s/historical-price-full/%s?%s", p.baseURL, url.PathEscape(symbol), q.Encode())
}

// toBars sorts ascending and keeps the first row seen for a repeated date.
func toBars(rows []fmpHistorical) []domain.PriceBar {
	seen := make(map[domain.Date]struct{}, len(rows))
	bars := make([]domain.PriceBar, 0, len(rows))
	for _, r := range rows {
		if r.Date.IsZero() {
			continue
		}
		if _, dup := seen[r.Date]; dup {
			continue
		}
		seen[r.Date] = struct{}{}
		bars = append(bars, domain.PriceBar{
			Date:   r.Date,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	return bars
}
