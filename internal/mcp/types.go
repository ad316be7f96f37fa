package mcp

import (
	"fmt"
	"reflect"
	"strings"

	"stock-analysis/internal/domain"
	"stock-analysis/internal/service"

	"github.com/google/jsonschema-go/jsonschema"
)

type stockSeriesGetInput struct {
	Symbol string `json:"symbol" jsonschema:"ticker (e.g. AAPL, BRK.B)"`
	From   string `json:"from,omitempty" jsonschema:"optional start date YYYY-MM-DD"`
	To     string `json:"to,omitempty" jsonschema:"optional end date YYYY-MM-DD"`
}

type stockSeriesGetOutput struct {
	Symbol string             `json:"symbol"`
	Rows   []domain.MergedRow `json:"rows"`
}

type stockLatestReadingsInput struct {
	Symbol string `json:"symbol" jsonschema:"ticker (e.g. AAPL)"`
}

type stockLatestReadingsOutput struct {
	Symbol   string             `json:"symbol"`
	Readings map[string]float64 `json:"readings"`
}

type backtestRuleInput struct {
	BuyThreshold    float64 `json:"buyThreshold"`
	BuyComparison   string  `json:"buyComparison" jsonschema:"< or >"`
	SellThreshold   float64 `json:"sellThreshold"`
	SellComparison  string  `json:"sellComparison" jsonschema:"< or >"`
	TradeAmount     float64 `json:"tradeAmount" jsonschema:"shares or currency amount per buy"`
	TradeAmountUnit string  `json:"tradeAmountUnit,omitempty" jsonschema:"shares (default) or currency"`
}

type backtestRunInput struct {
	Symbol       string                       `json:"symbol" jsonschema:"ticker (e.g. AAPL)"`
	From         string                       `json:"from,omitempty" jsonschema:"optional start date YYYY-MM-DD"`
	To           string                       `json:"to,omitempty" jsonschema:"optional end date YYYY-MM-DD"`
	StartingCash float64                      `json:"startingCash,omitempty" jsonschema:"optional starting cash, defaults to the server setting"`
	Rules        map[string]backtestRuleInput `json:"rules" jsonschema:"rules keyed by indicator: Price, RSI, MACD, SMA"`
}

type backtestRunOutput struct {
	Symbol string                `json:"symbol"`
	Result domain.BacktestResult `json:"result"`
}

type notificationsListInput struct {
	Contact string `json:"contact" jsonschema:"email address or phone number"`
}

type notificationsListOutput struct {
	Subscriptions []domain.Subscription `json:"subscriptions"`
}

type notificationsSubscribeInput struct {
	Email       string   `json:"email,omitempty" jsonschema:"email address; email or phone is required"`
	Phone       string   `json:"phone,omitempty" jsonschema:"phone number; email or phone is required"`
	StockSymbol string   `json:"stockSymbol" jsonschema:"ticker to watch"`
	Indicator   string   `json:"indicator" jsonschema:"Price, RSI, MACD or SMA"`
	Threshold   *float64 `json:"threshold" jsonschema:"threshold the reading is compared against"`
	Condition   string   `json:"condition" jsonschema:"Above or Below"`
}

type notificationsSubscribeOutput struct {
	Subscription domain.Subscription `json:"subscription"`
}

type indicatorInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var indicatorCatalog = []indicatorInfo{
	{Name: domain.IndicatorPrice, Description: "daily close"},
	{Name: domain.IndicatorRSI, Description: "14-period Wilder RSI, 0-100"},
	{Name: domain.IndicatorMACD, Description: "MACD(12,26,9) line"},
	{Name: domain.IndicatorSMA, Description: "14-period simple moving average of close"},
}

var schemaOptions = &jsonschema.ForOptions{
	TypeSchemas: map[reflect.Type]*jsonschema.Schema{
		reflect.TypeFor[domain.Date](): {Type: "string", Format: "date"},
	},
}

// outputSchema infers a tool output schema with dates rendered as strings.
func outputSchema[T any]() *jsonschema.Schema {
	s, err := jsonschema.For[T](schemaOptions)
	if err != nil {
		panic(fmt.Sprintf("output schema for %T: %v", *new(T), err))
	}
	return s
}

func parseDateRange(fromRaw, toRaw string) (from, to *domain.Date, err error) {
	parse := func(label, raw string) (*domain.Date, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, nil
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be YYYY-MM-DD: %s", label, raw)
		}
		return &d, nil
	}
	if from, err = parse("from", fromRaw); err != nil {
		return nil, nil, err
	}
	if to, err = parse("to", toRaw); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, fmt.Errorf("from must not be after to")
	}
	return from, to, nil
}

func toTradeRules(in map[string]backtestRuleInput) (map[string]domain.TradeRule, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("at least one rule is required")
	}
	rules := make(map[string]domain.TradeRule, len(in))
	for name, r := range in {
		unit, err := domain.ParseAmountUnit(r.TradeAmountUnit)
		if err != nil {
			return nil, fmt.Errorf("%s rule: %w", name, err)
		}
		rules[name] = domain.TradeRule{
			BuyThreshold:    r.BuyThreshold,
			BuyComparison:   domain.Comparison(strings.TrimSpace(r.BuyComparison)),
			SellThreshold:   r.SellThreshold,
			SellComparison:  domain.Comparison(strings.TrimSpace(r.SellComparison)),
			TradeAmount:     r.TradeAmount,
			TradeAmountUnit: unit,
		}
	}
	return rules, nil
}

func (in notificationsSubscribeInput) request() service.SubscribeRequest {
	return service.SubscribeRequest{
		Email:       in.Email,
		Phone:       in.Phone,
		StockSymbol: in.StockSymbol,
		Indicator:   in.Indicator,
		Threshold:   in.Threshold,
		Condition:   in.Condition,
	}
}
