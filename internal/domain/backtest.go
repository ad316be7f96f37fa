package domain

import (
	"fmt"
	"strings"
)

type Comparison string

const (
	ComparisonLess    Comparison = "<"
	ComparisonGreater Comparison = ">"
)

func (c Comparison) IsValid() bool {
	return c == ComparisonLess || c == ComparisonGreater
}

// Holds reports whether value compares strictly against threshold.
func (c Comparison) Holds(value, threshold float64) bool {
	switch c {
	case ComparisonLess:
		return value < threshold
	case ComparisonGreater:
		return value > threshold
	default:
		return false
	}
}

type AmountUnit string

const (
	AmountShares   AmountUnit = "shares"
	AmountCurrency AmountUnit = "currency"
)

// ParseAmountUnit accepts "dollars" as an alias for currency.
func ParseAmountUnit(raw string) (AmountUnit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "shares":
		return AmountShares, nil
	case "currency", "dollars":
		return AmountCurrency, nil
	default:
		return "", fmt.Errorf("unsupported trade amount unit: %s", raw)
	}
}

// TradeRule is one indicator's buy/sell parameters in a backtest.
type TradeRule struct {
	BuyThreshold    float64    `json:"buyThreshold"`
	BuyComparison   Comparison `json:"buyComparison"`
	SellThreshold   float64    `json:"sellThreshold"`
	SellComparison  Comparison `json:"sellComparison"`
	TradeAmount     float64    `json:"tradeAmount"`
	TradeAmountUnit AmountUnit `json:"tradeAmountUnit"`
}

func (r TradeRule) Validate() error {
	if !r.BuyComparison.IsValid() {
		return fmt.Errorf("buyComparison must be < or >")
	}
	if !r.SellComparison.IsValid() {
		return fmt.Errorf("sellComparison must be < or >")
	}
	if r.TradeAmount <= 0 {
		return fmt.Errorf("tradeAmount must be positive")
	}
	if r.TradeAmountUnit != AmountShares && r.TradeAmountUnit != AmountCurrency {
		return fmt.Errorf("tradeAmountUnit must be shares or currency")
	}
	return nil
}

type SignalType string

const (
	SignalBuy  SignalType = "Buy"
	SignalSell SignalType = "Sell"
)

// TradeSignal is derived per simulation run and never persisted.
type TradeSignal struct {
	Type      SignalType `json:"type"`
	Indicator string     `json:"indicator"`
	Date      Date       `json:"date"`
	Price     float64    `json:"price"`
	Shares    float64    `json:"shares"`
}

type BacktestResult struct {
	StartingCash float64       `json:"startingCash"`
	EndingCash   float64       `json:"endingCash"`
	EndingShares float64       `json:"endingShares"`
	FinalValue   float64       `json:"finalValue"`
	Profit       float64       `json:"profit"`
	Signals      []TradeSignal `json:"signals"`
}
