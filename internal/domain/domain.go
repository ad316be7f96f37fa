package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	IndicatorPrice = "Price"
	IndicatorRSI   = "RSI"
	IndicatorMACD  = "MACD"
	IndicatorSMA   = "SMA"
)

// SupportedIndicators lists the readings a subscription or trade rule can watch.
var SupportedIndicators = []string{IndicatorPrice, IndicatorRSI, IndicatorMACD, IndicatorSMA}

var tickerPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-]{0,9}$`)

// NormalizeSymbol upper-cases a ticker and rejects anything outside 1-10
// alphanumerics, dots or hyphens (BRK.A, BF-B).
func NormalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", fmt.Errorf("symbol is required")
	}
	if !tickerPattern.MatchString(symbol) {
		return "", fmt.Errorf("invalid symbol: %q", symbol)
	}
	return symbol, nil
}

// NormalizeIndicator maps case-insensitive input onto a supported indicator name.
func NormalizeIndicator(indicator string) (string, error) {
	trimmed := strings.TrimSpace(indicator)
	for _, supported := range SupportedIndicators {
		if strings.EqualFold(trimmed, supported) {
			return supported, nil
		}
	}
	return "", fmt.Errorf("unsupported indicator: %s", indicator)
}

type Condition string

const (
	ConditionAbove Condition = "Above"
	ConditionBelow Condition = "Below"
)

func (c Condition) IsValid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Subscription asks for a notification when an indicator reading for a symbol
// crosses a threshold. Identity is the generated ID; duplicates are allowed.
type Subscription struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Symbol    string    `json:"stockSymbol"`
	Indicator string    `json:"indicator"`
	Threshold float64   `json:"threshold"`
	Condition Condition `json:"condition"`
	CreatedAt time.Time `json:"createdAt"`
}

// ContactKey is the email when present, otherwise the phone number.
func (s Subscription) ContactKey() string {
	if s.Email != "" {
		return s.Email
	}
	return s.Phone
}
