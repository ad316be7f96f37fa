// Package backtest replays merged price/indicator rows against per-indicator
// buy and sell rules.
//
// Every rule keeps its own Flat/Holding state and its own position, while
// cash is shared. Buys and sells execute at the day's close. A rule whose
// indicator is undefined on a day makes no decision that day.
package backtest

import (
	"fmt"
	"sort"

	"stock-analysis/internal/domain"

	"github.com/shopspring/decimal"
)

const DefaultStartingCash = 10000.0

// shareScale bounds the precision of currency-denominated share purchases.
const shareScale = 8

type ruleState struct {
	indicator string
	rule      domain.TradeRule
	holding   bool
	shares    decimal.Decimal
}

// Run simulates rules over rows (ascending by date). Rules are keyed by
// indicator name; keys are matched case-insensitively.
func Run(rows []domain.MergedRow, rules map[string]domain.TradeRule, startingCash float64) (domain.BacktestResult, error) {
	if startingCash <= 0 {
		return domain.BacktestResult{}, fmt.Errorf("starting cash must be positive")
	}
	states, err := buildStates(rules)
	if err != nil {
		return domain.BacktestResult{}, err
	}

	start := decimal.NewFromFloat(startingCash)
	cash := start
	signals := make([]domain.TradeSignal, 0)

	for _, row := range rows {
		price := decimal.NewFromFloat(row.Close)
		if !price.IsPositive() {
			continue
		}
		for _, st := range states {
			reading, ok := row.Reading(st.indicator)
			if !ok {
				continue
			}

			switch {
			case !st.holding && st.rule.BuyComparison.Holds(reading, st.rule.BuyThreshold):
				shares := sharesFor(st.rule, price)
				cost := shares.Mul(price)
				if !shares.IsPositive() || cost.GreaterThan(cash) {
					continue
				}
				cash = cash.Sub(cost)
				st.holding = true
				st.shares = shares
				signals = append(signals, newSignal(domain.SignalBuy, st.indicator, row, shares))

			case st.holding && st.rule.SellComparison.Holds(reading, st.rule.SellThreshold):
				cash = cash.Add(st.shares.Mul(price))
				signals = append(signals, newSignal(domain.SignalSell, st.indicator, row, st.shares))
				st.holding = false
				st.shares = decimal.Zero
			}
		}
	}

	held := decimal.Zero
	for _, st := range states {
		held = held.Add(st.shares)
	}
	lastClose := decimal.Zero
	if len(rows) > 0 {
		lastClose = decimal.NewFromFloat(rows[len(rows)-1].Close)
	}
	final := cash.Add(held.Mul(lastClose))

	return domain.BacktestResult{
		StartingCash: start.InexactFloat64(),
		EndingCash:   cash.Round(2).InexactFloat64(),
		EndingShares: held.InexactFloat64(),
		FinalValue:   final.Round(2).InexactFloat64(),
		Profit:       final.Sub(start).Round(2).InexactFloat64(),
		Signals:      signals,
	}, nil
}

// buildStates validates rules and orders them by indicator name so that
// same-day signals come out in a stable order.
func buildStates(rules map[string]domain.TradeRule) ([]*ruleState, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("at least one trade rule is required")
	}
	states := make([]*ruleState, 0, len(rules))
	seen := make(map[string]struct{}, len(rules))
	for key, rule := range rules {
		indicator, err := domain.NormalizeIndicator(key)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[indicator]; dup {
			return nil, fmt.Errorf("duplicate rule for indicator %s", indicator)
		}
		seen[indicator] = struct{}{}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("%s rule: %w", indicator, err)
		}
		states = append(states, &ruleState{indicator: indicator, rule: rule, shares: decimal.Zero})
	}
	sort.Slice(states, func(i, j int) bool { return states[i].indicator < states[j].indicator })
	return states, nil
}

func sharesFor(rule domain.TradeRule, price decimal.Decimal) decimal.Decimal {
	amount := decimal.NewFromFloat(rule.TradeAmount)
	if rule.TradeAmountUnit == domain.AmountCurrency {
		return amount.DivRound(price, shareScale)
	}
	return amount
}

func newSignal(kind domain.SignalType, indicator string, row domain.MergedRow, shares decimal.Decimal) domain.TradeSignal {
	return domain.TradeSignal{
		Type:      kind,
		Indicator: indicator,
		Date:      row.Date,
		Price:     row.Close,
		Shares:    shares.InexactFloat64(),
	}
}
