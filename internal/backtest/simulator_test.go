package backtest

import (
	"testing"
	"time"

	"stock-analysis/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var d1 = domain.NewDate(2024, time.April, 1)

func closeRows(closes ...float64) []domain.MergedRow {
	rows := make([]domain.MergedRow, len(closes))
	for i, c := range closes {
		rows[i] = domain.MergedRow{Date: d1.AddDays(i), Open: c, High: c, Low: c, Close: c}
	}
	return rows
}

func priceRule() domain.TradeRule {
	return domain.TradeRule{
		BuyThreshold:    99,
		BuyComparison:   domain.ComparisonLess,
		SellThreshold:   104,
		SellComparison:  domain.ComparisonGreater,
		TradeAmount:     10,
		TradeAmountUnit: domain.AmountShares,
	}
}

func TestRun_BuyThenSellProfit(t *testing.T) {
	rows := closeRows(98, 105, 102)

	result, err := Run(rows, map[string]domain.TradeRule{domain.IndicatorPrice: priceRule()}, 10000)
	require.NoError(t, err)

	assert.Equal(t, 70.0, result.Profit)
	assert.Equal(t, 10070.0, result.EndingCash)
	assert.Equal(t, 0.0, result.EndingShares)
	require.Len(t, result.Signals, 2)
	assert.Equal(t, domain.TradeSignal{Type: domain.SignalBuy, Indicator: domain.IndicatorPrice, Date: rows[0].Date, Price: 98, Shares: 10}, result.Signals[0])
	assert.Equal(t, domain.TradeSignal{Type: domain.SignalSell, Indicator: domain.IndicatorPrice, Date: rows[1].Date, Price: 105, Shares: 10}, result.Signals[1])
}

func TestRun_OpenPositionValuedAtLastClose(t *testing.T) {
	rows := closeRows(98, 100, 101)

	result, err := Run(rows, map[string]domain.TradeRule{"price": priceRule()}, 10000)
	require.NoError(t, err)

	assert.Equal(t, 30.0, result.Profit)
	assert.Equal(t, 10.0, result.EndingShares)
	assert.Equal(t, 10030.0, result.FinalValue)
	assert.Len(t, result.Signals, 1)
}

func TestRun_CurrencyAmountConvertsToShares(t *testing.T) {
	rule := priceRule()
	rule.TradeAmount = 490
	rule.TradeAmountUnit = domain.AmountCurrency

	result, err := Run(closeRows(98, 105), map[string]domain.TradeRule{domain.IndicatorPrice: rule}, 10000)
	require.NoError(t, err)

	require.Len(t, result.Signals, 2)
	assert.Equal(t, 5.0, result.Signals[0].Shares)
	assert.Equal(t, 35.0, result.Profit)
}

func TestRun_SkipsBuyWithoutCash(t *testing.T) {
	result, err := Run(closeRows(98, 105), map[string]domain.TradeRule{domain.IndicatorPrice: priceRule()}, 500)
	require.NoError(t, err)

	assert.Empty(t, result.Signals)
	assert.Equal(t, 0.0, result.Profit)
}

func TestRun_MissingIndicatorSkipsDay(t *testing.T) {
	rows := closeRows(98, 105, 102)
	rsi := 25.0
	rows[1].RSI = &rsi

	rule := domain.TradeRule{
		BuyThreshold: 30, BuyComparison: domain.ComparisonLess,
		SellThreshold: 70, SellComparison: domain.ComparisonGreater,
		TradeAmount: 1, TradeAmountUnit: domain.AmountShares,
	}
	result, err := Run(rows, map[string]domain.TradeRule{domain.IndicatorRSI: rule}, 10000)
	require.NoError(t, err)

	require.Len(t, result.Signals, 1)
	assert.Equal(t, rows[1].Date, result.Signals[0].Date)
	assert.Equal(t, -3.0, result.Profit)
}

func TestRun_RulesAreIndependentAndPooled(t *testing.T) {
	rows := closeRows(98, 105, 97, 106)
	for i := range rows {
		sma := 100.0
		rows[i].SMA = &sma
	}
	smaRule := domain.TradeRule{
		BuyThreshold: 101, BuyComparison: domain.ComparisonLess,
		SellThreshold: 1000, SellComparison: domain.ComparisonGreater,
		TradeAmount: 1, TradeAmountUnit: domain.AmountShares,
	}

	result, err := Run(rows, map[string]domain.TradeRule{
		domain.IndicatorPrice: priceRule(),
		domain.IndicatorSMA:   smaRule,
	}, 10000)
	require.NoError(t, err)

	// Price: buy d1, sell d2, buy d3, sell d4. SMA: buy d1 and hold.
	require.Len(t, result.Signals, 5)
	assert.Equal(t, domain.IndicatorPrice, result.Signals[0].Indicator)
	assert.Equal(t, domain.IndicatorSMA, result.Signals[1].Indicator)
	assert.Equal(t, rows[0].Date, result.Signals[1].Date)
	assert.Equal(t, 1.0, result.EndingShares)
	// price rule: (105-98)*10 + (106-97)*10 = 160; sma rule: 106-98 = 8
	assert.Equal(t, 168.0, result.Profit)
}

func TestRun_EmptyRows(t *testing.T) {
	result, err := Run(nil, map[string]domain.TradeRule{domain.IndicatorPrice: priceRule()}, 10000)
	require.NoError(t, err)
	assert.Equal(t, 0.0, result.Profit)
	assert.NotNil(t, result.Signals)
	assert.Empty(t, result.Signals)
}

func TestRun_RejectsInvalidInput(t *testing.T) {
	_, err := Run(closeRows(1), nil, 10000)
	assert.Error(t, err)

	_, err = Run(closeRows(1), map[string]domain.TradeRule{"Volume": priceRule()}, 10000)
	assert.Error(t, err)

	bad := priceRule()
	bad.BuyComparison = ">="
	_, err = Run(closeRows(1), map[string]domain.TradeRule{domain.IndicatorPrice: bad}, 10000)
	assert.Error(t, err)

	_, err = Run(closeRows(1), map[string]domain.TradeRule{"RSI": priceRule(), "rsi": priceRule()}, 10000)
	assert.Error(t, err)

	_, err = Run(closeRows(1), map[string]domain.TradeRule{domain.IndicatorPrice: priceRule()}, 0)
	assert.Error(t, err)
}
