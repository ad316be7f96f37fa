// Package series joins price bars with their indicator series.
package series

import "stock-analysis/internal/domain"

// Merge left-joins bars to each indicator series by exact date. The result has
// one row per bar in bar order; indicators missing on a date stay nil.
func Merge(bars []domain.PriceBar, set domain.IndicatorSet) []domain.MergedRow {
	macd := make(map[domain.Date]domain.MACDPoint, len(set.MACD))
	for _, p := range set.MACD {
		macd[p.Date] = p
	}
	rsi := indexPoints(set.RSI)
	sma := indexPoints(set.SMA)

	rows := make([]domain.MergedRow, len(bars))
	for i, bar := range bars {
		row := domain.MergedRow{
			Date:   bar.Date,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		}
		if p, ok := macd[bar.Date]; ok {
			row.MACD = ptr(p.MACD)
			row.MACDSignal = ptr(p.Signal)
			row.MACDHistogram = ptr(p.Histogram)
		}
		if v, ok := rsi[bar.Date]; ok {
			row.RSI = ptr(v)
		}
		if v, ok := sma[bar.Date]; ok {
			row.SMA = ptr(v)
		}
		rows[i] = row
	}
	return rows
}

// Strip drops the indicator fields and returns the underlying bars.
func Strip(rows []domain.MergedRow) []domain.PriceBar {
	bars := make([]domain.PriceBar, len(rows))
	for i, row := range rows {
		bars[i] = row.Bar()
	}
	return bars
}

// LatestReadings returns the indicator values defined on the last row.
func LatestReadings(rows []domain.MergedRow) map[string]float64 {
	out := make(map[string]float64, len(domain.SupportedIndicators))
	if len(rows) == 0 {
		return out
	}
	last := rows[len(rows)-1]
	for _, indicator := range domain.SupportedIndicators {
		if v, ok := last.Reading(indicator); ok {
			out[indicator] = v
		}
	}
	return out
}

func indexPoints(points []domain.IndicatorPoint) map[domain.Date]float64 {
	idx := make(map[domain.Date]float64, len(points))
	for _, p := range points {
		idx[p.Date] = p.Value
	}
	return idx
}

func ptr(v float64) *float64 {
	return &v
}
