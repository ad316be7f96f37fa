// Package indicator computes MACD, RSI and SMA series from daily price bars.
//
// Every series is keyed by the exact Date of the bar it was computed on and
// only carries points where the indicator is defined. Warm-up bars are left
// out rather than filled with zeros or NaN.
//
// EMAs are seeded with the simple average of their first N inputs, so
// MACD(12,26,9) has its first complete point (line, signal, histogram) on the
// 34th bar.
package indicator

import (
	"math"

	"stock-analysis/internal/domain"
)

const (
	DefaultSMAPeriod  = 14
	DefaultRSIPeriod  = 14
	DefaultMACDFast   = 12
	DefaultMACDSlow   = 26
	DefaultMACDSignal = 9
)

// Compute runs every indicator with its default parameters.
func Compute(bars []domain.PriceBar) domain.IndicatorSet {
	return domain.IndicatorSet{
		MACD: MACD(bars, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal),
		RSI:  RSI(bars, DefaultRSIPeriod),
		SMA:  SMA(bars, DefaultSMAPeriod),
	}
}

func SMA(bars []domain.PriceBar, period int) []domain.IndicatorPoint {
	return toPoints(bars, smaSeries(closes(bars), period))
}

func RSI(bars []domain.PriceBar, period int) []domain.IndicatorPoint {
	return toPoints(bars, rsiSeries(closes(bars), period))
}

// MACD emits a point only once the signal EMA is seeded (index slow+signal-2),
// so every point carries line, signal and histogram together. The line alone
// exists from index slow-1 but is withheld until then, since MACDPoint has no
// way to mark signal and histogram as absent.
func MACD(bars []domain.PriceBar, fast, slow, signal int) []domain.MACDPoint {
	line, sig := macdSeries(closes(bars), fast, slow, signal)
	if line == nil || sig == nil {
		return []domain.MACDPoint{}
	}

	out := make([]domain.MACDPoint, 0, len(bars))
	for i, bar := range bars {
		if !defined(line[i]) || !defined(sig[i]) {
			continue
		}
		out = append(out, domain.MACDPoint{
			Date:      bar.Date,
			MACD:      line[i],
			Signal:    sig[i],
			Histogram: line[i] - sig[i],
		})
	}
	return out
}

func closes(bars []domain.PriceBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

func toPoints(bars []domain.PriceBar, series []float64) []domain.IndicatorPoint {
	out := make([]domain.IndicatorPoint, 0, len(series))
	for i, v := range series {
		if !defined(v) {
			continue
		}
		out = append(out, domain.IndicatorPoint{Date: bars[i].Date, Value: v})
	}
	return out
}

func defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func nanSeries(n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = math.NaN()
	}
	return series
}

func smaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	series := nanSeries(len(values))

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			series[i] = sum / float64(period)
		}
	}
	return series
}

func rsiSeries(closes []float64, period int) []float64 {
	if period <= 0 || len(closes) <= period {
		return nil
	}
	series := nanSeries(len(closes))

	var gainSum float64
	var lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}

	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return math.Min(100, math.Max(0, 100-(100/(1+rs))))
}

// macdSeries returns the MACD line and its signal line, NaN where undefined.
func macdSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)
	if fastEMA == nil || slowEMA == nil {
		return nil, nil
	}

	macdLine := nanSeries(len(values))
	start := -1
	for i := range values {
		if defined(fastEMA[i]) && defined(slowEMA[i]) {
			macdLine[i] = fastEMA[i] - slowEMA[i]
			if start < 0 {
				start = i
			}
		}
	}
	if start < 0 {
		return nil, nil
	}

	signalTail := emaSeries(macdLine[start:], signal)
	if signalTail == nil {
		return nil, nil
	}
	signalLine := nanSeries(len(values))
	copy(signalLine[start:], signalTail)
	return macdLine, signalLine
}

// emaSeries seeds with the SMA of the first period values; earlier slots stay NaN.
func emaSeries(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := nanSeries(len(values))

	var seed float64
	for _, v := range values[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)
	for i := period; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}
