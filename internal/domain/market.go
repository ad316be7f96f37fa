package domain

// PriceBar is one trading day of OHLCV data for a symbol.
type PriceBar struct {
	Date   Date    `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type IndicatorPoint struct {
	Date  Date    `json:"date"`
	Value float64 `json:"value"`
}

type MACDPoint struct {
	Date      Date    `json:"date"`
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// IndicatorSet holds every indicator series computed for one bar sequence.
type IndicatorSet struct {
	MACD []MACDPoint      `json:"macd"`
	RSI  []IndicatorPoint `json:"rsi"`
	SMA  []IndicatorPoint `json:"sma"`
}

// MergedRow is a price bar plus the indicator values defined on its date.
// Absent indicators are nil and omitted from JSON.
type MergedRow struct {
	Date          Date     `json:"date"`
	Open          float64  `json:"open"`
	High          float64  `json:"high"`
	Low           float64  `json:"low"`
	Close         float64  `json:"close"`
	Volume        float64  `json:"volume"`
	MACD          *float64 `json:"macd,omitempty"`
	MACDSignal    *float64 `json:"macdSignal,omitempty"`
	MACDHistogram *float64 `json:"macdHistogram,omitempty"`
	RSI           *float64 `json:"rsi,omitempty"`
	SMA           *float64 `json:"sma,omitempty"`
}

// Bar returns the price portion of the row.
func (r MergedRow) Bar() PriceBar {
	return PriceBar{Date: r.Date, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume}
}

// Reading returns the row's value for an indicator; Price reads the close.
func (r MergedRow) Reading(indicator string) (float64, bool) {
	var v *float64
	switch indicator {
	case IndicatorPrice:
		return r.Close, true
	case IndicatorRSI:
		v = r.RSI
	case IndicatorMACD:
		v = r.MACD
	case IndicatorSMA:
		v = r.SMA
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}
