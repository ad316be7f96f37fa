package handler

import (
	"fmt"
	"net/http"

	"stock-analysis/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type BacktestRuleRequest struct {
	BuyThreshold    float64 `json:"buyThreshold"`
	BuyComparison   string  `json:"buyComparison" example:"<"`
	SellThreshold   float64 `json:"sellThreshold"`
	SellComparison  string  `json:"sellComparison" example:">"`
	TradeAmount     float64 `json:"tradeAmount"`
	TradeAmountUnit string  `json:"tradeAmountUnit" example:"shares"`
}

// BacktestRequest keys rules by indicator name (Price, RSI, MACD, SMA).
type BacktestRequest struct {
	StartingCash float64                        `json:"startingCash"`
	Rules        map[string]BacktestRuleRequest `json:"rules" binding:"required"`
}

func (r BacktestRuleRequest) toRule() (domain.TradeRule, error) {
	unit, err := domain.ParseAmountUnit(r.TradeAmountUnit)
	if err != nil {
		return domain.TradeRule{}, err
	}
	return domain.TradeRule{
		BuyThreshold:    r.BuyThreshold,
		BuyComparison:   domain.Comparison(r.BuyComparison),
		SellThreshold:   r.SellThreshold,
		SellComparison:  domain.Comparison(r.SellComparison),
		TradeAmount:     r.TradeAmount,
		TradeAmountUnit: unit,
	}, nil
}

// RunBacktest godoc
// @Summary      Backtest indicator trade rules
// @Description  Replays buy/sell rules over the symbol's daily history and reports the resulting profit.
// @Tags         backtest
// @Accept       json
// @Produce      json
// @Param        symbol  path   string           true   "Ticker"
// @Param        from    query  string           false  "Start date (YYYY-MM-DD)"
// @Param        to      query  string           false  "End date (YYYY-MM-DD)"
// @Param        body    body   BacktestRequest  true   "Trade rules"
// @Success      200  {object}  domain.BacktestResult
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /backtest/{symbol} [post]
func (h *Handler) RunBacktest(c *gin.Context) {
	if h.stockService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stock service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-backtest")
	defer span.End()

	symbol, err := domain.NormalizeSymbol(c.Param("symbol"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.String("symbol", symbol))

	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req BacktestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if req.StartingCash < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "startingCash must not be negative"})
		return
	}

	rules := make(map[string]domain.TradeRule, len(req.Rules))
	for name, raw := range req.Rules {
		rule, err := raw.toRule()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("%s rule: %v", name, err)})
			return
		}
		rules[name] = rule
	}

	result, err := h.stockService.RunBacktest(ctx, symbol, from, to, rules, req.StartingCash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
