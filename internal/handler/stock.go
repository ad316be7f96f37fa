package handler

import (
	"net/http"

	"stock-analysis/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetStock godoc
// @Summary      Get daily prices with indicators
// @Description  Returns one row per trading day with OHLCV and the MACD, RSI and SMA values defined on that day.
// @Description  An unavailable upstream yields an empty list.
// @Tags         stock
// @Produce      json
// @Param        symbol  path   string  true   "Ticker (e.g., AAPL, BRK.B)"
// @Param        from    query  string  false  "Start date (YYYY-MM-DD)"
// @Param        to      query  string  false  "End date (YYYY-MM-DD)"
// @Success      200  {array}   domain.MergedRow
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /stock/{symbol} [get]
func (h *Handler) GetStock(c *gin.Context) {
	if h.stockService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "stock service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-stock")
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

	rows, err := h.stockService.GetStockData(ctx, symbol, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rows)
}
