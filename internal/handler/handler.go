package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"stock-analysis/internal/domain"
	"stock-analysis/internal/service"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type StockAPI interface {
	GetStockData(ctx context.Context, symbol string, from, to *domain.Date) ([]domain.MergedRow, error)
	RunBacktest(ctx context.Context, symbol string, from, to *domain.Date, rules map[string]domain.TradeRule, startingCash float64) (domain.BacktestResult, error)
}

type NotificationAPI interface {
	Subscribe(ctx context.Context, req service.SubscribeRequest) (domain.Subscription, error)
	ListByContact(ctx context.Context, contact string) ([]domain.Subscription, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Subscription, error)
	ListByPhone(ctx context.Context, phone string) ([]domain.Subscription, error)
	ListBySymbol(ctx context.Context, symbol string) ([]domain.Subscription, error)
	Get(ctx context.Context, id string) (domain.Subscription, error)
	Delete(ctx context.Context, id string) error
}

type Handler struct {
	tracer              trace.Tracer
	stockService        StockAPI
	notificationService NotificationAPI
}

func New(tracer trace.Tracer, stockService StockAPI, notificationService NotificationAPI) *Handler {
	return &Handler{
		tracer:              tracer,
		stockService:        stockService,
		notificationService: notificationService,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/stock/:symbol", h.GetStock)
	r.POST("/backtest/:symbol", h.RunBacktest)

	r.POST("/notifications", h.CreateNotification)
	r.GET("/notifications/:contact", h.ListNotificationsByContact)
	r.GET("/notifications/email/:email", h.ListNotificationsByEmail)
	r.GET("/notifications/phone/:phone", h.ListNotificationsByPhone)
	r.GET("/notifications/symbol/:symbol", h.ListNotificationsBySymbol)
	r.GET("/notifications/id/:id", h.GetNotification)
	r.DELETE("/notifications/:id", h.DeleteNotification)
}

// Health godoc
// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// parseDateRange reads optional from/to query parameters (YYYY-MM-DD).
func parseDateRange(c *gin.Context) (from, to *domain.Date, err error) {
	parse := func(key string) (*domain.Date, error) {
		raw := strings.TrimSpace(c.Query(key))
		if raw == "" {
			return nil, nil
		}
		d, err := domain.ParseDate(raw)
		if err != nil {
			return nil, errors.New(key + " must be a date in YYYY-MM-DD format")
		}
		return &d, nil
	}
	if from, err = parse("from"); err != nil {
		return nil, nil, err
	}
	if to, err = parse("to"); err != nil {
		return nil, nil, err
	}
	if from != nil && to != nil && from.After(*to) {
		return nil, nil, errors.New("from must not be after to")
	}
	return from, to, nil
}
