package handler

import (
	"context"
	"net/http"

	"stock-analysis/internal/domain"
	"stock-analysis/internal/service"

	"github.com/gin-gonic/gin"
)

// CreateNotification godoc
// @Summary      Subscribe to an indicator notification
// @Description  Stores a subscription that fires when the indicator reading is strictly above or below the threshold.
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Param        body  body      service.SubscribeRequest  true  "Subscription"
// @Success      201   {object}  domain.Subscription
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /notifications [post]
func (h *Handler) CreateNotification(c *gin.Context) {
	if h.notificationService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.create-notification")
	defer span.End()

	var req service.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}

	sub, err := h.notificationService.Subscribe(ctx, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// ListNotificationsByContact godoc
// @Summary      List subscriptions for an email or phone number
// @Tags         notifications
// @Produce      json
// @Param        contact  path  string  true  "Email address or phone number"
// @Success      200  {array}   domain.Subscription
// @Failure      400  {object}  map[string]string
// @Router       /notifications/{contact} [get]
func (h *Handler) ListNotificationsByContact(c *gin.Context) {
	h.listNotifications(c, "handler.list-notifications-by-contact", c.Param("contact"), NotificationAPI.ListByContact)
}

// ListNotificationsByEmail godoc
// @Summary      List subscriptions for an email address
// @Tags         notifications
// @Produce      json
// @Param        email  path  string  true  "Email address"
// @Success      200  {array}   domain.Subscription
// @Router       /notifications/email/{email} [get]
func (h *Handler) ListNotificationsByEmail(c *gin.Context) {
	h.listNotifications(c, "handler.list-notifications-by-email", c.Param("email"), NotificationAPI.ListByEmail)
}

// ListNotificationsByPhone godoc
// @Summary      List subscriptions for a phone number
// @Tags         notifications
// @Produce      json
// @Param        phone  path  string  true  "Phone number"
// @Success      200  {array}   domain.Subscription
// @Router       /notifications/phone/{phone} [get]
func (h *Handler) ListNotificationsByPhone(c *gin.Context) {
	h.listNotifications(c, "handler.list-notifications-by-phone", c.Param("phone"), NotificationAPI.ListByPhone)
}

// ListNotificationsBySymbol godoc
// @Summary      List subscriptions watching a ticker
// @Tags         notifications
// @Produce      json
// @Param        symbol  path  string  true  "Ticker"
// @Success      200  {array}   domain.Subscription
// @Failure      400  {object}  map[string]string
// @Router       /notifications/symbol/{symbol} [get]
func (h *Handler) ListNotificationsBySymbol(c *gin.Context) {
	h.listNotifications(c, "handler.list-notifications-by-symbol", c.Param("symbol"), NotificationAPI.ListBySymbol)
}

// GetNotification godoc
// @Summary      Get a subscription by id
// @Tags         notifications
// @Produce      json
// @Param        id  path  string  true  "Subscription ID"
// @Success      200  {object}  domain.Subscription
// @Failure      404  {object}  map[string]string
// @Router       /notifications/id/{id} [get]
func (h *Handler) GetNotification(c *gin.Context) {
	if h.notificationService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-notification")
	defer span.End()

	sub, err := h.notificationService.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteNotification godoc
// @Summary      Delete a subscription
// @Description  Deleting an unknown id also succeeds.
// @Tags         notifications
// @Param        id  path  string  true  "Subscription ID"
// @Success      204  {string}  string  "No Content"
// @Failure      400  {object}  map[string]string
// @Router       /notifications/{id} [delete]
func (h *Handler) DeleteNotification(c *gin.Context) {
	if h.notificationService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.delete-notification")
	defer span.End()

	if err := h.notificationService.Delete(ctx, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type listFunc func(api NotificationAPI, ctx context.Context, key string) ([]domain.Subscription, error)

func (h *Handler) listNotifications(c *gin.Context, spanName, key string, list listFunc) {
	if h.notificationService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notification service unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), spanName)
	defer span.End()

	subs, err := list(h.notificationService, ctx, key)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, subs)
}
