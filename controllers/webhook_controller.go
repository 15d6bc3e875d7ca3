package controllers

import (
	"net/http"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/models"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WebhookController handles signed storefront webhooks.
type WebhookController struct {
	lifecycle *services.LifecycleService
	logger    *zap.Logger
}

// NewWebhookController creates a new WebhookController.
func NewWebhookController(lifecycle *services.LifecycleService, logger *zap.Logger) *WebhookController {
	return &WebhookController{lifecycle: lifecycle, logger: logger}
}

// HandleCheckout processes a checkout create/update webhook.
func (wc *WebhookController) HandleCheckout(c *gin.Context) {
	var wh models.CheckoutWebhook
	if err := c.ShouldBindJSON(&wh); err != nil {
		wc.logger.Warn("Invalid checkout webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	checkout, err := wc.lifecycle.RecordCheckout(c.Request.Context(), &wh)
	if err != nil {
		// 500 signals the webhook source to redeliver; the upsert shape
		// makes that safe.
		wc.logger.Error("Checkout webhook failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "checkout_id": checkout.CheckoutID})
}

// HandleOrder processes an order creation webhook.
func (wc *WebhookController) HandleOrder(c *gin.Context) {
	var wh models.OrderWebhook
	if err := c.ShouldBindJSON(&wh); err != nil {
		wc.logger.Warn("Invalid order webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	order, err := wc.lifecycle.RecordOrder(c.Request.Context(), &wh)
	if err != nil {
		wc.logger.Error("Order webhook failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "order_id": order.OrderID})
}

// HandleCustomer processes a customer creation webhook.
func (wc *WebhookController) HandleCustomer(c *gin.Context) {
	var wh models.CustomerWebhook
	if err := c.ShouldBindJSON(&wh); err != nil {
		wc.logger.Warn("Invalid customer webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	customer, err := wc.lifecycle.RecordCustomer(c.Request.Context(), &wh)
	if err != nil {
		wc.logger.Error("Customer webhook failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "customer_id": customer.CustomerID})
}
