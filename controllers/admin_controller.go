package controllers

import (
	"net/http"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/repository"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const adminListLimit = 50

// AdminController exposes operational endpoints: inspection, full reset and
// requeue of abandoned checkouts. The core tolerates these mutations at any
// time; they are just more upsert-shaped writes.
type AdminController struct {
	checkouts repository.CheckoutRepository
	orders    repository.OrderRepository
	customers repository.CustomerRepository
	scanner   *services.AbandonedCartScanner
	logger    *zap.Logger
}

// NewAdminController creates a new AdminController.
func NewAdminController(
	checkouts repository.CheckoutRepository,
	orders repository.OrderRepository,
	customers repository.CustomerRepository,
	scanner *services.AbandonedCartScanner,
	logger *zap.Logger,
) *AdminController {
	return &AdminController{
		checkouts: checkouts,
		orders:    orders,
		customers: customers,
		scanner:   scanner,
		logger:    logger,
	}
}

// ListCheckouts returns the latest checkouts.
func (ac *AdminController) ListCheckouts(c *gin.Context) {
	checkouts, err := ac.checkouts.FindLatest(c.Request.Context(), adminListLimit)
	if err != nil {
		ac.logger.Error("List checkouts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(checkouts), "checkouts": checkouts})
}

// ListOrders returns the latest orders.
func (ac *AdminController) ListOrders(c *gin.Context) {
	orders, err := ac.orders.FindLatest(c.Request.Context(), adminListLimit)
	if err != nil {
		ac.logger.Error("List orders failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(orders), "orders": orders})
}

// ListCustomers returns the latest customers.
func (ac *AdminController) ListCustomers(c *gin.Context) {
	customers, err := ac.customers.FindLatest(c.Request.Context(), adminListLimit)
	if err != nil {
		ac.logger.Error("List customers failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(customers), "customers": customers})
}

// Reset wipes all three entity tables.
func (ac *AdminController) Reset(c *gin.Context) {
	ctx := c.Request.Context()
	if err := ac.checkouts.DeleteAll(ctx); err != nil {
		ac.logger.Error("Reset checkouts failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if err := ac.orders.DeleteAll(ctx); err != nil {
		ac.logger.Error("Reset orders failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	if err := ac.customers.DeleteAll(ctx); err != nil {
		ac.logger.Error("Reset customers failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ac.logger.Info("All entity tables reset")
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "all data deleted"})
}

// RequeueAbandoned flips abandoned checkouts back to pending so the scanner
// re-processes them. Used after fixing a campaign misconfiguration.
func (ac *AdminController) RequeueAbandoned(c *gin.Context) {
	count, err := ac.checkouts.RequeueAbandoned(c.Request.Context())
	if err != nil {
		ac.logger.Error("Requeue abandoned failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ac.logger.Info("Abandoned checkouts requeued", zap.Int64("count", count))
	c.JSON(http.StatusOK, gin.H{"success": true, "requeued": count})
}

// RunScan triggers a single scanner tick immediately.
func (ac *AdminController) RunScan(c *gin.Context) {
	ac.scanner.RunOnce(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "scan completed"})
}
