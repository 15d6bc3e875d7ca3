package routes

import (
	"github.com/CyberAli-eng/LaCleoOmnia-auto/controllers"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RegisterWebhookRoutes sets up the signed storefront webhook endpoints.
func RegisterWebhookRoutes(r *gin.Engine, wc *controllers.WebhookController, webhookSecret string, logger *zap.Logger) {
	webhooks := r.Group("/webhook")
	webhooks.Use(middleware.VerifyWebhookHMAC(webhookSecret, logger))

	webhooks.POST("/checkout", wc.HandleCheckout)
	webhooks.POST("/order", wc.HandleOrder)
	webhooks.POST("/customer", wc.HandleCustomer)
}

// RegisterAdminRoutes sets up the operational endpoints.
func RegisterAdminRoutes(r *gin.Engine, ac *controllers.AdminController) {
	admin := r.Group("/admin")

	admin.GET("/checkouts", ac.ListCheckouts)
	admin.GET("/orders", ac.ListOrders)
	admin.GET("/customers", ac.ListCustomers)
	admin.DELETE("/reset", ac.Reset)
	admin.POST("/requeue", ac.RequeueAbandoned)
	admin.POST("/scan", ac.RunScan)
}
