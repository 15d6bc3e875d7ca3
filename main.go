package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/controllers"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/database"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/models"
	aws_pkg "github.com/CyberAli-eng/LaCleoOmnia-auto/pkg/aws"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/providers"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/repository"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/routes"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := database.ConnectPostgres(logger,
		&models.Checkout{}, &models.Order{}, &models.Customer{},
	)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Optional SNS eventing (disabled when AWS config or topic is absent)
	var snsClient aws_pkg.SNSPublisher
	if cfg.LifecycleSNSTopicARN != "" {
		awsCfg, awsErr := aws_pkg.LoadAWSConfig(context.Background())
		if awsErr != nil {
			logger.Warn("AWS config unavailable, SNS disabled", zap.Error(awsErr))
		} else {
			snsClient = aws_pkg.NewSNSClient(awsCfg)
		}
	}

	// DI chain
	checkoutRepo := repository.NewGormCheckoutRepository(db)
	orderRepo := repository.NewGormOrderRepository(db)
	customerRepo := repository.NewGormCustomerRepository(db)

	campaignProvider := providers.NewSnovProvider(providers.SnovConfig{
		ClientID:     cfg.SnovClientID,
		ClientSecret: cfg.SnovClientSecret,
		Mock:         cfg.MockSnov,
	}, logger)

	lifecycle := services.NewLifecycleService(
		checkoutRepo, orderRepo, customerRepo,
		campaignProvider,
		services.CampaignLists{
			Abandoned: cfg.SnovListAbandoned,
			Upsell:    cfg.SnovListUpsell,
			Welcome:   cfg.SnovListWelcome,
		},
		snsClient,
		cfg.LifecycleSNSTopicARN,
		logger,
	)

	scanner := services.NewAbandonedCartScanner(
		lifecycle, checkoutRepo,
		cfg.AbandonedThresholdMinutes, cfg.ScanSchedule,
		logger,
	)
	if err := scanner.Start(); err != nil {
		logger.Fatal("Failed to start abandoned cart scanner", zap.Error(err))
	}

	webhookController := controllers.NewWebhookController(lifecycle, logger)
	adminController := controllers.NewAdminController(
		checkoutRepo, orderRepo, customerRepo, scanner, logger,
	)

	r := gin.New()
	r.Use(gin.Recovery())

	// Global request-logging middleware
	r.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})

	// 30-second request timeout
	r.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "recovery-service"})
	})

	routes.RegisterWebhookRoutes(r, webhookController, cfg.WebhookSecret, logger)
	routes.RegisterAdminRoutes(r, adminController)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	logger.Info("Recovery service started",
		zap.String("port", cfg.Port),
		zap.Bool("mock_snov", cfg.MockSnov),
	)
	<-quit
	logger.Info("Shutting down recovery service...")

	scanner.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exited cleanly")
}
