package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sokatips/mpesa-backend/internal/config"
	"github.com/sokatips/mpesa-backend/internal/handlers"
	"github.com/sokatips/mpesa-backend/internal/middleware"
)

// HandlerDependencies collects the handlers the router wires up
type HandlerDependencies struct {
	AuthHandler         *handlers.AuthHandler
	PaymentHandler      *handlers.PaymentHandler
	PredictionHandler   *handlers.PredictionHandler
	NotificationHandler *handlers.NotificationHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{"status": "ok"})
		})

		auth := public.Group("/auth")
		{
			auth.POST("/register", deps.AuthHandler.Register)
			auth.POST("/login", deps.AuthHandler.Login)
		}

		// Provider webhook: system-to-system, authenticated by URL secrecy
		// on the provider side, never by user JWT.
		public.POST("/payments/mpesa/callback", deps.PaymentHandler.MpesaCallback)
	}

	// Protected routes
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		predictions := protected.Group("/predictions")
		{
			predictions.GET("", deps.PredictionHandler.ListPredictions)
			predictions.GET("/:id", deps.PredictionHandler.GetPrediction)
		}

		payments := protected.Group("/payments")
		{
			payments.POST("/initiate", deps.PaymentHandler.InitiatePurchase)
		}

		account := protected.Group("/account")
		{
			account.GET("/purchases", deps.PredictionHandler.GetMyPurchases)
			account.GET("/transactions", deps.PaymentHandler.GetMyTransactions)
		}

		admin := protected.Group("")
		admin.Use(middleware.AdminOnlyMiddleware())
		{
			admin.POST("/predictions", deps.PredictionHandler.CreatePrediction)
			admin.GET("/notifications/msisdn/:msisdn", deps.NotificationHandler.GetNotificationsByMSISDN)
		}
	}

	return router
}
