package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sokatips/mpesa-backend/api/routes"
	"github.com/sokatips/mpesa-backend/internal/config"
	"github.com/sokatips/mpesa-backend/internal/handlers"
	"github.com/sokatips/mpesa-backend/internal/repositories"
	mongorepo "github.com/sokatips/mpesa-backend/internal/repositories/mongodb"
	"github.com/sokatips/mpesa-backend/internal/services"
	"github.com/sokatips/mpesa-backend/pkg/auditlog"
	"github.com/sokatips/mpesa-backend/pkg/mongodb"
	"github.com/sokatips/mpesa-backend/pkg/mpesa"
	"github.com/sokatips/mpesa-backend/pkg/smsgateway"
)

func main() {
	// .env is optional; real deployments set environment variables directly
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	mongoClient, err := mongodb.NewClient(cfg.MongoDB.URI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	db := mongoClient.Database(cfg.MongoDB.Database)

	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelIndex()
	if err := mongorepo.EnsureIndexes(indexCtx, db); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	auditStore, err := auditlog.Open(cfg.Audit.Path)
	if err != nil {
		log.Fatalf("Failed to open audit log: %v", err)
	}
	defer auditStore.Close()

	// Repositories
	var transactionRepo repositories.TransactionRepository = mongorepo.NewTransactionRepository(db)
	var entitlementRepo repositories.EntitlementRepository = mongorepo.NewEntitlementRepository(db)
	var predictionRepo repositories.PredictionRepository = mongorepo.NewPredictionRepository(db)
	var userRepo repositories.UserRepository = mongorepo.NewUserRepository(db)
	var notificationRepo repositories.NotificationRepository = mongorepo.NewNotificationRepository(db)
	runner := mongorepo.NewTxnRunner(mongoClient.Raw())

	// External gateways
	mpesaClient := mpesa.NewClient(
		cfg.Mpesa.BaseURL,
		cfg.Mpesa.ConsumerKey,
		cfg.Mpesa.ConsumerSecret,
		cfg.Mpesa.ShortCode,
		cfg.Mpesa.Passkey,
		cfg.Mpesa.CallbackURL,
		cfg.Mpesa.MockAPI,
	)
	var smsGateway smsgateway.Gateway
	if cfg.SMS.MockSMS {
		smsGateway = smsgateway.NewMockGateway()
	} else {
		smsGateway = smsgateway.NewAfricasTalkingGateway(cfg.SMS.BaseURL, cfg.SMS.Username, cfg.SMS.APIKey, cfg.SMS.SenderID)
	}

	// Services
	paymentService := services.NewPaymentService(
		transactionRepo,
		entitlementRepo,
		predictionRepo,
		userRepo,
		notificationRepo,
		runner,
		mpesaClient,
		smsGateway,
		auditStore,
		cfg.SiteName,
		time.Duration(cfg.Mpesa.PushTimeout)*time.Second,
		time.Duration(cfg.SMS.SendTimeout)*time.Second,
	)
	authService := services.NewAuthService(userRepo, cfg)
	predictionService := services.NewPredictionService(predictionRepo, entitlementRepo)

	// Handlers
	deps := routes.HandlerDependencies{
		AuthHandler:         handlers.NewAuthHandler(authService),
		PaymentHandler:      handlers.NewPaymentHandler(paymentService, auditStore),
		PredictionHandler:   handlers.NewPredictionHandler(predictionService),
		NotificationHandler: handlers.NewNotificationHandler(notificationRepo),
	}

	router := routes.SetupRouter(cfg, deps)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	log.Printf("Server starting on port %s", cfg.Server.Port)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown: ", err)
	}

	log.Println("Server exiting")
}
