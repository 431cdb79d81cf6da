package services

import (
	"context"
	"errors"

	"github.com/sokatips/mpesa-backend/internal/models"
	"github.com/sokatips/mpesa-backend/pkg/auditlog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User-input errors, surfaced synchronously to the caller. None of these
// represent a system fault and none are retried by the backend.
var (
	ErrInvalidPhone       = errors.New("phone number must be in format 254XXXXXXXXX")
	ErrAlreadyOwned       = errors.New("prediction already purchased")
	ErrPurchaseInProgress = errors.New("a purchase for this prediction is already in progress")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ErrGatewayInitiation marks a push request that never reached the provider.
// The transaction is already marked failed when this is returned; the caller
// may initiate a fresh purchase attempt.
var ErrGatewayInitiation = errors.New("failed to initiate payment")

// PaymentService covers purchase initiation and callback reconciliation.
type PaymentService interface {
	InitiatePurchase(ctx context.Context, userID, predictionID primitive.ObjectID, phone string) (*models.Transaction, error)
	ProcessCallback(ctx context.Context, callback *models.STKCallback) models.CallbackResponse
	GetUserTransactions(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Transaction, error)
}

// AuthService covers registration and login.
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (string, error)
}

// PredictionService covers content listing and ownership-aware reads.
type PredictionService interface {
	CreatePrediction(ctx context.Context, prediction *models.Prediction) error
	GetPrediction(ctx context.Context, id, userID primitive.ObjectID) (*models.Prediction, bool, error)
	ListPredictions(ctx context.Context, predictionType string, page, limit int) ([]*models.Prediction, error)
	GetUserPurchases(ctx context.Context, userID primitive.ObjectID) ([]*PurchaseSummary, error)
}

// PurchaseSummary is an entitlement joined with its prediction title for
// account pages.
type PurchaseSummary struct {
	Entitlement *models.Entitlement `json:"entitlement"`
	Title       string              `json:"title"`
}

// AuditLog is the append-only forensic record consumed by the payment
// service. Writes are best-effort and must never gate reconciliation.
type AuditLog interface {
	AppendCallback(payload []byte) error
	AppendTransition(t auditlog.Transition) error
}
