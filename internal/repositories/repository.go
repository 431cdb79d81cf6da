package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/sokatips/mpesa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrDuplicate is returned by Create methods when a uniqueness constraint
// rejects the write. Callers use it to detect concurrent duplicate requests.
var ErrDuplicate = errors.New("duplicate record")

// TransactionRepository defines data operations for purchase transactions.
// Status transitions are compare-and-swap updates filtered on the pending
// status: the boolean result reports whether this caller won the transition.
type TransactionRepository interface {
	Create(ctx context.Context, txn *models.Transaction) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error)
	FindPendingByUserAndPrediction(ctx context.Context, userID, predictionID primitive.ObjectID) (*models.Transaction, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Transaction, error)
	AttachCheckoutRequestID(ctx context.Context, id primitive.ObjectID, merchantRequestID, checkoutRequestID string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, reason string, at time.Time) (bool, error)
	MarkCompleted(ctx context.Context, id primitive.ObjectID, details models.PaymentDetails, at time.Time) (bool, error)
}

// EntitlementRepository defines data operations for access grants.
type EntitlementRepository interface {
	Create(ctx context.Context, ent *models.Entitlement) error
	FindByUserAndPrediction(ctx context.Context, userID, predictionID primitive.ObjectID) (*models.Entitlement, error)
	FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.Entitlement, error)
	MarkSMSSent(ctx context.Context, id primitive.ObjectID) error
}

// PredictionRepository defines data operations for prediction packages.
type PredictionRepository interface {
	Create(ctx context.Context, prediction *models.Prediction) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prediction, error)
	FindAll(ctx context.Context, predictionType string, page, limit int) ([]*models.Prediction, error)
	Count(ctx context.Context) (int64, error)
}

// UserRepository defines data operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}

// NotificationRepository defines data operations for SMS delivery records.
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByMSISDN(ctx context.Context, msisdn string, page, limit int) ([]*models.Notification, error)
}

// TxnRunner executes fn inside a single atomic storage transaction. Every
// repository call made with the context passed to fn joins that transaction;
// an error from fn aborts the whole unit.
type TxnRunner interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
