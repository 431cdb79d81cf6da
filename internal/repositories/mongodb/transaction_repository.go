package mongodb

import (
	"context"
	"time"

	"github.com/sokatips/mpesa-backend/internal/models"
	"github.com/sokatips/mpesa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TransactionRepository implements repositories.TransactionRepository
type TransactionRepository struct {
	collection *mongo.Collection
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *mongo.Database) repositories.TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection("transactions"),
	}
}

// Create inserts a new pending transaction. The partial unique index on
// (userId, predictionId, status=pending) rejects a second concurrent
// pending purchase; that rejection surfaces as ErrDuplicate.
func (r *TransactionRepository) Create(ctx context.Context, txn *models.Transaction) error {
	if txn.ID.IsZero() {
		txn.ID = primitive.NewObjectID()
	}
	txn.CreatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, txn)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByID finds a transaction by internal id
func (r *TransactionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&txn)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindByCheckoutRequestID finds a transaction by its provider tracking reference
func (r *TransactionRepository) FindByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.collection.FindOne(ctx, bson.M{"checkoutRequestId": checkoutRequestID}).Decode(&txn)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindPendingByUserAndPrediction finds the pending transaction for a (user, prediction) pair
func (r *TransactionRepository) FindPendingByUserAndPrediction(ctx context.Context, userID, predictionID primitive.ObjectID) (*models.Transaction, error) {
	filter := bson.M{
		"userId":       userID,
		"predictionId": predictionID,
		"status":       models.TransactionPending,
	}
	var txn models.Transaction
	err := r.collection.FindOne(ctx, filter).Decode(&txn)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// FindByUserID finds a user's most recent transactions
func (r *TransactionRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID, limit int) ([]*models.Transaction, error) {
	opts := options.Find().
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txns []*models.Transaction
	if err := cursor.All(ctx, &txns); err != nil {
		return nil, err
	}
	return txns, nil
}

// AttachCheckoutRequestID stores the provider-assigned tracking reference
// on a pending transaction after a successful push acknowledgment.
func (r *TransactionRepository) AttachCheckoutRequestID(ctx context.Context, id primitive.ObjectID, merchantRequestID, checkoutRequestID string) error {
	filter := bson.M{"_id": id, "status": models.TransactionPending}
	update := bson.M{"$set": bson.M{
		"merchantRequestId": merchantRequestID,
		"checkoutRequestId": checkoutRequestID,
	}}
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}

// MarkFailed transitions a pending transaction to failed. Returns false when
// the transaction was already terminal, in which case nothing was written.
func (r *TransactionRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, reason string, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.TransactionPending}
	update := bson.M{"$set": bson.M{
		"status":        models.TransactionFailed,
		"failureReason": reason,
		"completedAt":   at,
	}}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}

// MarkCompleted transitions a pending transaction to completed, storing the
// settlement details. The status filter makes concurrent duplicate callbacks
// serialize: only one caller matches the pending document.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, id primitive.ObjectID, details models.PaymentDetails, at time.Time) (bool, error) {
	filter := bson.M{"_id": id, "status": models.TransactionPending}
	set := bson.M{
		"status":       models.TransactionCompleted,
		"mpesaReceipt": details.Receipt,
		"paidAmount":   details.Amount,
		"payerPhone":   details.PhoneNumber,
		"completedAt":  at,
	}
	if !details.TransactionDate.IsZero() {
		set["settledAt"] = details.TransactionDate
	}
	update := bson.M{"$set": set}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount == 1, nil
}
