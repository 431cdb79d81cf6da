package mongodb

import (
	"context"

	"github.com/sokatips/mpesa-backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes declares the uniqueness constraints the reconciliation core
// relies on. They are part of the data model, not an optimization: one
// pending transaction per (user, prediction), one transaction per tracking
// reference, one entitlement per (user, prediction), ever.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	transactionIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "checkoutRequestId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"checkoutRequestId": bson.M{"$gt": ""}}),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "predictionId", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": models.TransactionPending}),
		},
	}
	if _, err := db.Collection("transactions").Indexes().CreateMany(ctx, transactionIndexes); err != nil {
		return err
	}

	entitlementIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "predictionId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection("entitlements").Indexes().CreateOne(ctx, entitlementIndex); err != nil {
		return err
	}

	userIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection("users").Indexes().CreateOne(ctx, userIndex); err != nil {
		return err
	}

	return nil
}
