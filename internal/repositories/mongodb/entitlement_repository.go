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

// EntitlementRepository implements repositories.EntitlementRepository
type EntitlementRepository struct {
	collection *mongo.Collection
}

// NewEntitlementRepository creates a new EntitlementRepository
func NewEntitlementRepository(db *mongo.Database) repositories.EntitlementRepository {
	return &EntitlementRepository{
		collection: db.Collection("entitlements"),
	}
}

// Create inserts an access grant. The unique index on (userId, predictionId)
// guarantees at most one entitlement per pair; a second insert surfaces as
// ErrDuplicate so the caller can abort its transaction.
func (r *EntitlementRepository) Create(ctx context.Context, ent *models.Entitlement) error {
	if ent.ID.IsZero() {
		ent.ID = primitive.NewObjectID()
	}
	if ent.GrantedAt.IsZero() {
		ent.GrantedAt = time.Now()
	}
	_, err := r.collection.InsertOne(ctx, ent)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicate
	}
	return err
}

// FindByUserAndPrediction finds the entitlement for a (user, prediction) pair
func (r *EntitlementRepository) FindByUserAndPrediction(ctx context.Context, userID, predictionID primitive.ObjectID) (*models.Entitlement, error) {
	filter := bson.M{"userId": userID, "predictionId": predictionID}
	var ent models.Entitlement
	err := r.collection.FindOne(ctx, filter).Decode(&ent)
	if err != nil {
		return nil, err
	}
	return &ent, nil
}

// FindByUserID finds all entitlements held by a user
func (r *EntitlementRepository) FindByUserID(ctx context.Context, userID primitive.ObjectID) ([]*models.Entitlement, error) {
	opts := options.Find().SetSort(bson.M{"grantedAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ents []*models.Entitlement
	if err := cursor.All(ctx, &ents); err != nil {
		return nil, err
	}
	return ents, nil
}

// MarkSMSSent sets the notification-sent flag after a successful dispatch.
// This is the only mutation an entitlement ever receives.
func (r *EntitlementRepository) MarkSMSSent(ctx context.Context, id primitive.ObjectID) error {
	update := bson.M{"$set": bson.M{"smsSent": true}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	return err
}
