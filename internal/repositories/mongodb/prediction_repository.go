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

// PredictionRepository implements repositories.PredictionRepository
type PredictionRepository struct {
	collection *mongo.Collection
}

// NewPredictionRepository creates a new PredictionRepository
func NewPredictionRepository(db *mongo.Database) repositories.PredictionRepository {
	return &PredictionRepository{
		collection: db.Collection("predictions"),
	}
}

// Create creates a new prediction package
func (r *PredictionRepository) Create(ctx context.Context, prediction *models.Prediction) error {
	if prediction.ID.IsZero() {
		prediction.ID = primitive.NewObjectID()
	}
	prediction.CreatedAt = time.Now()
	prediction.UpdatedAt = time.Now()
	_, err := r.collection.InsertOne(ctx, prediction)
	return err
}

// FindByID finds a prediction by ID
func (r *PredictionRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prediction, error) {
	var prediction models.Prediction
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&prediction)
	if err != nil {
		return nil, err
	}
	return &prediction, nil
}

// FindAll finds predictions with optional type filter and pagination
func (r *PredictionRepository) FindAll(ctx context.Context, predictionType string, page, limit int) ([]*models.Prediction, error) {
	filter := bson.M{}
	if predictionType != "" {
		filter["type"] = predictionType
	}

	opts := options.Find().
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit)).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var predictions []*models.Prediction
	if err := cursor.All(ctx, &predictions); err != nil {
		return nil, err
	}
	return predictions, nil
}

// Count counts all predictions
func (r *PredictionRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}
