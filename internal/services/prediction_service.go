package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sokatips/mpesa-backend/internal/models"
	"github.com/sokatips/mpesa-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure PredictionServiceImpl implements PredictionService
var _ PredictionService = (*PredictionServiceImpl)(nil)

// PredictionServiceImpl implements content listing and ownership-aware reads.
// It only ever reads transactions and entitlements; all writes to those
// collections belong to the payment service.
type PredictionServiceImpl struct {
	predictionRepo  repositories.PredictionRepository
	entitlementRepo repositories.EntitlementRepository
}

// NewPredictionService creates a new PredictionServiceImpl
func NewPredictionService(predictionRepo repositories.PredictionRepository, entitlementRepo repositories.EntitlementRepository) *PredictionServiceImpl {
	return &PredictionServiceImpl{
		predictionRepo:  predictionRepo,
		entitlementRepo: entitlementRepo,
	}
}

// CreatePrediction validates and stores a new prediction package.
func (s *PredictionServiceImpl) CreatePrediction(ctx context.Context, prediction *models.Prediction) error {
	if prediction.Title == "" {
		return errors.New("title is required")
	}
	if prediction.Price <= 0 {
		return errors.New("price must be positive")
	}
	if len(prediction.Matches) == 0 {
		return errors.New("at least one match is required")
	}
	return s.predictionRepo.Create(ctx, prediction)
}

// GetPrediction returns a prediction and whether the user owns it. Tips are
// redacted for non-owners: the paid content is exactly the tip per match.
func (s *PredictionServiceImpl) GetPrediction(ctx context.Context, id, userID primitive.ObjectID) (*models.Prediction, bool, error) {
	prediction, err := s.predictionRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, ErrPredictionNotFound
		}
		return nil, false, fmt.Errorf("load prediction: %w", err)
	}

	owned := true
	if _, err := s.entitlementRepo.FindByUserAndPrediction(ctx, userID, id); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, fmt.Errorf("check entitlement: %w", err)
		}
		owned = false
	}

	if !owned {
		teaser := *prediction
		teaser.Matches = make([]models.Match, len(prediction.Matches))
		for i, m := range prediction.Matches {
			m.Tip = ""
			teaser.Matches[i] = m
		}
		return &teaser, false, nil
	}
	return prediction, true, nil
}

// ListPredictions returns a page of predictions without tips.
func (s *PredictionServiceImpl) ListPredictions(ctx context.Context, predictionType string, page, limit int) ([]*models.Prediction, error) {
	predictions, err := s.predictionRepo.FindAll(ctx, predictionType, page, limit)
	if err != nil {
		return nil, err
	}
	for _, p := range predictions {
		for i := range p.Matches {
			p.Matches[i].Tip = ""
		}
	}
	return predictions, nil
}

// GetUserPurchases returns the user's entitlements with prediction titles.
func (s *PredictionServiceImpl) GetUserPurchases(ctx context.Context, userID primitive.ObjectID) ([]*PurchaseSummary, error) {
	ents, err := s.entitlementRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*PurchaseSummary, 0, len(ents))
	for _, ent := range ents {
		summary := &PurchaseSummary{Entitlement: ent}
		prediction, err := s.predictionRepo.FindByID(ctx, ent.PredictionID)
		if err != nil {
			slog.Warn("Purchased prediction missing", "predictionId", ent.PredictionID.Hex(), "error", err)
		} else {
			summary.Title = prediction.Title
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}
