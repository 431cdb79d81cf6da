package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sokatips/mpesa-backend/internal/models"
	"github.com/sokatips/mpesa-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PredictionHandler handles prediction-related HTTP requests
type PredictionHandler struct {
	predictionService services.PredictionService
}

// NewPredictionHandler creates a new PredictionHandler
func NewPredictionHandler(predictionService services.PredictionService) *PredictionHandler {
	return &PredictionHandler{
		predictionService: predictionService,
	}
}

// ListPredictions handles GET /predictions
func (h *PredictionHandler) ListPredictions(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	predictionType := c.Query("type")

	predictions, err := h.predictionService.ListPredictions(c.Request.Context(), predictionType, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get predictions"})
		return
	}

	c.JSON(http.StatusOK, predictions)
}

// GetPrediction handles GET /predictions/:id. Tips are included only when
// the requesting user owns the package.
func (h *PredictionHandler) GetPrediction(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}

	prediction, owned, err := h.predictionService.GetPrediction(c.Request.Context(), id, userID)
	if err != nil {
		if errors.Is(err, services.ErrPredictionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": services.ErrPredictionNotFound.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get prediction"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"prediction": prediction, "purchased": owned})
}

// CreatePrediction handles POST /predictions (admin)
func (h *PredictionHandler) CreatePrediction(c *gin.Context) {
	var prediction models.Prediction
	if err := c.ShouldBindJSON(&prediction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.predictionService.CreatePrediction(c.Request.Context(), &prediction); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, prediction)
}

// GetMyPurchases handles GET /account/purchases
func (h *PredictionHandler) GetMyPurchases(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return
	}

	purchases, err := h.predictionService.GetUserPurchases(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get purchases"})
		return
	}

	c.JSON(http.StatusOK, purchases)
}
