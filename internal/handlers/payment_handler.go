package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sokatips/mpesa-backend/internal/models"
	"github.com/sokatips/mpesa-backend/internal/services"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// PaymentHandler handles payment-related HTTP requests
type PaymentHandler struct {
	paymentService services.PaymentService
	audit          services.AuditLog
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService services.PaymentService, audit services.AuditLog) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		audit:          audit,
	}
}

// InitiatePurchase handles POST /payments/initiate
func (h *PaymentHandler) InitiatePurchase(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return
	}

	var request struct {
		PredictionID string `json:"predictionId" binding:"required"`
		Phone        string `json:"phone" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	predictionID, err := primitive.ObjectIDFromHex(request.PredictionID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid prediction ID format"})
		return
	}

	txn, err := h.paymentService.InitiatePurchase(c.Request.Context(), userID, predictionID, request.Phone)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, gin.H{"error": services.ErrInvalidPhone.Error()})
		case errors.Is(err, services.ErrPredictionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": services.ErrPredictionNotFound.Error()})
		case errors.Is(err, services.ErrAlreadyOwned):
			c.JSON(http.StatusOK, gin.H{"status": "already_owned", "message": "You already own this prediction"})
		case errors.Is(err, services.ErrPurchaseInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": services.ErrPurchaseInProgress.Error()})
		case errors.Is(err, services.ErrGatewayInitiation):
			c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to initiate payment. Please try again."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to initiate payment. Please try again."})
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message":           "Payment request sent to your phone. Complete the M-Pesa payment to access the predictions.",
		"transactionId":     txn.ID.Hex(),
		"checkoutRequestId": txn.CheckoutRequestID,
	})
}

// MpesaCallback handles POST /payments/mpesa/callback, the provider webhook.
// The raw payload is audited before parsing so malformed deliveries are still
// captured for forensic replay. The provider reads the ResultCode in the
// body, so the HTTP status is always 200.
func (h *PaymentHandler) MpesaCallback(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		slog.Warn("Failed to read callback body", "error", err)
		c.JSON(http.StatusOK, models.CallbackResponse{ResultCode: 1, ResultDesc: "Failed to read request"})
		return
	}

	if h.audit != nil {
		payload := make([]byte, len(raw))
		copy(payload, raw)
		go func() {
			if err := h.audit.AppendCallback(payload); err != nil {
				slog.Error("Audit callback append failed", "error", err)
			}
		}()
	}

	var request models.STKCallbackRequest
	if err := json.Unmarshal(raw, &request); err != nil || request.Body.STKCallback == nil {
		slog.Warn("Malformed callback payload", "error", err, "size", len(raw))
		c.JSON(http.StatusOK, models.CallbackResponse{ResultCode: 1, ResultDesc: "Invalid callback payload"})
		return
	}

	response := h.paymentService.ProcessCallback(c.Request.Context(), request.Body.STKCallback)
	c.JSON(http.StatusOK, response)
}

// GetMyTransactions handles GET /account/transactions
func (h *PaymentHandler) GetMyTransactions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user identity"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	txns, err := h.paymentService.GetUserTransactions(c.Request.Context(), userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get transactions"})
		return
	}

	c.JSON(http.StatusOK, txns)
}
