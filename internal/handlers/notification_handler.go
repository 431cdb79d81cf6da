package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sokatips/mpesa-backend/internal/repositories"
)

// NotificationHandler exposes SMS delivery history for operators.
type NotificationHandler struct {
	notificationRepo repositories.NotificationRepository
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notificationRepo repositories.NotificationRepository) *NotificationHandler {
	return &NotificationHandler{
		notificationRepo: notificationRepo,
	}
}

// GetNotificationsByMSISDN handles GET /notifications/msisdn/:msisdn
func (h *NotificationHandler) GetNotificationsByMSISDN(c *gin.Context) {
	msisdn := c.Param("msisdn")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	notifications, err := h.notificationRepo.FindByMSISDN(c.Request.Context(), msisdn, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	c.JSON(http.StatusOK, notifications)
}
