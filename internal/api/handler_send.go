package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"webpush-backend/internal/notification"
)

type sendRequest struct {
	UserID string         `json:"userId" binding:"required"`
	Title  string         `json:"title" binding:"required"`
	Body   string         `json:"body" binding:"required"`
	Icon   string         `json:"icon"`
	Data   map[string]any `json:"data"`
}

// SendNotification is the externally callable form of the dispatcher.
// Validation happens before any registry lookup; missing signing keys and a
// missing subscription map to 500 and 404 respectively.
func (h *Handler) SendNotification(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "userId, title and body are required"})
		return
	}

	deliveries, err := h.dispatcher.Send(c.Request.Context(), req.UserID, req.Title, req.Body, req.Icon, req.Data)
	if err != nil {
		switch {
		case errors.Is(err, notification.ErrNotConfigured):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "push notifications are not configured"})
		case errors.Is(err, notification.ErrNoSubscription):
			c.JSON(http.StatusNotFound, gin.H{"error": "no subscription found for user"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	success := true
	for _, d := range deliveries {
		if d.Failed() {
			success = false
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   success,
		"delivered": len(deliveries),
	})
}
