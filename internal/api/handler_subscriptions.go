package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"webpush-backend/internal/model"
	"webpush-backend/internal/store"
)

type subscribeRequest struct {
	UserID    string `json:"userId" binding:"required"`
	Endpoint  string `json:"endpoint" binding:"required"`
	P256DH    string `json:"p256dh" binding:"required"`
	Auth      string `json:"auth" binding:"required"`
	UserAgent string `json:"userAgent"`
	Platform  string `json:"platform"`
}

// PostSubscription handles the creation or replacement of a subscription.
// The endpoint is the natural key, so repeated posts from the same device
// overwrite the existing record.
func (h *Handler) PostSubscription(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	sub := model.PushSubscription{
		UserID:       req.UserID,
		Endpoint:     req.Endpoint,
		P256DH:       req.P256DH,
		Auth:         req.Auth,
		UserAgent:    req.UserAgent,
		Platform:     model.Platform(req.Platform),
		SubscribedAt: time.Now(),
	}

	if err := h.store.UpsertSubscription(c.Request.Context(), &sub); err != nil {
		if errors.Is(err, store.ErrInvalidSubscription) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusCreated)
}

type unsubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req unsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.store.DeleteSubscriptionByEndpoint(c.Request.Context(), req.Endpoint); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusNoContent)
}
