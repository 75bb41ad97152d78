package api

import (
	"webpush-backend/config"
	"webpush-backend/internal/notification"
	"webpush-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store      store.Store
	dispatcher *notification.Dispatcher
	cfg        *config.Config
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, dispatcher *notification.Dispatcher, cfg *config.Config) *Handler {
	return &Handler{
		store:      s,
		dispatcher: dispatcher,
		cfg:        cfg,
	}
}
