package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"webpush-backend/config"
	"webpush-backend/internal/mw"
	"webpush-backend/internal/notification"
	"webpush-backend/internal/store"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(s store.Store, dispatcher *notification.Dispatcher, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	handler := NewHandler(s, dispatcher, cfg)

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)

	cacheTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	// Installability surface: the web app manifest and the agent script must
	// live at the application root so the agent's scope covers the origin.
	r.GET("/manifest.webmanifest", caching, handler.GetManifest)
	r.GET(cfg.Agent.ScriptPath, handler.GetAgentScript)

	// API group
	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/notification/subscribe", handler.PostSubscription)
		api.DELETE("/notification/subscribe", handler.DeleteSubscription)
		api.POST("/notifications/send", handler.SendNotification)
		api.GET("/vapid_public_key", caching, handler.GetVAPIDPublicKey)
	}

	return r
}
