package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type manifestIcon struct {
	Src     string `json:"src"`
	Sizes   string `json:"sizes"`
	Type    string `json:"type"`
	Purpose string `json:"purpose,omitempty"`
}

type webManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	Icons           []manifestIcon `json:"icons"`
	ThemeColor      string         `json:"theme_color"`
	BackgroundColor string         `json:"background_color"`
	Display         string         `json:"display"`
	StartURL        string         `json:"start_url"`
}

// GetManifest serves the web app manifest the install-to-home-screen flow
// consumes.
func (h *Handler) GetManifest(c *gin.Context) {
	app := h.cfg.App
	c.JSON(http.StatusOK, webManifest{
		Name:      app.Name,
		ShortName: app.ShortName,
		Icons: []manifestIcon{
			{Src: app.IconPath, Sizes: "512x512", Type: "image/png"},
			{Src: app.MaskableIcon, Sizes: "512x512", Type: "image/png", Purpose: "maskable"},
		},
		ThemeColor:      app.ThemeColor,
		BackgroundColor: app.BackgroundColor,
		Display:         "standalone",
		StartURL:        "/",
	})
}

// GetAgentScript serves the background agent script from the application
// root, immutable so clients may cache it for a full year. Its path decides
// the agent's scope, which must cover the whole origin.
func (h *Handler) GetAgentScript(c *gin.Context) {
	if h.cfg.Server.AgentScriptFile == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "agent script is not configured"})
		return
	}

	c.Header("Content-Type", "application/javascript")
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.File(h.cfg.Server.AgentScriptFile)
}
