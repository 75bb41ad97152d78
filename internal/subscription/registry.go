package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"webpush-backend/internal/model"
)

// HTTPRegistry persists subscription records by posting them to the backend
// subscribe endpoint.
type HTTPRegistry struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPRegistry creates a registry client for the given backend base URL.
func NewHTTPRegistry(baseURL string) *HTTPRegistry {
	return &HTTPRegistry{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Save posts the record as JSON. Any non-2xx response is an error; the
// manager logs and re-throws so the caller decides on user messaging.
func (r *HTTPRegistry) Save(ctx context.Context, sub *model.PushSubscription) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encoding subscription: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/api/notification/subscribe", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building subscribe request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("posting subscription: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("registry rejected subscription with status %d", resp.StatusCode)
	}
	return nil
}
