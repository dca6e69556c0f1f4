/**
 * @description
 * Client for communicating with the notification-service. Used by the
 * conflict reminder job to send staff a digest of sessions that still need
 * manual rescheduling.
 */
package notifyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/therapyhub/freeze-service/internal/domain"
)

// Client is a client for the notification service.
type Client struct {
	baseURL        string
	internalAPIKey string
	httpClient     *http.Client
}

// NewClient creates a new notification service client.
func NewClient(baseURL, internalAPIKey string) *Client {
	normalizedURL := strings.TrimSuffix(baseURL, "/")
	return &Client{
		baseURL:        normalizedURL,
		internalAPIKey: internalAPIKey,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
	}
}

type conflictDigestPayload struct {
	Sessions []domain.TherapySession `json:"sessions"`
}

// SendConflictDigest posts the unresolved conflict sessions to the
// notification service.
func (c *Client) SendConflictDigest(ctx context.Context, sessions []domain.TherapySession) error {
	if c.baseURL == "" {
		return fmt.Errorf("notification service base URL is not configured")
	}

	url := fmt.Sprintf("%s/internal/notifications/conflict-digest", c.baseURL)

	body, err := json.Marshal(conflictDigestPayload{Sessions: sessions})
	if err != nil {
		return fmt.Errorf("failed to marshal conflict digest payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.internalAPIKey != "" {
		req.Header.Set("X-Internal-API-Key", c.internalAPIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request to notification service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("notification service returned error status %d", resp.StatusCode)
	}

	return nil
}
