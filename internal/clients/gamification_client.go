// internal/clients/gamification_client.go
package clients

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// GamificationClient reports user actions to the gamification service.
type GamificationClient struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

func NewGamificationClient(baseURL string) *GamificationClient {
	return &GamificationClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: validateTimeout},
		now:        time.Now,
	}
}

// Notify posts a user action. The response body is ignored; any non-2xx
// status is an error so the dispatcher can log it.
func (c *GamificationClient) Notify(ctx context.Context, userID uuid.UUID, action string) error {
	payload := struct {
		UserID    uuid.UUID `json:"userId"`
		Action    string    `json:"action"`
		Timestamp string    `json:"timestamp"`
	}{
		UserID:    userID,
		Action:    action,
		Timestamp: c.now().UTC().Format("2006-01-02"),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/user-action", c.baseURL), bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
