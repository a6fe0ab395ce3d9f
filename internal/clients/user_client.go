// internal/clients/user_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const validateTimeout = 3 * time.Second

// UserClient checks user existence against the user service.
type UserClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewUserClient(baseURL string) *UserClient {
	return &UserClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: validateTimeout},
		breaker:    gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "user-service"}),
	}
}

// Validate returns the remote verdict verbatim. Transport failures, timeouts,
// non-2xx responses, malformed bodies, and an open circuit all surface as
// errors for the caller's policy to resolve.
func (c *UserClient) Validate(ctx context.Context, userID uuid.UUID) (bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, validateTimeout)
		defer cancel()
		return fetchBool(ctx, c.httpClient, fmt.Sprintf("%s/validate/%s", c.baseURL, userID))
	})
	if err != nil {
		return false, fmt.Errorf("validate user %s: %w", userID, err)
	}
	return result.(bool), nil
}

func fetchBool(ctx context.Context, client *http.Client, url string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var ok bool
	if err := json.NewDecoder(resp.Body).Decode(&ok); err != nil {
		return false, err
	}
	return ok, nil
}
