// internal/clients/book_client.go
package clients

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// BookClient checks book existence against the books management service.
type BookClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

func NewBookClient(baseURL string) *BookClient {
	return &BookClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: validateTimeout},
		breaker:    gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "books-service"}),
	}
}

// Validate returns the remote verdict verbatim; any failure to obtain one is
// an error for the caller's policy to resolve.
func (c *BookClient) Validate(ctx context.Context, bookID uuid.UUID) (bool, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(ctx, validateTimeout)
		defer cancel()
		return fetchBool(ctx, c.httpClient, fmt.Sprintf("%s/validate/%s", c.baseURL, bookID))
	})
	if err != nil {
		return false, fmt.Errorf("validate book %s: %w", bookID, err)
	}
	return result.(bool), nil
}
