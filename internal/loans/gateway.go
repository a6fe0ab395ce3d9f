// internal/loans/gateway.go
package loans

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Validator is the capability to check that an externally-owned entity exists.
// A (false, nil) result is an explicit rejection by the remote; a non-nil
// error means the remote could not be consulted at all.
type Validator interface {
	Validate(ctx context.Context, id uuid.UUID) (bool, error)
}

// Policy decides what a dependency failure means for validation.
type Policy string

const (
	// FailOpen treats an unreachable dependency as approval. Loans stay
	// available when the user or catalog service is degraded, at the cost
	// of occasionally lending against an entity that does not exist.
	FailOpen Policy = "fail-open"
	// FailClosed treats an unreachable dependency as rejection.
	FailClosed Policy = "fail-closed"
)

// ParsePolicy maps a config string to a Policy, defaulting to FailOpen.
func ParsePolicy(s string) Policy {
	if Policy(s) == FailClosed {
		return FailClosed
	}
	return FailOpen
}

// Gateway cross-checks loan requests against the user and catalog services.
type Gateway struct {
	users  Validator
	books  Validator
	policy Policy
	logger *slog.Logger
}

func NewGateway(users, books Validator, policy Policy, logger *slog.Logger) *Gateway {
	return &Gateway{users: users, books: books, policy: policy, logger: logger}
}

// ValidateUser reports whether the user service approves the user. Dependency
// failures never propagate; they resolve according to the gateway's policy.
func (g *Gateway) ValidateUser(ctx context.Context, userID uuid.UUID) bool {
	ok, err := g.users.Validate(ctx, userID)
	return g.resolve(ctx, "user", userID, ok, err)
}

// ValidateBook reports whether the books service approves the book.
func (g *Gateway) ValidateBook(ctx context.Context, bookID uuid.UUID) bool {
	ok, err := g.books.Validate(ctx, bookID)
	return g.resolve(ctx, "book", bookID, ok, err)
}

func (g *Gateway) resolve(ctx context.Context, kind string, id uuid.UUID, ok bool, err error) bool {
	if err == nil {
		return ok
	}

	g.logger.WarnContext(ctx, "validation dependency unavailable",
		"kind", kind,
		"id", id.String(),
		"policy", string(g.policy),
		"error", err,
	)
	return g.policy == FailOpen
}
