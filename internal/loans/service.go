// internal/loans/service.go
package loans

import (
	"context"

	"github.com/google/uuid"
)

// Service defines the interface for the loan service.
type Service interface {
	Borrow(ctx context.Context, userID, bookID uuid.UUID, notes string) (*Loan, error)
	Return(ctx context.Context, loanID uuid.UUID) (*Loan, error)
	LoansForUser(ctx context.Context, userID uuid.UUID, page PageRequest) (*Page, error)
	LoansForBook(ctx context.Context, bookID uuid.UUID) ([]Loan, error)
	ActiveLoans(ctx context.Context, page PageRequest) (*Page, error)
	OverdueLoans(ctx context.Context) ([]Loan, error)
	UserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error)
	BookStats(ctx context.Context, bookID uuid.UUID) (*BookStats, error)
}
