// internal/loans/implementation.go
package loans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ErrInvalidReference means the user or catalog service explicitly rejected a
// referenced entity. A dependency failure is not a rejection; that resolves
// through the gateway's policy instead.
var ErrInvalidReference = errors.New("referenced entity does not exist")

const recentWindowDays = 30

// service implements the Service interface.
type service struct {
	store      Store
	gateway    *Gateway
	dispatcher *Dispatcher
	logger     *slog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewService creates a new loan service instance.
func NewService(store Store, gateway *Gateway, dispatcher *Dispatcher, logger *slog.Logger) Service {
	return &service{
		store:      store,
		gateway:    gateway,
		dispatcher: dispatcher,
		logger:     logger,
		tracer:     otel.Tracer("libralend/loans"),
		now:        time.Now,
	}
}

// Borrow creates a loan after cross-checking both referenced entities and
// guarding against a duplicate active loan. Validation completes before the
// insert; the notification is dispatched only after the insert commits.
func (s *service) Borrow(ctx context.Context, userID, bookID uuid.UUID, notes string) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "loans.borrow",
		trace.WithAttributes(
			attribute.String("user.id", userID.String()),
			attribute.String("book.id", bookID.String()),
		),
	)
	defer span.End()

	// Step 1: Validate both references against their owning services.
	if !s.gateway.ValidateUser(ctx, userID) {
		return nil, fmt.Errorf("user %s: %w", userID, ErrInvalidReference)
	}
	if !s.gateway.ValidateBook(ctx, bookID) {
		return nil, fmt.Errorf("book %s: %w", bookID, ErrInvalidReference)
	}

	// Step 2: Fast-path duplicate check. The store's unique index on active
	// (user, book) pairs closes the race this read leaves open.
	exists, err := s.store.ActiveLoanExists(ctx, userID, bookID)
	if err != nil {
		return nil, fmt.Errorf("check active loan: %w", err)
	}
	if exists {
		return nil, ErrDuplicateLoan
	}

	// Step 3: Create the loan record.
	today := DateOnly(s.now())
	loan := &Loan{
		UserID:     userID,
		BookID:     bookID,
		BorrowDate: today,
		DueDate:    today.AddDate(0, 0, LoanPeriodDays),
		Status:     StatusBorrowed,
		Notes:      notes,
	}
	if err := s.store.Insert(ctx, loan); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "loan created",
		"loan_id", loan.ID.String(),
		"user_id", userID.String(),
		"book_id", bookID.String(),
		"due_date", loan.DueDate.Format("2006-01-02"),
	)

	// Step 4: Best-effort side notification, strictly after the commit.
	s.dispatcher.Dispatch(userID, ActionBookBorrowed)

	return loan, nil
}

// Return stamps the loan returned. Returning an already-returned loan
// re-stamps the return date without error.
func (s *service) Return(ctx context.Context, loanID uuid.UUID) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "loans.return",
		trace.WithAttributes(attribute.String("loan.id", loanID.String())),
	)
	defer span.End()

	loan, err := s.store.MarkReturned(ctx, loanID, DateOnly(s.now()))
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "loan returned",
		"loan_id", loan.ID.String(),
		"user_id", loan.UserID.String(),
	)

	s.dispatcher.Dispatch(loan.UserID, ActionBookReturned)

	return loan, nil
}

func (s *service) LoansForUser(ctx context.Context, userID uuid.UUID, page PageRequest) (*Page, error) {
	return s.store.ListByUser(ctx, userID, page)
}

func (s *service) LoansForBook(ctx context.Context, bookID uuid.UUID) ([]Loan, error) {
	return s.store.ListByBook(ctx, bookID)
}

func (s *service) ActiveLoans(ctx context.Context, page PageRequest) (*Page, error) {
	return s.store.ListActive(ctx, page)
}

func (s *service) OverdueLoans(ctx context.Context) ([]Loan, error) {
	return s.store.ListOverdue(ctx, DateOnly(s.now()))
}

func (s *service) UserStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	today := DateOnly(s.now())
	since := today.AddDate(0, 0, -recentWindowDays)
	return s.store.UserStats(ctx, userID, since, today)
}

func (s *service) BookStats(ctx context.Context, bookID uuid.UUID) (*BookStats, error) {
	return s.store.BookStats(ctx, bookID)
}
