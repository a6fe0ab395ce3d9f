// internal/loans/domain.go
package loans

import (
	"time"

	"github.com/google/uuid"
)

// Loan statuses. OVERDUE is deliberately not a status: it is derived from
// (status, due_date, now) at query time and never stored.
const (
	StatusBorrowed = "BORROWED"
	StatusReturned = "RETURNED"
)

// LoanPeriodDays is the fixed loan period applied to every borrow.
const LoanPeriodDays = 14

// Loan represents one user borrowing one book for a bounded period.
type Loan struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	BookID       uuid.UUID  `json:"book_id" db:"book_id"`
	BorrowDate   time.Time  `json:"borrow_date" db:"borrow_date"`
	DueDate      time.Time  `json:"due_date" db:"due_date"`
	ReturnDate   *time.Time `json:"return_date,omitempty" db:"return_date"`
	Status       string     `json:"status" db:"status"`
	Notes        string     `json:"notes,omitempty" db:"notes"`
	RenewalCount int        `json:"renewal_count" db:"renewal_count"`
	FineAmount   float64    `json:"fine_amount" db:"fine_amount"`
}

// IsActive reports whether the loan has not been returned yet.
func (l Loan) IsActive() bool {
	return l.Status == StatusBorrowed
}

// IsOverdue reports whether the loan is active and past its due date as of today.
func (l Loan) IsOverdue(today time.Time) bool {
	return l.Status == StatusBorrowed && today.After(l.DueDate)
}

// DaysOverdue returns the number of whole days the loan is past due as of
// today, or 0 if the loan is not overdue.
func (l Loan) DaysOverdue(today time.Time) int {
	if !l.IsOverdue(today) {
		return 0
	}
	return int(DateOnly(today).Sub(DateOnly(l.DueDate)).Hours() / 24)
}

// DateOnly truncates t to a calendar date at midnight UTC. Loan dates carry
// day granularity only.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UserStats summarizes a user's borrowing history.
type UserStats struct {
	TotalBorrowings  int `json:"totalBorrowings" db:"total_borrowings"`
	ReturnedBooks    int `json:"returnedBooks" db:"returned_books"`
	ActiveBorrowings int `json:"activeBorrowings" db:"active_borrowings"`
	RecentReturns    int `json:"recentReturns" db:"recent_returns"`
}

// BookStats summarizes a book's borrowing history.
type BookStats struct {
	TotalBorrowings int `json:"totalBorrowings" db:"total_borrowings"`
}

// PageRequest selects one page of a listing.
type PageRequest struct {
	Page int
	Size int
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (p PageRequest) normalized() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// Page is one page of loans plus paging metadata.
type Page struct {
	Content    []Loan `json:"content"`
	Page       int    `json:"page"`
	Size       int    `json:"size"`
	TotalItems int64  `json:"total_items"`
	TotalPages int    `json:"total_pages"`
}
