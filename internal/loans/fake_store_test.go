// internal/loans/fake_store_test.go
package loans

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store used by the service and handler tests. It
// enforces the same active-pair uniqueness the Postgres partial index does,
// under one lock, so check-then-insert races surface as ErrDuplicateLoan.
type fakeStore struct {
	mu    sync.Mutex
	seq   int
	loans map[uuid.UUID]*Loan
	order map[uuid.UUID]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		loans: make(map[uuid.UUID]*Loan),
		order: make(map[uuid.UUID]int),
	}
}

func (f *fakeStore) Insert(_ context.Context, loan *Loan) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.loans {
		if existing.UserID == loan.UserID && existing.BookID == loan.BookID && existing.Status == StatusBorrowed {
			return ErrDuplicateLoan
		}
	}

	loan.ID = uuid.New()
	stored := *loan
	f.loans[loan.ID] = &stored
	f.seq++
	f.order[loan.ID] = f.seq
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	loan, ok := f.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	copied := *loan
	return &copied, nil
}

func (f *fakeStore) MarkReturned(_ context.Context, id uuid.UUID, returnDate time.Time) (*Loan, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	loan, ok := f.loans[id]
	if !ok {
		return nil, ErrLoanNotFound
	}
	rd := returnDate
	loan.Status = StatusReturned
	loan.ReturnDate = &rd
	copied := *loan
	return &copied, nil
}

func (f *fakeStore) ActiveLoanExists(_ context.Context, userID, bookID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, loan := range f.loans {
		if loan.UserID == userID && loan.BookID == bookID && loan.Status == StatusBorrowed {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ListByUser(ctx context.Context, userID uuid.UUID, page PageRequest) (*Page, error) {
	return f.paged(f.filter(func(l *Loan) bool { return l.UserID == userID }), page), nil
}

func (f *fakeStore) ListByBook(_ context.Context, bookID uuid.UUID) ([]Loan, error) {
	return f.filter(func(l *Loan) bool { return l.BookID == bookID }), nil
}

func (f *fakeStore) ListActive(_ context.Context, page PageRequest) (*Page, error) {
	return f.paged(f.filter(func(l *Loan) bool { return l.Status == StatusBorrowed }), page), nil
}

func (f *fakeStore) ListOverdue(_ context.Context, asOf time.Time) ([]Loan, error) {
	return f.filter(func(l *Loan) bool { return l.IsOverdue(asOf) }), nil
}

func (f *fakeStore) UserStats(_ context.Context, userID uuid.UUID, since, until time.Time) (*UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &UserStats{}
	for _, loan := range f.loans {
		if loan.UserID != userID {
			continue
		}
		stats.TotalBorrowings++
		switch loan.Status {
		case StatusReturned:
			stats.ReturnedBooks++
		case StatusBorrowed:
			stats.ActiveBorrowings++
		}
		if loan.ReturnDate != nil && !loan.ReturnDate.Before(since) && !loan.ReturnDate.After(until) {
			stats.RecentReturns++
		}
	}
	return stats, nil
}

func (f *fakeStore) BookStats(_ context.Context, bookID uuid.UUID) (*BookStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &BookStats{}
	for _, loan := range f.loans {
		if loan.BookID == bookID {
			stats.TotalBorrowings++
		}
	}
	return stats, nil
}

func (f *fakeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loans)
}

func (f *fakeStore) filter(keep func(*Loan) bool) []Loan {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := []Loan{}
	for _, loan := range f.loans {
		if keep(loan) {
			out = append(out, *loan)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BorrowDate.Equal(out[j].BorrowDate) {
			return out[i].BorrowDate.After(out[j].BorrowDate)
		}
		return f.order[out[i].ID] > f.order[out[j].ID]
	})
	return out
}

func (f *fakeStore) paged(all []Loan, page PageRequest) *Page {
	page = page.normalized()

	start := page.Page * page.Size
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Size
	if end > len(all) {
		end = len(all)
	}

	totalPages := (len(all) + page.Size - 1) / page.Size
	return &Page{
		Content:    all[start:end],
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: int64(len(all)),
		TotalPages: totalPages,
	}
}
