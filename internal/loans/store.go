// internal/loans/store.go
package loans

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect import
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrLoanNotFound  = errors.New("loan not found")
	ErrDuplicateLoan = errors.New("user already has an active loan for this book")
)

// Store is the persistence boundary for loans.
type Store interface {
	Insert(ctx context.Context, loan *Loan) error
	GetByID(ctx context.Context, id uuid.UUID) (*Loan, error)
	MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) (*Loan, error)
	ActiveLoanExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page PageRequest) (*Page, error)
	ListByBook(ctx context.Context, bookID uuid.UUID) ([]Loan, error)
	ListActive(ctx context.Context, page PageRequest) (*Page, error)
	ListOverdue(ctx context.Context, asOf time.Time) ([]Loan, error)
	UserStats(ctx context.Context, userID uuid.UUID, since, until time.Time) (*UserStats, error)
	BookStats(ctx context.Context, bookID uuid.UUID) (*BookStats, error)
}

const (
	tableLoans = "loans"

	pqUniqueViolation = "23505"
)

var loanColumns = []interface{}{
	"id", "user_id", "book_id", "borrow_date", "due_date",
	"return_date", "status", "notes", "renewal_count", "fine_amount",
}

// The partial unique index is what closes the check-then-insert race: two
// concurrent borrows for the same (user, book) pair can both pass the
// existence pre-check, but only one insert commits.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS loans (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		book_id UUID NOT NULL,
		borrow_date DATE NOT NULL,
		due_date DATE NOT NULL,
		return_date DATE,
		status TEXT NOT NULL,
		notes TEXT NOT NULL DEFAULT '',
		renewal_count INTEGER NOT NULL DEFAULT 0,
		fine_amount NUMERIC(10,2) NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS loans_one_active
		ON loans (user_id, book_id) WHERE status = 'BORROWED'`,
	`CREATE INDEX IF NOT EXISTS loans_user_borrow_idx ON loans (user_id, borrow_date DESC)`,
	`CREATE INDEX IF NOT EXISTS loans_book_borrow_idx ON loans (book_id, borrow_date DESC)`,
	`CREATE INDEX IF NOT EXISTS loans_status_due_idx ON loans (status, due_date)`,
}

// PostgresStore implements Store on top of Postgres.
type PostgresStore struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	tracer  trace.Tracer
}

// NewPostgresStore creates a Postgres-backed loan store.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{
		db:      db,
		dialect: goqu.Dialect("postgres"),
		tracer:  otel.Tracer("libralend/loanstore"),
	}
}

// EnsureSchema creates the loans table and its indexes if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Insert stores a new loan and assigns its id. It returns ErrDuplicateLoan
// when an active loan for the same (user, book) pair already exists.
func (s *PostgresStore) Insert(ctx context.Context, loan *Loan) error {
	ctx, span := s.tracer.Start(ctx, "loanstore.insert",
		trace.WithAttributes(
			attribute.String("user.id", loan.UserID.String()),
			attribute.String("book.id", loan.BookID.String()),
		),
	)
	defer span.End()

	loan.ID = uuid.New()

	query, args, err := s.dialect.Insert(tableLoans).Prepared(true).Rows(goqu.Record{
		"id":            loan.ID,
		"user_id":       loan.UserID,
		"book_id":       loan.BookID,
		"borrow_date":   loan.BorrowDate,
		"due_date":      loan.DueDate,
		"return_date":   loan.ReturnDate,
		"status":        loan.Status,
		"notes":         loan.Notes,
		"renewal_count": loan.RenewalCount,
		"fine_amount":   loan.FineAmount,
	}).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			span.SetAttributes(attribute.Bool("conflict.detected", true))
			return ErrDuplicateLoan
		}
		return fmt.Errorf("insert loan: %w", err)
	}

	span.SetAttributes(attribute.String("loan.id", loan.ID.String()))
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Loan, error) {
	query, args, err := s.dialect.From(tableLoans).Prepared(true).
		Select(loanColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	var loan Loan
	if err := s.db.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("query loan: %w", err)
	}
	return &loan, nil
}

// MarkReturned stamps the loan returned in a single statement, so concurrent
// writes to one loan serialize on the row. Re-returning an already returned
// loan re-stamps the return date.
func (s *PostgresStore) MarkReturned(ctx context.Context, id uuid.UUID, returnDate time.Time) (*Loan, error) {
	ctx, span := s.tracer.Start(ctx, "loanstore.mark_returned",
		trace.WithAttributes(attribute.String("loan.id", id.String())),
	)
	defer span.End()

	query, args, err := s.dialect.Update(tableLoans).Prepared(true).
		Set(goqu.Record{
			"status":      StatusReturned,
			"return_date": returnDate,
		}).
		Where(goqu.Ex{"id": id}).
		Returning(loanColumns...).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build update query: %w", err)
	}

	var loan Loan
	if err := s.db.GetContext(ctx, &loan, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLoanNotFound
		}
		return nil, fmt.Errorf("update loan: %w", err)
	}
	return &loan, nil
}

func (s *PostgresStore) ActiveLoanExists(ctx context.Context, userID, bookID uuid.UUID) (bool, error) {
	query, args, err := s.dialect.From(tableLoans).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(goqu.Ex{
			"user_id": userID,
			"book_id": bookID,
			"status":  StatusBorrowed,
		}).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build count query: %w", err)
	}

	var count int64
	if err := s.db.GetContext(ctx, &count, query, args...); err != nil {
		return false, fmt.Errorf("count active loans: %w", err)
	}
	return count > 0, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID uuid.UUID, page PageRequest) (*Page, error) {
	return s.listPaged(ctx, goqu.Ex{"user_id": userID}, page)
}

func (s *PostgresStore) ListByBook(ctx context.Context, bookID uuid.UUID) ([]Loan, error) {
	return s.list(ctx, s.dialect.From(tableLoans).Prepared(true).
		Select(loanColumns...).
		Where(goqu.Ex{"book_id": bookID}).
		Order(goqu.I("borrow_date").Desc(), goqu.I("created_at").Desc()))
}

func (s *PostgresStore) ListActive(ctx context.Context, page PageRequest) (*Page, error) {
	return s.listPaged(ctx, goqu.Ex{"status": StatusBorrowed}, page)
}

// ListOverdue returns active loans past due as of the given date. Overdue is
// computed here, never stored.
func (s *PostgresStore) ListOverdue(ctx context.Context, asOf time.Time) ([]Loan, error) {
	return s.list(ctx, s.dialect.From(tableLoans).Prepared(true).
		Select(loanColumns...).
		Where(goqu.Ex{"status": StatusBorrowed}, goqu.I("due_date").Lt(asOf)).
		Order(goqu.I("due_date").Asc()))
}

func (s *PostgresStore) UserStats(ctx context.Context, userID uuid.UUID, since, until time.Time) (*UserStats, error) {
	query, args, err := s.dialect.From(tableLoans).Prepared(true).
		Select(
			goqu.COUNT(goqu.Star()).As("total_borrowings"),
			goqu.L("COUNT(*) FILTER (WHERE status = ?)", StatusReturned).As("returned_books"),
			goqu.L("COUNT(*) FILTER (WHERE status = ?)", StatusBorrowed).As("active_borrowings"),
			goqu.L("COUNT(*) FILTER (WHERE return_date BETWEEN ? AND ?)", since, until).As("recent_returns"),
		).
		Where(goqu.Ex{"user_id": userID}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}

	var stats UserStats
	if err := s.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("query user stats: %w", err)
	}
	return &stats, nil
}

func (s *PostgresStore) BookStats(ctx context.Context, bookID uuid.UUID) (*BookStats, error) {
	query, args, err := s.dialect.From(tableLoans).Prepared(true).
		Select(goqu.COUNT(goqu.Star()).As("total_borrowings")).
		Where(goqu.Ex{"book_id": bookID}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}

	var stats BookStats
	if err := s.db.GetContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("query book stats: %w", err)
	}
	return &stats, nil
}

func (s *PostgresStore) listPaged(ctx context.Context, where goqu.Ex, page PageRequest) (*Page, error) {
	page = page.normalized()

	countQuery, countArgs, err := s.dialect.From(tableLoans).Prepared(true).
		Select(goqu.COUNT(goqu.Star())).
		Where(where).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build count query: %w", err)
	}

	var total int64
	if err := s.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, fmt.Errorf("count loans: %w", err)
	}

	loans, err := s.list(ctx, s.dialect.From(tableLoans).Prepared(true).
		Select(loanColumns...).
		Where(where).
		Order(goqu.I("borrow_date").Desc(), goqu.I("created_at").Desc()).
		Limit(uint(page.Size)).
		Offset(uint(page.Page*page.Size)))
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(page.Size) - 1) / int64(page.Size))
	return &Page{
		Content:    loans,
		Page:       page.Page,
		Size:       page.Size,
		TotalItems: total,
		TotalPages: totalPages,
	}, nil
}

func (s *PostgresStore) list(ctx context.Context, ds *goqu.SelectDataset) ([]Loan, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select query: %w", err)
	}

	loans := []Loan{}
	if err := s.db.SelectContext(ctx, &loans, query, args...); err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	return loans, nil
}
