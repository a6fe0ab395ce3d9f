// internal/loans/handler.go
package loans

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Routes mounts the loan service surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/loans/borrow", h.handleBorrow)
	r.Put("/loans/return/{loanID}", h.handleReturn)
	r.Get("/loans/user/{userID}", h.handleUserLoans)
	r.Get("/loans/book/{bookID}", h.handleBookLoans)
	r.Get("/loans/active", h.handleActiveLoans)
	r.Get("/loans/overdue", h.handleOverdueLoans)
	r.Get("/loans/stats/book/{bookID}", h.handleBookStats)
	r.Get("/loans/stats/{userID}", h.handleUserStats)
	return r
}

func (h *Handler) handleBorrow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID uuid.UUID `json:"user_id"`
		BookID uuid.UUID `json:"book_id"`
		Notes  string    `json:"notes"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == uuid.Nil || req.BookID == uuid.Nil {
		http.Error(w, "user_id and book_id are required", http.StatusBadRequest)
		return
	}

	loan, err := h.service.Borrow(r.Context(), req.UserID, req.BookID, req.Notes)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, loan)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	loanID, err := uuid.Parse(chi.URLParam(r, "loanID"))
	if err != nil {
		http.Error(w, "invalid loan ID", http.StatusBadRequest)
		return
	}

	loan, err := h.service.Return(r.Context(), loanID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, loan)
}

func (h *Handler) handleUserLoans(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	page, err := h.service.LoansForUser(r.Context(), userID, parsePageRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, page)
}

func (h *Handler) handleBookLoans(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	loans, err := h.service.LoansForBook(r.Context(), bookID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, loans)
}

func (h *Handler) handleActiveLoans(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ActiveLoans(r.Context(), parsePageRequest(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, page)
}

func (h *Handler) handleOverdueLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.service.OverdueLoans(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, loans)
}

func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user ID", http.StatusBadRequest)
		return
	}

	stats, err := h.service.UserStats(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, stats)
}

func (h *Handler) handleBookStats(w http.ResponseWriter, r *http.Request) {
	bookID, err := uuid.Parse(chi.URLParam(r, "bookID"))
	if err != nil {
		http.Error(w, "invalid book ID", http.StatusBadRequest)
		return
	}

	stats, err := h.service.BookStats(r.Context(), bookID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.respond(w, http.StatusOK, stats)
}

// writeError maps loan errors onto status codes. Dependency failures never
// reach this point: validation resolves them via policy and notification
// failures are swallowed by the dispatcher.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrDuplicateLoan):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrLoanNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrInvalidReference):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) respond(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func parsePageRequest(r *http.Request) PageRequest {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	return PageRequest{Page: page, Size: size}
}
