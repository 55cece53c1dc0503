package account

import (
	"log/slog"
	"net/http"
	"strconv"

	"college-erp/common/httputil"

	"github.com/go-chi/chi/v5"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type Handler struct {
	repo   Repository
	logger *slog.Logger
}

func NewHandler(repo Repository, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

// RegisterAdminRoutes mounts the account list. Callers guard the router with the admin role.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/accounts", h.List)
}

// List returns accounts whose username or email contains ?q=, case-insensitively.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.RespondWithError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	accounts, err := h.repo.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list accounts", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	summaries := make([]Summary, 0, len(accounts))
	for i := range accounts {
		summaries = append(summaries, accounts[i].Summary())
	}
	httputil.RespondWithJSON(w, http.StatusOK, summaries)
}
