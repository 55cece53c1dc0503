package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"college-erp/common/httputil"
	"college-erp/common/metrics"

	"github.com/go-chi/chi/v5"
)

// DependencyPostgres is the dependency name used in health metrics.
const DependencyPostgres = "postgres"

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *bun.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	db      Pinger
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewHandler(db Pinger, m *metrics.Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		db:      db,
		metrics: m,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready reports 503 while the database is unreachable.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := checkDatabase(r.Context(), h.db, h.metrics); err != nil {
		h.logger.WarnContext(r.Context(), "readiness check failed", "dependency", DependencyPostgres, "error", err)
		httputil.RespondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}
	httputil.RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}

func checkDatabase(ctx context.Context, db Pinger, m *metrics.Metrics) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	start := time.Now()
	err := db.PingContext(ctx)
	m.Health.RecordDependencyCheck(ctx, DependencyPostgres, time.Since(start), err)
	return err
}
