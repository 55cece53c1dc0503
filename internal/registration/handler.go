package registration

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"college-erp/common/httputil"
	"college-erp/internal/account"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signup", h.Signup)
	r.Get("/auth/roles", h.Roles)
}

type SignupResponse struct {
	Message string          `json:"message"`
	User    account.Summary `json:"user"`
}

// Signup creates an account and its role profile.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode signup request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, SignupResponse{
		Message: "Registration successful",
		User:    *user,
	})
}

// Roles lists the roles a visitor can sign up with.
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	httputil.RespondWithJSON(w, http.StatusOK, account.Catalogue())
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if IsValidation(err) {
		httputil.RespondWithError(w, http.StatusBadRequest, clientMessage(err))
		return
	}
	if errors.Is(err, ErrPersistence) {
		h.logger.ErrorContext(r.Context(), "signup failed", "error", err)
	} else {
		h.logger.ErrorContext(r.Context(), "unexpected signup error", "error", err)
	}
	httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
}

// clientMessage turns a validation error into the message shown to the client.
func clientMessage(err error) string {
	var missingID *MissingRoleIDError
	switch {
	case errors.Is(err, ErrMissingField):
		return "All required fields are mandatory"
	case errors.Is(err, ErrDuplicateEmail):
		return "Email is already registered"
	case errors.As(err, &missingID):
		return missingID.Error()
	case errors.Is(err, ErrInvalidRole):
		return "Invalid role"
	case errors.Is(err, ErrInvalidField):
		field := strings.TrimPrefix(err.Error(), ErrInvalidField.Error())
		return "Invalid field" + field
	default:
		return "Invalid request"
	}
}
