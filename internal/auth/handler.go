package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"college-erp/common/httputil"
	"college-erp/internal/account"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type Handler struct {
	service       *Service
	middleware    *Middleware
	logger        *slog.Logger
	validator     *validator.Validate
	secureCookies bool
}

func NewHandler(service *Service, middleware *Middleware, logger *slog.Logger, secureCookies bool) *Handler {
	return &Handler{
		service:       service,
		middleware:    middleware,
		logger:        logger,
		validator:     validator.New(),
		secureCookies: secureCookies,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/signin", h.SignIn)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
	r.With(h.middleware.Authenticate).Get("/auth/session", h.Session)
}

// SignIn authenticates with email and password
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrAccountDisabled) {
			h.logger.InfoContext(r.Context(), "sign-in rejected", "reason", err.Error())
			httputil.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "sign-in failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.logger.InfoContext(r.Context(), "account signed in", "account_id", resp.User.ID, "role", resp.User.Role)

	SetAuthCookie(w, resp.AccessToken, h.service.tokens.TTL(), h.secureCookies)
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

// Refresh rotates the token pair
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.RespondWithError(w, http.StatusBadRequest, "refreshToken is required")
		return
	}

	resp, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidRefreshToken) || errors.Is(err, ErrAccountDisabled) {
			httputil.RespondWithError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "token refresh failed", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	SetAuthCookie(w, resp.AccessToken, h.service.tokens.TTL(), h.secureCookies)
	httputil.RespondWithJSON(w, http.StatusOK, resp)
}

// Logout invalidates the refresh token and clears the cookie
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "failed to decode request", "error", err)
		httputil.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.RefreshToken != "" {
		if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
			h.logger.ErrorContext(r.Context(), "logout failed", "error", err)
			httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	ClearAuthCookie(w, h.secureCookies)
	w.WriteHeader(http.StatusNoContent)
}

// Session returns the signed-in account and its profile
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaims(r.Context())
	if !ok {
		httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := h.service.Session(r.Context(), claims)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, account.ErrAccountNotFound) {
			httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		h.logger.ErrorContext(r.Context(), "failed to load session", "error", err)
		httputil.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	httputil.RespondWithJSON(w, http.StatusOK, resp)
}
