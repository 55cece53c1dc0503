package auth

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"college-erp/common/httputil"
	"college-erp/internal/account"
)

type contextKey string

// ClaimsKey is the context key for the authenticated Claims
const ClaimsKey contextKey = "claims"

const cookieName = "token"

// Middleware validates access tokens on protected routes.
type Middleware struct {
	tokens *TokenManager
	logger *slog.Logger
}

func NewMiddleware(tokens *TokenManager, logger *slog.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		logger: logger,
	}
}

// Authenticate accepts the token cookie or a Bearer Authorization header and
// stores the claims in the request context.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			m.logger.WarnContext(r.Context(), "no auth token found", "path", r.URL.Path)
			httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			m.logger.WarnContext(r.Context(), "invalid token", "error", err)
			httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole rejects authenticated requests whose role is not in roles.
// It must run after Authenticate.
func RequireRole(roles ...account.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetClaims(r.Context())
			if !ok {
				httputil.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				httputil.RespondWithError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetClaims extracts the authenticated claims from context
func GetClaims(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*Claims)
	return claims, ok
}

// tokenFromRequest prefers an explicit Bearer header over the session cookie.
func tokenFromRequest(r *http.Request) string {
	if scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		if token = strings.TrimSpace(token); token != "" {
			return token
		}
	}
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// SetAuthCookie sets the access token in an HttpOnly cookie
func SetAuthCookie(w http.ResponseWriter, token string, ttl time.Duration, secure bool) {
	// Secure deployments are same-site only, local runs stay usable from API tools.
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteStrictMode
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    token,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
	})
}

// ClearAuthCookie removes the auth cookie
func ClearAuthCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    "",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
		MaxAge:   -1,
	})
}
