package registration_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"college-erp/internal/registration"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(store registration.Store) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := registration.NewHandler(newTestService(store), logger)

	r := chi.NewRouter()
	r.Route("/api", handler.RegisterRoutes)
	return r
}

func postSignup(t *testing.T, router http.Handler, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		payload, err = json.Marshal(b)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestSignupHandler(t *testing.T) {
	alice := map[string]any{
		"username":  "alice",
		"email":     "a@x.com",
		"password":  "pw123",
		"role":      "student",
		"studentId": "S1",
	}

	t.Run("StudentSignupSucceeds", func(t *testing.T) {
		router := setupRouter(newFakeStore())

		w, resp := postSignup(t, router, alice)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, "Registration successful", resp["message"])

		user, ok := resp["user"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "student", user["role"])
		assert.Equal(t, "alice", user["username"])
		assert.Equal(t, "a@x.com", user["email"])
		assert.NotEmpty(t, user["id"])
		assert.Contains(t, user, "avatar")
		assert.NotContains(t, user, "password")
		assert.NotContains(t, user, "passwordHash")
		assert.NotContains(t, w.Body.String(), "pw123")
	})

	t.Run("RepeatedRequestIsDuplicate", func(t *testing.T) {
		store := newFakeStore()
		router := setupRouter(store)

		w, _ := postSignup(t, router, alice)
		require.Equal(t, http.StatusOK, w.Code)

		w, resp := postSignup(t, router, alice)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Email is already registered", resp["error"])
		assert.Equal(t, 1, store.accountCount())
	})

	t.Run("StudentIDOmitted", func(t *testing.T) {
		router := setupRouter(newFakeStore())

		w, resp := postSignup(t, router, map[string]any{
			"username": "alice",
			"email":    "a@x.com",
			"password": "pw123",
			"role":     "student",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Student ID required", resp["error"])
	})

	t.Run("FacultyIDOmitted", func(t *testing.T) {
		router := setupRouter(newFakeStore())

		w, resp := postSignup(t, router, map[string]any{
			"username": "bob",
			"email":    "b@x.com",
			"password": "pw123",
			"role":     "faculty",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Faculty ID required", resp["error"])
	})

	t.Run("UnsupportedRole", func(t *testing.T) {
		router := setupRouter(newFakeStore())

		w, resp := postSignup(t, router, map[string]any{
			"username":  "alice",
			"email":     "a@x.com",
			"password":  "pw123",
			"role":      "manager",
			"studentId": "S1",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid role", resp["error"])
	})

	t.Run("MissingFields", func(t *testing.T) {
		router := setupRouter(newFakeStore())

		w, resp := postSignup(t, router, map[string]any{"email": "a@x.com"})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "All required fields are mandatory", resp["error"])
	})

	t.Run("InvalidDateNamesField", func(t *testing.T) {
		store := newFakeStore()
		router := setupRouter(store)

		w, resp := postSignup(t, router, map[string]any{
			"username":    "alice",
			"email":       "a@x.com",
			"password":    "pw123",
			"role":        "student",
			"studentId":   "S1",
			"dateOfBirth": "02/09/2001",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Invalid field: dateOfBirth", resp["error"])
		assert.Zero(t, store.accountCount())
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		router := setupRouter(newFakeStore())

		w, resp := postSignup(t, router, `{"username": "alice",`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid request body", resp["error"])
	})

	t.Run("PersistenceFailureHidesDetails", func(t *testing.T) {
		store := newFakeStore()
		store.accountErr = errors.New(`pq: relation "accounts" does not exist`)
		router := setupRouter(store)

		w, resp := postSignup(t, router, alice)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Internal server error", resp["error"])
		assert.NotContains(t, w.Body.String(), "relation")
	})
}

func TestRolesHandler(t *testing.T) {
	router := setupRouter(newFakeStore())

	req := httptest.NewRequest(http.MethodGet, "/api/auth/roles", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var roles []struct {
		Value       string `json:"value"`
		Label       string `json:"label"`
		Description string `json:"description"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roles))
	require.Len(t, roles, 3)
	assert.Equal(t, "student", roles[0].Value)
	assert.Equal(t, "Faculty", roles[1].Label)
	assert.Equal(t, "admin", roles[2].Value)
	assert.NotEmpty(t, roles[2].Description)
}
