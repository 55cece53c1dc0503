package httputil_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"college-erp/common/httputil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupBody struct {
	Username string `json:"username"`
}

func decode(t *testing.T, body string) (signupBody, error) {
	t.Helper()
	var dst signupBody
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := httputil.DecodeJSON(httptest.NewRecorder(), req, &dst)
	return dst, err
}

func TestDecodeJSON(t *testing.T) {
	t.Run("UnknownFieldsIgnored", func(t *testing.T) {
		got, err := decode(t, `{"username":"alice","confirmPassword":"pw123"}`)

		require.NoError(t, err)
		assert.Equal(t, "alice", got.Username)
	})

	t.Run("TrailingDataRejected", func(t *testing.T) {
		_, err := decode(t, `{"username":"alice"}{"username":"bob"}`)

		assert.ErrorIs(t, err, httputil.ErrInvalidBody)
	})

	t.Run("MalformedRejected", func(t *testing.T) {
		_, err := decode(t, `{"username":`)

		assert.ErrorIs(t, err, httputil.ErrInvalidBody)
	})

	t.Run("OversizedRejected", func(t *testing.T) {
		body := `{"username":"` + strings.Repeat("a", httputil.MaxBodyBytes) + `"}`

		_, err := decode(t, body)

		assert.ErrorIs(t, err, httputil.ErrInvalidBody)
	})
}

func TestRespondWithError(t *testing.T) {
	w := httptest.NewRecorder()

	httputil.RespondWithError(w, http.StatusBadRequest, "Invalid role")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Invalid role"}`, w.Body.String())
}
