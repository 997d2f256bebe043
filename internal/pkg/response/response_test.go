package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	appErr "github.com/xxxsen/evoting/internal/pkg/errors"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  *appErr.CodeError
		want int
	}{
		{appErr.ErrInvalidCode, http.StatusBadRequest},
		{appErr.ErrAlreadyVoted, http.StatusConflict},
		{appErr.ErrBadCredentials, http.StatusUnauthorized},
		{appErr.ErrForbidden, http.StatusForbidden},
		{appErr.ErrForbidden.WithMsg("admins only"), http.StatusForbidden},
		{appErr.ErrUnknownCandidate, http.StatusNotFound},
		{appErr.ErrCooldown, http.StatusTooManyRequests},
		{appErr.ErrTransient, http.StatusServiceUnavailable},
		{appErr.ErrInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			require.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestFailHidesUnclassified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Fail(c, errors.New("pq: connection refused to 10.0.0.1"))
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var body struct {
		Error APIError `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "internal", body.Error.Code)
	require.NotContains(t, body.Error.Message, "10.0.0.1")
}

func TestFailUnwrapsSentinel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	Fail(c, fmt.Errorf("cast vote: %w", appErr.ErrAlreadyVoted))
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "already_voted")
}
