package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/emilythestrangee/stackit/backend/internal/apperr"
)

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"validation", apperr.Validation("title is required"), http.StatusBadRequest, `{"error":"title is required"}`},
		{"unauthorized", apperr.Unauthorized("invalid credentials"), http.StatusUnauthorized, `{"error":"invalid credentials"}`},
		{"forbidden", apperr.Forbidden("not yours"), http.StatusForbidden, `{"error":"not yours"}`},
		{"not found", apperr.NotFound("question"), http.StatusNotFound, `{"error":"question not found"}`},
		{"bare sentinel", apperr.ErrNotFound, http.StatusNotFound, `{"error":"not found"}`},
		{"conflict", apperr.Conflict("taken"), http.StatusConflict, `{"error":"taken"}`},
		{"internal hides cause", apperr.Internal("boom", errors.New("dsn=secret")), http.StatusInternalServerError, `{"error":"Internal server error"}`},
		{"plain error", errors.New("pq: broken"), http.StatusInternalServerError, `{"error":"Internal server error"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, zerolog.Nop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.JSONEq(t, tt.body, w.Body.String())
		})
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://stackit.dev"})
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	assert.True(t, check(req("")))
	assert.True(t, check(req("https://stackit.dev")))
	assert.False(t, check(req("https://evil.example")))
	assert.True(t, originChecker([]string{"*"})(req("https://evil.example")))
}
