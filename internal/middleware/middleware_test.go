package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lalith-99/inkwell/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const secret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(logger))
	whoami := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetUserID(c), "email": GetEmail(c)})
	}
	r.GET("/whoami", AuthMiddleware(secret), whoami)
	r.GET("/maybe", OptionalAuthMiddleware(secret), whoami)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, "ada@example.com", secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
		status int
	}{
		{"bearer header", "/whoami", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "/whoami", "bearer " + token, http.StatusOK},
		{"query token", "/whoami?token=" + token, "", http.StatusOK},
		{"missing", "/whoami", "", http.StatusUnauthorized},
		{"wrong scheme", "/whoami", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/whoami", "Bearer nope", http.StatusUnauthorized},
	}

	r := newRouter(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Contains(t, w.Body.String(), userID.String())
				assert.Contains(t, w.Body.String(), "ada@example.com")
			} else {
				assert.Contains(t, w.Body.String(), `"error"`)
			}
		})
	}
}

func TestOptionalAuthMiddleware(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, "ada@example.com", secret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		want   string
	}{
		{"anonymous", "", http.StatusOK, uuid.Nil.String()},
		{"signed in", "Bearer " + token, http.StatusOK, userID.String()},
		{"bad token", "Bearer nope", http.StatusUnauthorized, `"error"`},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, `"error"`},
	}

	r := newRouter(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/maybe", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}

func TestHelpersWithoutClaims(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uuid.Nil, GetUserID(c))
	assert.Equal(t, "", GetEmail(c))

	c.Set(ContextKeyUserID, "not-a-uuid")
	assert.Equal(t, uuid.Nil, GetUserID(c))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := newRouter(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/whoami", fields["route"])
	assert.EqualValues(t, http.StatusUnauthorized, fields["status"])
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
}
