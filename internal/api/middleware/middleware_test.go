package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"hackmate/backend/internal/api/middleware"
	"hackmate/backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func issuer() *middleware.TokenIssuer {
	return middleware.NewTokenIssuer(config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour, Issuer: "hackmate"})
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	tokens := issuer()
	raw, err := tokens.Issue("user-1", "Ana")
	require.NoError(t, err)

	claims, err := tokens.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Ana", claims.Name)
	assert.Equal(t, "hackmate", claims.Issuer)
}

func TestTokenIssuer_Rejects(t *testing.T) {
	raw, err := issuer().Issue("user-1", "Ana")
	require.NoError(t, err)

	other := middleware.NewTokenIssuer(config.AuthConfig{JWTSecret: "other", TokenTTL: time.Hour, Issuer: "hackmate"})
	_, err = other.Parse(raw)
	assert.ErrorIs(t, err, middleware.ErrInvalidToken)

	wrongIssuer := middleware.NewTokenIssuer(config.AuthConfig{JWTSecret: "secret", TokenTTL: time.Hour, Issuer: "someone"})
	_, err = wrongIssuer.Parse(raw)
	assert.ErrorIs(t, err, middleware.ErrInvalidToken)

	expired := middleware.NewTokenIssuer(config.AuthConfig{JWTSecret: "secret", TokenTTL: -time.Minute, Issuer: "hackmate"})
	raw, err = expired.Issue("user-1", "")
	require.NoError(t, err)
	_, err = expired.Parse(raw)
	assert.ErrorIs(t, err, middleware.ErrInvalidToken)
}

func TestRequireAuth(t *testing.T) {
	tokens := issuer()
	r := gin.New()
	r.GET("/private", middleware.RequireAuth(tokens), func(c *gin.Context) {
		id, name, ok := middleware.CurrentUser(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"id": id, "name": name})
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	raw, err := tokens.Issue("user-1", "Ana")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"user-1","name":"Ana"}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOriginAllowed(t *testing.T) {
	check := middleware.OriginAllowed([]string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))
}
