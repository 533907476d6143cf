package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/ripplegate/ripplegate/config"
	"github.com/ripplegate/ripplegate/internal/handlers"
	"github.com/ripplegate/ripplegate/internal/purchase"
	"github.com/ripplegate/ripplegate/internal/store"
	"github.com/ripplegate/ripplegate/internal/testutil"
)

func TestSetupRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := store.New(testutil.NewTestDB(t))
	h := handlers.New(st, purchase.NewService(st, nil), nil, handlers.AuthConfig{Secret: "s"})

	r := gin.New()
	setupRoutes(r, h, &config.Config{JWTSecret: "s", EnableMetrics: true})

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/events", http.StatusOK},
		{http.MethodPost, "/events", http.StatusUnauthorized},
		{http.MethodGet, "/auth/me", http.StatusUnauthorized},
		{http.MethodGet, "/tickets/activity", http.StatusOK},
		{http.MethodGet, "/tickets/pending", http.StatusUnauthorized},
		{http.MethodGet, "/tickets/verify/not-a-uuid", http.StatusBadRequest},
		{http.MethodGet, "/tickets/user/not-a-uuid", http.StatusBadRequest},
		{http.MethodGet, "/tickets/00000000-0000-0000-0000-000000000000/qr", http.StatusUnauthorized},
		{http.MethodPost, "/tickets/validate", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
