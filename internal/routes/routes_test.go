package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"emotioncam/internal/config"
	"emotioncam/internal/logger"
)

func TestSetupRoutes_Auth(t *testing.T) {
	router := SetupRoutes(Deps{}, &config.Config{Password: "secret"}, logger.Discard())

	tests := []struct {
		name     string
		method   string
		path     string
		wantCode int
	}{
		{"api needs a cookie", http.MethodGet, "/api/snapshots/stats", http.StatusUnauthorized},
		{"pages redirect to login", http.MethodGet, "/gallery", http.StatusSeeOther},
		{"camera ingest is open", http.MethodGet, "/camera/frame", http.StatusMethodNotAllowed},
		{"login is open", http.MethodGet, "/auth/login", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			if rr.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, rr.Code)
			}
		})
	}
}
