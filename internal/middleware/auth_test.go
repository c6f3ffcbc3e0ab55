package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAuthMiddleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AuthMiddleware(ok)

	tests := []struct {
		name     string
		path     string
		cookie   string
		ajax     bool
		wantCode int
	}{
		{"login page is public", "/login", "", false, http.StatusOK},
		{"login endpoint is public", "/auth/login", "", false, http.StatusOK},
		{"camera ingest is public", "/camera/frame", "", false, http.StatusOK},
		{"static assets are public", "/static/app.js", "", false, http.StatusOK},
		{"page redirects without cookie", "/gallery", "", false, http.StatusSeeOther},
		{"api rejects without cookie", "/api/snapshots", "", false, http.StatusUnauthorized},
		{"ajax rejects without cookie", "/gallery", "", true, http.StatusUnauthorized},
		{"wrong cookie value", "/gallery", "false", false, http.StatusSeeOther},
		{"authenticated", "/api/snapshots", "true", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "authenticated", Value: tt.cookie})
			}
			if tt.ajax {
				req.Header.Set("X-Requested-With", "XMLHttpRequest")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("got status %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusSeeOther && rec.Header().Get("Location") != "/login" {
				t.Errorf("redirect location = %q", rec.Header().Get("Location"))
			}
		})
	}
}
