package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestHandler(t *testing.T) {
	tests := []struct {
		name        string
		origins     []string
		method      string
		origin      string
		preflight   bool
		wantCode    int
		wantAllowed string
	}{
		{"no origin header", []string{"*"}, http.MethodGet, "", false, http.StatusOK, ""},
		{"wildcard", []string{"*"}, http.MethodGet, "http://localhost:5173", false, http.StatusOK, "*"},
		{"listed origin echoed", []string{"http://localhost:5173"}, http.MethodPost, "http://localhost:5173", false, http.StatusOK, "http://localhost:5173"},
		{"unlisted origin", []string{"http://localhost:5173"}, http.MethodGet, "https://evil.example", false, http.StatusOK, ""},
		{"preflight", []string{"*"}, http.MethodOptions, "http://localhost:5173", true, http.StatusNoContent, "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(Config{AllowedOrigins: tt.origins}).Handler(okHandler())
			req := httptest.NewRequest(tt.method, "/api/transactions", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPut)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowed {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllowed)
			}
			if tt.preflight {
				if rec.Header().Get("Access-Control-Allow-Methods") == "" || rec.Header().Get("Access-Control-Max-Age") != "600" {
					t.Errorf("preflight headers missing: %v", rec.Header())
				}
			}
		})
	}
}
