package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func newCORSRouter(origins ...string) *gin.Engine {
	router := gin.New()
	router.Use(CORS(origins))
	router.Any("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

// TestCORS はCORSミドルウェアを検証する。
func TestCORS(t *testing.T) {
	t.Parallel()

	router := newCORSRouter("http://localhost:5173", "https://example.com/")

	tests := []struct {
		name            string
		method          string
		origin          string
		requestMethod   string
		wantStatus      int
		wantAllowOrigin string
		wantAllowMethod bool
	}{
		{
			name:            "許可されたオリジンには資格情報付きで許可ヘッダーが付くこと",
			method:          http.MethodGet,
			origin:          "https://example.com",
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "https://example.com",
		},
		{
			name:       "許可されていないオリジンには許可ヘッダーが付かないこと",
			method:     http.MethodGet,
			origin:     "https://evil.example",
			wantStatus: http.StatusOK,
		},
		{
			name:            "プリフライトは204で応答されること",
			method:          http.MethodOptions,
			origin:          "http://localhost:5173",
			requestMethod:   http.MethodPost,
			wantStatus:      http.StatusNoContent,
			wantAllowOrigin: "http://localhost:5173",
			wantAllowMethod: true,
		},
		{
			name:          "許可されていないオリジンのプリフライトも後続には渡されないこと",
			method:        http.MethodOptions,
			origin:        "https://evil.example",
			requestMethod: http.MethodPost,
			wantStatus:    http.StatusNoContent,
		},
		{
			name:       "プリフライトでないOPTIONSは後続に渡されること",
			method:     http.MethodOptions,
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "/test", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.requestMethod != "" {
				req.Header.Set("Access-Control-Request-Method", tt.requestMethod)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("ステータスコード = %d, want %d", w.Code, tt.wantStatus)
			}
			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.wantAllowOrigin)
			}
			if tt.wantAllowOrigin != "" {
				if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
					t.Errorf("Access-Control-Allow-Credentials = %q, want true", got)
				}
			}
			if got := w.Header().Get("Access-Control-Allow-Methods") != ""; got != tt.wantAllowMethod {
				t.Errorf("Access-Control-Allow-Methods の有無 = %v, want %v", got, tt.wantAllowMethod)
			}
			if got := w.Header().Get("Vary"); got != "Origin" {
				t.Errorf("Vary = %q, want Origin", got)
			}
		})
	}
}

// TestCORSWildcard は "*" 指定時にリクエストのオリジンが返ることを検証する。
func TestCORSWildcard(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://any.example")
	w := httptest.NewRecorder()
	newCORSRouter("*").ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://any.example" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://any.example")
	}
}
