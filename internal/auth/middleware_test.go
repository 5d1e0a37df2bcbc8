package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// dummyHandler returns a simple 200 OK handler used as the "next" handler in middleware tests.
func dummyHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func Test_NewAuthMiddleware_Cases(t *testing.T) {
	const correctToken = "correct-token"

	tests := []struct {
		name           string
		configToken    string
		authHeader     string
		setAuthHeader  bool
		wantStatusCode int
	}{
		{"valid token passes through", correctToken, "Bearer correct-token", true, http.StatusOK},
		{"missing header", correctToken, "", false, http.StatusUnauthorized},
		{"wrong token", correctToken, "Bearer wrong", true, http.StatusUnauthorized},
		{"lowercase prefix", correctToken, "bearer correct-token", true, http.StatusUnauthorized},
		{"extra space", correctToken, "Bearer  correct-token", true, http.StatusUnauthorized},
		{"empty token value", correctToken, "Bearer ", true, http.StatusUnauthorized},
		{"token prefix only", correctToken, "Bearer correct", true, http.StatusUnauthorized},
		{"basic auth", correctToken, "Basic Y29ycmVjdC10b2tlbg==", true, http.StatusUnauthorized},
		{"auth disabled without header", "", "", false, http.StatusOK},
		{"auth disabled with any header", "", "Bearer whatever", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			handler := NewAuthMiddleware(tt.configToken)(dummyHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/power_cfg", nil)
			if tt.setAuthHeader {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatusCode {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatusCode)
			}
			if called != (tt.wantStatusCode == http.StatusOK) {
				t.Errorf("next handler called = %v, want %v", called, !called)
			}
			if rec.Code == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
				t.Error("401 response must carry WWW-Authenticate")
			}
		})
	}
}

func Test_Authorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/power_cfg", nil)
	if Authorized(req, "t") {
		t.Error("request without header must not be authorized")
	}
	req.Header.Set("Authorization", "Bearer t")
	if !Authorized(req, "t") {
		t.Error("request with matching token must be authorized")
	}
}
