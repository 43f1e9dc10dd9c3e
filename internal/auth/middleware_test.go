package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/privachat/statledger/internal/handler"
)

// protected wraps a handler that echoes the addressed user. The user id comes
// from the X-Target header to keep tests router-free; rejections go through
// the API's shared error writer.
func protected(ts *TokenService) http.Handler {
	target := func(r *http.Request) string { return r.Header.Get("X-Target") }
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(target(r)))
	})
	return RequireSubject(ts, target, handler.WriteError)(next)
}

func TestRequireSubject(t *testing.T) {
	ts := newTestTokenService(t)
	alice, _ := ts.Generate("alice")

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantBody   string
		wantError  string
	}{
		{
			name:       "missing token",
			setup:      func(r *http.Request) { r.Header.Set("X-Target", "alice") },
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
		{
			name: "bearer token for the addressed user",
			setup: func(r *http.Request) {
				r.Header.Set("X-Target", "alice")
				r.Header.Set("Authorization", "Bearer "+alice)
			},
			wantStatus: http.StatusOK,
			wantBody:   "alice",
		},
		{
			name: "cookie token for the addressed user",
			setup: func(r *http.Request) {
				r.Header.Set("X-Target", "alice")
				r.AddCookie(&http.Cookie{Name: "token", Value: alice})
			},
			wantStatus: http.StatusOK,
			wantBody:   "alice",
		},
		{
			name: "token for another user",
			setup: func(r *http.Request) {
				r.Header.Set("X-Target", "bob")
				r.Header.Set("Authorization", "Bearer "+alice)
			},
			wantStatus: http.StatusForbidden,
			wantError:  "forbidden",
		},
		{
			name: "garbage token",
			setup: func(r *http.Request) {
				r.Header.Set("X-Target", "alice")
				r.Header.Set("Authorization", "Bearer nope")
			},
			wantStatus: http.StatusUnauthorized,
			wantError:  "unauthorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			tt.setup(req)
			rr := httptest.NewRecorder()

			protected(ts).ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rr.Body.String())
			}
			if tt.wantError != "" {
				assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
				var body handler.ErrorResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
				assert.Equal(t, tt.wantError, body.Error)
				assert.NotEmpty(t, body.Message)
			}
		})
	}
}
