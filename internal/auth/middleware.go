package auth

import (
	"net/http"
	"strings"

	"github.com/privachat/statledger/internal/apperror"
)

// ErrorWriter renders an apperror kind as an HTTP response.
type ErrorWriter func(w http.ResponseWriter, err error)

// RequireSubject rejects requests whose bearer token is missing or invalid
// (apperror.Unauthorized) or whose subject differs from the user id the route
// addresses (apperror.Forbidden). userIDOf extracts that id from the request,
// typically a path parameter; writeErr renders the rejection.
func RequireSubject(tokens *TokenService, userIDOf func(*http.Request) string, writeErr ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := extractSubject(r, tokens)
			if err != nil {
				writeErr(w, apperror.Unauthorized("valid authentication required"))
				return
			}
			if subject != userIDOf(r) {
				writeErr(w, apperror.Forbidden("token does not grant access to this user"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractSubject reads the token from the Authorization header, falling back
// to a "token" cookie for browser clients.
func extractSubject(r *http.Request, tokens *TokenService) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		raw, ok := strings.CutPrefix(h, "Bearer ")
		if !ok {
			raw, ok = strings.CutPrefix(h, "bearer ")
		}
		if ok {
			return tokens.Validate(strings.TrimSpace(raw))
		}
	}

	cookie, err := r.Cookie("token")
	if err != nil {
		return "", err
	}
	return tokens.Validate(cookie.Value)
}
