package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
)

// UserIDParam returns the {user_id} path segment, unescaped. Matrix ids such
// as "@alice:matrix.org" arrive verbatim; anything percent-encoded is decoded.
func UserIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "user_id")
	if id, err := url.PathUnescape(raw); err == nil {
		raw = id
	}
	return strings.TrimSpace(raw)
}
