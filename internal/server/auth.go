package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// apiAuth guards operator endpoints with the configured API token.
// No token configured means open access (single-box deployments).
func (s *Server) apiAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.bearerAuth(next, func() string { return s.cfg.Paths.APIToken })
}

// callbackAuth guards the worker callback with its dedicated token.
func (s *Server) callbackAuth(next http.HandlerFunc) http.HandlerFunc {
	return s.bearerAuth(next, func() string { return s.cfg.Worker.CallbackToken })
}

func (s *Server) bearerAuth(next http.HandlerFunc, token func() string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		expected := token()
		if expected == "" {
			next(w, r)
			return
		}
		presented := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid or missing token")
			return
		}
		next(w, r)
	}
}
