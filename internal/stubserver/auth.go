package stubserver

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// validKey returns true if providedKey matches configKey.
func validKey(providedKey, configKey string) bool {
	if configKey == "" || providedKey == "" {
		return false
	}
	if len(providedKey) != len(configKey) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(providedKey), []byte(configKey)) == 1
}

// extractKey pulls the credential from either acceptor: the bearer
// Authorization header or the X-Api-Key header. The dispatcher sends both;
// either alone is enough.
func extractKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		const prefix = "Bearer "
		if strings.HasPrefix(auth, prefix) {
			if key := strings.TrimSpace(auth[len(prefix):]); key != "" {
				return key
			}
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Api-Key"))
}

// authMiddleware validates the API key. An empty configured key disables
// authentication entirely, which is the default for local development.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		if !validKey(extractKey(r), s.config.APIKey) {
			s.writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}
