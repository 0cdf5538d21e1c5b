package auth

import (
	"encoding/json"
	"net/http"
	"strings"
)

// HTTPMiddleware rejects unauthenticated writes to the company routes with a
// 401. Reads, logos and health checks pass through untouched.
func HTTPMiddleware(next http.Handler, jwtSecret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isProtectedRequest(r) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := parseBearer(r.Header.Get("Authorization"))
		if err != nil {
			unauthenticated(w)
			return
		}
		claims, err := validateToken(tokenString, jwtSecret)
		if err != nil {
			unauthenticated(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func isProtectedRequest(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return false
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	return path == "/company" || strings.HasPrefix(path, "/company/")
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="company"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Unauthenticated."})
}
