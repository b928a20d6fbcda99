package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/aashish-nepal/Raadhya-Ethnica-sub000/pkg/httpapi"
	"github.com/go-chi/chi/v5/middleware"
)

const headerRequestID = "X-Request-ID"

// AuthMiddleware decides the identity headers the services trust. Client
// supplied role headers are always dropped; a bearer token equal to
// adminToken grants the admin role. The user id is taken from X-User-ID as
// sent by the storefront session (replace with real token validation).
func AuthMiddleware(adminToken string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Header.Del(httpapi.HeaderUserRole)

			token := bearerToken(r)
			if adminToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) == 1 {
				r.Header.Set(httpapi.HeaderUserRole, httpapi.RoleAdmin)
				if r.Header.Get(httpapi.HeaderUserID) == "" {
					r.Header.Set(httpapi.HeaderUserID, httpapi.RoleAdmin)
				}
			}
			r.Header.Del("Authorization")

			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequestIDMiddleware echoes chi's request id to the client and forwards it
// upstream so every service logs the same id. It must run after
// middleware.RequestID.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())
		if requestID != "" {
			r.Header.Set(headerRequestID, requestID)
			w.Header().Set(headerRequestID, requestID)
		}
		next.ServeHTTP(w, r)
	})
}
