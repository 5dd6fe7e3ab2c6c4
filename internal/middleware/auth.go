package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/taplab/salesdash/internal/auth"
	"github.com/taplab/salesdash/internal/enum"
)

type contextKey string

const claimsKey contextKey = "claims"

// Authenticate requires a dashboard token when secret is set; with an empty
// secret every request passes. The token is read from the Authorization
// header, or from the token query parameter for websocket clients.
func Authenticate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, enum.ErrCodeUnauthorized, msg)
				return
			}

			claims, err := auth.ValidateToken(secret, token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, enum.ErrCodeUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		if t := r.URL.Query().Get("token"); t != "" {
			return t, ""
		}
		return "", "missing authorization header"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "invalid authorization format"
	}
	return strings.TrimSpace(parts[1]), "invalid authorization format"
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": code, "message": message})
}
