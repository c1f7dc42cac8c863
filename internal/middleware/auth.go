package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/voxtask/voxtask/internal/models"
	"github.com/voxtask/voxtask/internal/request"
	"github.com/voxtask/voxtask/internal/services/oidc"
	"go.uber.org/zap"
)

// Auth creates authentication middleware that validates bearer tokens and
// attaches the resolved user to the request context.
func Auth(verifier *oidc.Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondAuthError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondAuthError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			claims, err := verifier.Verify(r.Context(), parts[1])
			if err != nil {
				logger.Warn("token_verification_failed", zap.Error(err))
				respondAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			user := &models.User{
				ID:    claims.Sub,
				Email: claims.Email,
				Name:  claims.Name,
			}
			next.ServeHTTP(w, r.WithContext(request.WithUser(r.Context(), user)))
		})
	}
}

func respondAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success": false,
		"error":   message,
	}
	_ = json.NewEncoder(w).Encode(response)
}
