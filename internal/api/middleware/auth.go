package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/narvanalabs/zapper/internal/api/errors"
	"github.com/narvanalabs/zapper/internal/auth"
	"github.com/narvanalabs/zapper/pkg/logger"
)

// GetSubject returns the authenticated token subject from the request context.
func GetSubject(ctx context.Context) string {
	if v, ok := ctx.Value(logger.SubjectKey).(string); ok {
		return v
	}
	return ""
}

// AuthMiddleware validates bearer tokens.
type AuthMiddleware struct {
	authService *auth.Service
	logger      *slog.Logger
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(authService *auth.Service, logger *slog.Logger) *AuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthMiddleware{authService: authService, logger: logger}
}

// Authenticate rejects requests without a valid bearer token. Browsers
// cannot set headers on WebSocket upgrades, so an access_token query
// parameter is accepted too.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = r.URL.Query().Get("access_token")
		}
		if token == "" {
			apierrors.WriteError(w, apierrors.NewUnauthorizedError("Missing authentication"))
			return
		}

		claims, err := m.authService.ValidateToken(token)
		if err != nil {
			m.logger.Debug("token validation failed", "error", err)
			if errors.Is(err, auth.ErrExpiredToken) {
				apierrors.WriteError(w, apierrors.NewUnauthorizedError("Token has expired"))
				return
			}
			apierrors.WriteError(w, apierrors.NewUnauthorizedError("Invalid token"))
			return
		}

		ctx := logger.ContextWithSubject(r.Context(), claims.Subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
