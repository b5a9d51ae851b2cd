package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/rentalkit-backend/api/responses"
	pkgAuth "github.com/angelmondragon/rentalkit-backend/pkg/auth"
	"github.com/angelmondragon/rentalkit-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
)

const (
	sessionIDHeader    = "X-Session-Id"
	maxSessionIDLength = 128
)

// Identity seeds the request context with the shopper's identity. The bearer
// token is optional; when present it must be valid. The X-Session-Id header
// names the browsing session and falls back to the token's session claim.
func Identity(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if len(sessionID) > maxSessionIDLength {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session id too long"))
				return
			}

			if raw := strings.TrimSpace(r.Header.Get("Authorization")); raw != "" {
				token, ok := pkgAuth.BearerToken(raw)
				if !ok {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
					return
				}
				claims, err := pkgAuth.ParseAccessToken(cfg, token)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
					return
				}
				ctx = WithUserID(ctx, claims.UserID)
				if logg != nil {
					ctx = logg.WithUserID(ctx, claims.UserID)
				}
				if sessionID == "" {
					sessionID = claims.SessionID
				}
			}

			if sessionID != "" {
				ctx = WithSessionID(ctx, sessionID)
				if logg != nil {
					ctx = logg.WithSessionID(ctx, sessionID)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects requests that carry no browsing session.
func RequireSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if SessionIDFromContext(r.Context()) == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Session-Id header is required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
