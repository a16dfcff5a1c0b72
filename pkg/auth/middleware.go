package auth

import (
	"context"
	"net/http"
	"strings"

	apperrors "seatbook/pkg/errors"
	httputil "seatbook/pkg/http"
	"seatbook/pkg/logger"
	"seatbook/pkg/model"
)

type contextKey string

const callerKey contextKey = "caller"

func WithCaller(ctx context.Context, caller model.CallerIdentity) context.Context {
	return context.WithValue(ctx, callerKey, caller)
}

func CallerFromContext(ctx context.Context) (model.CallerIdentity, bool) {
	caller, ok := ctx.Value(callerKey).(model.CallerIdentity)
	return caller, ok
}

// Authenticate verifies the bearer token and stores the caller identity in
// the request context. Requests without a valid token never reach next.
func Authenticate(v *Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				_ = httputil.WriteError(w, apperrors.Unauthorized("Missing bearer token"))
				return
			}

			claims, err := v.Parse(raw)
			if err != nil {
				log.Info("Rejected bearer token",
					"request_id", logger.RequestID(r.Context()),
					"path", r.URL.Path,
					"error", err,
				)
				_ = httputil.WriteError(w, apperrors.Unauthorized("Invalid or expired token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), claims.Identity())))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
