package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/familycare/visit-service/internal/core/domain"
)

// RequestLogger logs one line per request. Health and metrics probes are
// logged at debug.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			// The actor is attached further down the chain; capture it on the way out.
			holder := &actorHolder{}
			next.ServeHTTP(ww, r.WithContext(withActorHolder(r.Context(), holder)))

			level := slog.LevelInfo
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				level = slog.LevelError
			case isProbe(r.URL.Path):
				level = slog.LevelDebug
			}

			attrs := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", chimw.GetReqID(r.Context()),
			}
			if holder.actor.ID != "" {
				attrs = append(attrs, "actor_id", holder.actor.ID, "actor_role", holder.actor.Role)
			}
			logger.Log(r.Context(), level, "http request", attrs...)
		})
	}
}

func isProbe(path string) bool {
	switch path {
	case "/health", "/health/ready", "/health/live", "/metrics":
		return true
	}
	return false
}

// actorHolder lets Authenticate report the caller back to RequestLogger,
// which runs outside it.
type actorHolder struct {
	actor domain.Actor
}

type contextKeyActorHolder struct{}

func withActorHolder(ctx context.Context, h *actorHolder) context.Context {
	return context.WithValue(ctx, contextKeyActorHolder{}, h)
}

func recordActor(ctx context.Context, actor domain.Actor) {
	if h, ok := ctx.Value(contextKeyActorHolder{}).(*actorHolder); ok {
		h.actor = actor
	}
}
