package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/visit-content/pkg/visitcontent"
)

// SchedulerIdentity owns the events queued by scheduled syncs.
var SchedulerIdentity = visitcontent.Identity{ID: "scheduler"}

// SchedulerRoutes serves POST /sync for cron jobs that hold an API key
// instead of an operator token. guard authenticates the caller and bind
// attaches SchedulerIdentity in the form the console's auth provider reads.
func (h *Handler) SchedulerRoutes(guard Middleware, bind func(context.Context, visitcontent.Identity) context.Context) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(h.logger))
	r.Use(LoggingMiddleware(h.logger))
	r.Use(guard)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(bind(r.Context(), SchedulerIdentity)))
		})
	})
	r.Use(SessionMiddleware(h.console, h.logger))

	r.Post("/sync", h.SyncEvents)
	return r
}
