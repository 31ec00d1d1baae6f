package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raffleapp/registration/internal/middleware"
)

// SetupRoutes mounts the registration form. Submissions go through the
// per-client throttle; page loads do not.
func (h *Handler) SetupRoutes(throttle *middleware.Throttle) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Index)
	r.Group(func(r chi.Router) {
		if throttle != nil {
			r.Use(throttle.Limit(h.Throttled))
		}
		r.Post("/", h.Submit)
	})
	return r
}
