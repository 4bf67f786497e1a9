package handlers

import (
	"github.com/go-chi/chi"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.Get("/history", h.GetHistoryHandler)

		r.Route("/card", func(r chi.Router) {
			r.Get("/", h.GetCardHandler)
			r.Post("/scratch", h.ScratchHandler)
			r.Post("/scratch/cancel", h.CancelScratchHandler)
			r.Post("/activate", h.ActivateHandler)
			r.Post("/error/clear", h.ClearErrorHandler)
		})
	})
}
