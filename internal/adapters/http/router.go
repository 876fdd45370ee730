package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter registers the investment core's HTTP routes. Health probes stay
// outside the actor middleware so orchestrators can reach them unauthenticated.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware)

	r.Get("/healthz", handler.healthz)
	r.Get("/readyz", handler.readyz)

	r.Route("/v1", func(r chi.Router) {
		r.Use(actorMiddleware)

		r.Route("/offerings", func(r chi.Router) {
			r.Post("/", handler.createOffering)
			r.Get("/", handler.listOfferings)
			r.Get("/{offering_id}", handler.getOffering)
			r.Get("/{offering_id}/requests", handler.listOfferingRequests)

			r.Post("/{offering_id}/deletion", handler.openDeletion)
			r.Get("/{offering_id}/deletion", handler.getDeletionStatus)
			r.Post("/{offering_id}/deletion/confirm", handler.confirmDeletion)
			r.Post("/{offering_id}/deletion/abort", handler.abortDeletion)
		})

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", handler.createRequest)
			r.Get("/", handler.listMyRequests)
			r.Get("/{request_id}", handler.getRequest)
			r.Post("/{request_id}/approve", handler.approveRequest)
			r.Post("/{request_id}/reject", handler.rejectRequest)
			r.Post("/{request_id}/pay", handler.payRequest)
			r.Post("/{request_id}/cancel", handler.cancelRequest)
			r.Post("/{request_id}/force-cancel", handler.forceCancelRequest)
		})
	})

	return r
}
