package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"trade_market/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) { //nolint:funlen
	r.Route("/", func(r chi.Router) {
		r.Route("/v1", func(r chi.Router) {
			// unauthorized zone, токен передаётся в query
			r.Get("/ws", handler(s.getV1WS))

			// authorized zone
			r.Group(func(r chi.Router) {
				r.Use(s.authenticate)

				r.Route("/trades", func(r chi.Router) {
					r.Post("/", handler(s.postV1Trade))
					r.Get("/", handler(s.getV1Trades))
					r.Get("/existing", handler(s.getV1ExistingTrade))

					r.Route("/{trade_id}", func(r chi.Router) {
						r.Get("/", handler(s.getV1Trade))
						r.Get("/thread", handler(s.getV1OfferThread))
						r.Post("/offers", handler(s.postV1Offer))
						r.Get("/offers", handler(s.getV1Offers))
						r.Post("/offers/{offer_id}/counter", handler(s.postV1CounterOffer))
						r.Get("/offers/{offer_id}/counters", handler(s.getV1CounterOffers))
					})
				})

				r.Put("/offers/{offer_id}/status", handler(s.putV1OfferStatus))

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", handler(s.getV1Notifications))
					r.Put("/{notification_id}/read", handler(s.putV1NotificationRead))
					r.Delete("/{notification_id}", handler(s.deleteV1Notification))
				})
			})
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
