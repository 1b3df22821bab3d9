package router

import (
	"greenstay/internal/handlers/booking"
	"greenstay/internal/handlers/homestay"
	"greenstay/internal/handlers/payment"
	"greenstay/internal/handlers/promotion"

	"github.com/go-chi/chi/v5"
)

type DomainHandlers struct {
	Homestay  homestay.Handler
	Promotion promotion.Handler
	Booking   booking.Handler
	Payment   payment.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Route("/v1", func(routerGroup chi.Router) {
		r.DomainHandlers.Homestay.Router(routerGroup)
		r.DomainHandlers.Promotion.Router(routerGroup)
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Payment.Router(routerGroup)
	})
}

func New(domainHandlers DomainHandlers) Router {
	return Router{
		DomainHandlers: domainHandlers,
	}
}
