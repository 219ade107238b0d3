package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires every exposed route onto a chi router.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", h.Health)

	r.Route("/api/payment", func(r chi.Router) {
		r.Post("/create-order", h.CreateOrder)
		r.Post("/create-party-order", h.CreatePartyOrder)
		r.Post("/verify-payment", h.VerifyPayment)
		r.Get("/user-tickets/{email}", h.UserTickets)
		r.Get("/total-sold", h.TotalSold)
		r.Get("/early-bird-status", h.EarlyBirdStatus)

		// Admin operations; each checks the shared secret in the body.
		r.Post("/create-offline-order", h.CreateOfflineOrder)
		r.Post("/confirm-offline/{orderId}", h.ConfirmOffline)
		r.Post("/resend-email/{orderId}", h.ResendEmail)
		r.Post("/resend-reminder/{orderId}", h.ResendReminder)
		r.Post("/send-bulk-reminders", h.SendBulkReminders)
	})

	return r
}
