package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	custommiddleware "github.com/mmeshcher/woodcraft-storefront/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware клиента магазина.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", h.Signup)
			r.Post("/verify", h.VerifyEmail)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})
		r.Get("/session", h.Session)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.ListFurniture)
			r.Get("/search", h.SearchFurniture)
			r.Get("/{id}", h.GetFurniture)
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddToCart)
			r.Put("/items/{id}", h.UpdateCartItem)
			r.Delete("/items/{id}", h.RemoveCartItem)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Route("/generation", func(r chi.Router) {
				r.Post("/", h.StartGeneration)
				r.Get("/", h.GetGeneration)
				r.Delete("/", h.CancelGeneration)
				r.Get("/history", h.GenerationHistory)
			})

			r.Get("/access", h.GetAccess)
			r.Post("/access/request", h.RequestAccess)

			r.Get("/custom-requests", h.CustomRequests)
			r.Post("/custom-requests", h.SubmitCustomRequest)

			r.Route("/messages", func(r chi.Router) {
				r.Get("/conversations", h.Conversations)
				r.Post("/open/{userId}", h.OpenConversation)
				r.Get("/", h.Messages)
				r.Post("/send", h.SendMessage)
				r.Delete("/", h.LeaveConversation)
				r.Post("/close", h.CloseConversation)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.authMiddleware.RequireAdmin)

				r.Post("/catalog", h.CreateFurniture)

				r.Get("/custom-requests/selected", h.SelectedRequest)
				r.Route("/custom-requests/{id}", func(r chi.Router) {
					r.Post("/select", h.SelectRequest)
					r.Post("/invoice", h.SendInvoice)
					r.Post("/reject", h.RejectRequest)
					r.Post("/delivery", h.AddToDelivery)
				})

				r.Get("/access-requests", h.AccessRequests)
				r.Post("/access-requests/grant", h.GrantAccess)
				r.Post("/access-requests/{id}/reject", h.RejectAccess)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		h.writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
