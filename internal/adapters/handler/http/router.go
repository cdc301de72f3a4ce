package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewHandler(voteHandler *VoteHandler, adminHandler *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(corsMiddleware)

	r.Route("/api", func(r chi.Router) {
		r.Route("/votes", func(r chi.Router) {
			r.Post("/", voteHandler.SubmitVote)
			r.Get("/{id}", voteHandler.ConfirmVote)
		})

		r.Get("/countries/{countryCode}", voteHandler.ListByCountry)
		r.Get("/stats", voteHandler.GetStats)

		r.Post("/cache/refresh", adminHandler.RefreshCache)
	})

	return r
}

// The signup form is served from another origin and sends credentials.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Flush-Secret")
			w.Header().Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
