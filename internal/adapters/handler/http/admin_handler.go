package http

import (
	"crypto/subtle"
	"net/http"

	"github.com/openballot/api/internal/core/ports"
)

// AdminHandler serves the cache flush trigger, guarded by a shared
// secret so it cannot be hit by the public.
type AdminHandler struct {
	service     ports.VoteService
	flushSecret string
}

func NewAdminHandler(service ports.VoteService, flushSecret string) *AdminHandler {
	return &AdminHandler{
		service:     service,
		flushSecret: flushSecret,
	}
}

func (h *AdminHandler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get("X-Flush-Secret")
	if h.flushSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(h.flushSecret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.service.RefreshAll(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
