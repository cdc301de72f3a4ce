package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/openballot/api/internal/core/domain"
	"github.com/openballot/api/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type submitVoteRequest struct {
	Email                 string `json:"email"`
	CountryCode           string `json:"country_code"`
	PrivacyPolicyAccepted bool   `json:"privacy_policy_accepted"`
	AgeConfirmed          bool   `json:"age_confirmed"`
}

func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req submitVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	input := ports.SubmitVoteInput{
		Email:                 req.Email,
		CountryCode:           req.CountryCode,
		PrivacyPolicyAccepted: req.PrivacyPolicyAccepted,
		AgeConfirmed:          req.AgeConfirmed,
	}

	if _, err := h.service.Submit(r.Context(), input); err != nil {
		if errors.Is(err, domain.ErrAlreadyVoted) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		if errors.Is(err, domain.ErrConsentRequired) {
			http.Error(w, err.Error(), http.StatusNotAcceptable)
			return
		}
		if errors.Is(err, domain.ErrInvalidSubmission) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *VoteHandler) ConfirmVote(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid vote id", http.StatusBadRequest)
		return
	}

	vote, err := h.service.Confirm(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrVoteNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, vote)
}

func (h *VoteHandler) ListByCountry(w http.ResponseWriter, r *http.Request) {
	countryCode := chi.URLParam(r, "countryCode")
	if countryCode == "" {
		http.Error(w, "missing country code", http.StatusBadRequest)
		return
	}

	writeJSON(w, h.service.ListByCountry(countryCode))
}

func (h *VoteHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.service.Stats())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
