/**
 * @description
 * This file contains the HTTP handler functions for the freeze-service.
 * Handlers are responsible for parsing incoming requests, calling the
 * freeze workflow in the app layer, and writing the HTTP response.
 */
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/therapyhub/freeze-service/internal/app"
	"github.com/therapyhub/freeze-service/internal/domain"
	"github.com/therapyhub/freeze-service/internal/store"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service *app.FreezeService
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service *app.FreezeService) *Handler {
	return &Handler{service: service}
}

// handleValidateFreeze runs a dry-run validation of a freeze request.
func (h *Handler) handleValidateFreeze(w http.ResponseWriter, r *http.Request) {
	var req domain.FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result := h.service.Validate(r.Context(), &req)
	respondWithJSON(w, http.StatusOK, result)
}

// handlePreviewFreeze returns the timeline and billing adjustments the freeze
// would produce, without committing anything.
func (h *Handler) handlePreviewFreeze(w http.ResponseWriter, r *http.Request) {
	var req domain.FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	timeline, billing, err := h.service.Preview(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"timeline": timeline,
		"billing":  billing,
	})
}

// handleApplyFreeze runs the full freeze workflow. Validation failures are
// part of the outcome body, not an HTTP error.
func (h *Handler) handleApplyFreeze(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req domain.FreezeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	outcome, err := h.service.ApplyFreeze(r.Context(), &req, userID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, outcome)
}

// handleListFreezes returns the freeze history of a subscription.
func (h *Handler) handleListFreezes(w http.ResponseWriter, r *http.Request) {
	subscriptionID := chi.URLParam(r, "subscriptionID")

	freezes, err := h.service.History(r.Context(), subscriptionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if freezes == nil {
		freezes = []domain.FreezeRecord{}
	}

	respondWithJSON(w, http.StatusOK, freezes)
}

// handleFreezeStats returns the backend-computed freeze aggregate.
func (h *Handler) handleFreezeStats(w http.ResponseWriter, r *http.Request) {
	subscriptionID := chi.URLParam(r, "subscriptionID")

	stats, err := h.service.Statistics(r.Context(), subscriptionID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}

// handleRetryRescheduling re-runs rescheduling for a committed freeze.
func (h *Handler) handleRetryRescheduling(w http.ResponseWriter, r *http.Request) {
	freezeID := chi.URLParam(r, "freezeID")

	result, err := h.service.RetryRescheduling(r.Context(), freezeID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

// respondWithServiceError maps app/store errors onto HTTP status codes.
func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrSubscriptionNotFound),
		errors.Is(err, store.ErrProgramNotFound),
		errors.Is(err, store.ErrFreezeNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, store.ErrFreezeBalanceExhausted):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// respondWithJSON is a helper function to write JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
