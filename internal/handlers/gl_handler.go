package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vaultbank/backend/internal/gl"
	"github.com/vaultbank/backend/internal/models"
)

// GLHandler is the HTTP facade over the GL posting engine.
type GLHandler struct {
	gl        *gl.Service
	validator *ValidationHelper
}

func NewGLHandler(svc *gl.Service) *GLHandler {
	return &GLHandler{gl: svc, validator: NewValidationHelper()}
}

// CreateEntry records a pending GL entry.
func (h *GLHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req models.CreateGLEntryRequest
	if err := decodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	entry, err := h.gl.CreateEntry(r.Context(), &req)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, map[string]any{"entry": entry})
}

// GetEntry returns one GL entry.
func (h *GLHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.gl.GetEntry(r.Context(), chi.URLParam(r, "entryId"))
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

// PostEntry transitions a pending entry to posted.
func (h *GLHandler) PostEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Actor string `json:"actor" validate:"required,max=100"`
	}
	if err := decodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	entry, err := h.gl.Post(r.Context(), chi.URLParam(r, "entryId"), req.Actor)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

// ReverseEntry transitions a posted entry to reversed.
func (h *GLHandler) ReverseEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Actor  string `json:"actor" validate:"required,max=100"`
		Reason string `json:"reason"`
	}
	if err := decodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	entry, err := h.gl.Reverse(r.Context(), chi.URLParam(r, "entryId"), req.Actor, req.Reason)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"entry": entry})
}

// BatchPost posts every pending entry in the id list and returns the count
// actually transitioned.
func (h *GLHandler) BatchPost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntryIDs []string `json:"entryIds" validate:"required,min=1,max=500"`
		Actor    string   `json:"actor" validate:"required,max=100"`
	}
	if err := decodeStrict(w, r, &req); err != nil {
		SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	count, err := h.gl.BatchPost(r.Context(), req.EntryIDs, req.Actor)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, map[string]any{"count": count})
}

// TrialBalance returns the posted-entry aggregation as of an optional date
// (?asOf=2026-01-31, default now).
func (h *GLHandler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("asOf"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			SendErrorResponse(w, "Invalid asOf date, expected YYYY-MM-DD", http.StatusBadRequest, nil)
			return
		}
		// Include the whole asOf day.
		asOf = parsed.Add(24*time.Hour - time.Nanosecond)
	}

	report, err := h.gl.TrialBalance(r.Context(), asOf)
	if err != nil {
		sendEngineError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, report)
}
