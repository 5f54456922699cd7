package ledger

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
)

// Handler exposes read-only ledger HTTP endpoints. All writes go through the
// owning flows (shift, reconciliation, parking); the ledger has no generic
// write endpoint.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/ledger", func(r chi.Router) {
		r.Get("/sessions/{session_id}/entries", h.listBySession) // GET /api/v1/ledger/sessions/{id}/entries
		r.Get("/entries/{id}", h.getEntry)                       // GET /api/v1/ledger/entries/{id}
	})
}

func (h *Handler) listBySession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	f := Filter{
		Kind:   EntryKind(r.URL.Query().Get("kind")),
		Method: PaymentMethod(r.URL.Query().Get("method")),
	}
	entries, err := h.service.ListBySession(r.Context(), sessionID, f)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}
	respond(w, http.StatusOK, entries)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid entry id"})
		return
	}
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, e)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
