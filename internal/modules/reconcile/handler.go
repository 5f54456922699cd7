package reconcile

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
	"github.com/rgbautista/parkpoint-backend/internal/modules/authctx"
)

// Handler exposes reconciliation HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/reconciliation/sessions/{session_id}", func(r chi.Router) {
		r.Get("/summary", h.summary)   // GET  /api/v1/reconciliation/sessions/{id}/summary
		r.Post("/count", h.count)      // POST /api/v1/reconciliation/sessions/{id}/count
		r.Post("/adjust", h.adjust)    // POST /api/v1/reconciliation/sessions/{id}/adjust
		r.Post("/deposit", h.deposit)  // POST /api/v1/reconciliation/sessions/{id}/deposit
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	sum, err := h.service.Summary(r.Context(), sessionID)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sum)
}

func (h *Handler) count(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req CountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	result, err := h.service.PerformCount(r.Context(), sessionID, authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req AdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	entry, err := h.service.MakeAdjustment(r.Context(), sessionID, authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, entry)
}

func (h *Handler) deposit(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "session_id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	entry, err := h.service.RecordDeposit(r.Context(), sessionID, authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, entry)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
