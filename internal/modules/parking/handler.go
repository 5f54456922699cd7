package parking

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
	"github.com/rgbautista/parkpoint-backend/internal/modules/authctx"
)

// Handler exposes parking HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/parking", func(r chi.Router) {
		r.Post("/sessions", h.create)                   // POST /api/v1/parking/sessions
		r.Get("/sessions/{id}", h.get)                  // GET  /api/v1/parking/sessions/{id}
		r.Post("/sessions/{id}/pay", h.pay)             // POST /api/v1/parking/sessions/{id}/pay
		r.Post("/sessions/{id}/reassign", h.reassign)   // POST /api/v1/parking/sessions/{id}/reassign
		r.Post("/sessions/{id}/end", h.terminate)       // POST /api/v1/parking/sessions/{id}/end
		r.Get("/spots", h.spots)                        // GET  /api/v1/parking/spots
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sess, err := h.service.Create(r.Context(), authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, sess)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	sess, err := h.service.Get(r.Context(), id)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sess)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req PayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	result, err := h.service.Pay(r.Context(), id, authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, result)
}

func (h *Handler) reassign(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req ReassignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sess, err := h.service.Reassign(r.Context(), id, authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sess)
}

func (h *Handler) terminate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req TerminateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sess, err := h.service.Terminate(r.Context(), id, authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sess)
}

func (h *Handler) spots(w http.ResponseWriter, r *http.Request) {
	spots, err := h.service.Spots(r.Context())
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, spots)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
