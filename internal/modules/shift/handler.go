package shift

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rgbautista/parkpoint-backend/internal/fault"
	"github.com/rgbautista/parkpoint-backend/internal/modules/authctx"
)

// Handler exposes shift HTTP endpoints.
type Handler struct{ service Service }

func NewHandler(service Service) *Handler { return &Handler{service: service} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/shifts", func(r chi.Router) {
		r.Post("/", h.start)                  // POST /api/v1/shifts
		r.Get("/active", h.active)            // GET  /api/v1/shifts/active
		r.Get("/{id}", h.get)                 // GET  /api/v1/shifts/{id}
		r.Post("/{id}/end", h.end)            // POST /api/v1/shifts/{id}/end
		r.Post("/{id}/cancel", h.cancel)      // POST /api/v1/shifts/{id}/cancel
		r.Get("/{id}/drawer", h.drawerOps)    // GET  /api/v1/shifts/{id}/drawer
	})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sess, err := h.service.Start(r.Context(), authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusCreated, sess)
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	sess, err := h.service.Active(r.Context(), authctx.OperatorID(r.Context()))
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sess)
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

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req EndRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sess, err := h.service.End(r.Context(), id, authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sess)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	sess, err := h.service.Cancel(r.Context(), id, authctx.OperatorID(r.Context()), req)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, sess)
}

func (h *Handler) drawerOps(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond(w, http.StatusBadRequest, map[string]string{"error": "invalid session id"})
		return
	}
	ops, err := h.service.DrawerOperations(r.Context(), id)
	if err != nil {
		respond(w, fault.Status(err), map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, ops)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
