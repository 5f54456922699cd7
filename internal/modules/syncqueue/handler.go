package syncqueue

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Handler exposes the sync status badge and the manual force-sync trigger.
type Handler struct{ replayer *Replayer }

func NewHandler(replayer *Replayer) *Handler { return &Handler{replayer: replayer} }

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/sync", func(r chi.Router) {
		r.Get("/status", h.status)        // GET  /api/v1/sync/status
		r.Post("/replay", h.replay)       // POST /api/v1/sync/replay
		r.Get("/review", h.needsReview)   // GET  /api/v1/sync/review
	})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.replayer.Status(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	respond(w, http.StatusOK, st)
}

// replay is the manual force-sync. It shares the single-flight guard with
// the background worker, so a pass already in progress yields applied=0.
func (h *Handler) replay(w http.ResponseWriter, r *http.Request) {
	applied, err := h.replayer.ReplayNow(r.Context())
	if err != nil {
		// Items stay queued; the caller only learns how far the pass got.
		respond(w, http.StatusOK, map[string]interface{}{"applied": applied, "stalled": true})
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"applied": applied})
}

func (h *Handler) needsReview(w http.ResponseWriter, r *http.Request) {
	items, err := h.replayer.NeedsReview(r.Context())
	if err != nil {
		respond(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if items == nil {
		items = []*Item{}
	}
	respond(w, http.StatusOK, items)
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
