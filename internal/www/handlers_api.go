// internal/www/handlers_api.go
package www

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/domipancho/courier-tracker/internal/reporter"
	"github.com/domipancho/courier-tracker/internal/source"

	"github.com/go-chi/chi/v5"
)

const maxRequestBytes = 64 << 10

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": msg})
}

func writeOK(w http.ResponseWriter, msg string) {
	writeJSON(w, map[string]interface{}{"success": true, "message": msg})
}

// --- Lifecycle ---

// apiStart starts tracking. The body is optional; a missing order_id means
// no order (0).
func (h *Handlers) apiStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrderID int64 `json:"order_id"`
	}
	err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OrderID < 0 {
		writeError(w, http.StatusBadRequest, "order_id must not be negative")
		return
	}

	if err := h.tracker.Start(r.Context(), req.OrderID); err != nil {
		log.Printf("www: start failed (order=%d): %v", req.OrderID, err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, "Location service started")
}

func (h *Handlers) apiStop(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Stop(r.Context()); err != nil {
		log.Printf("www: stop failed: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeOK(w, "Location service stopped")
}

func (h *Handlers) apiStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.tracker.Status())
}

// --- Fixes ---

func (h *Handlers) apiPushLocation(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}

	if err := h.fixes.Ingest(body); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, source.ErrProviderDisabled) {
			status = http.StatusConflict
		}
		writeError(w, status, err.Error())
		return
	}
	writeOK(w, "Location accepted")
}

func (h *Handlers) apiProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]bool{
		string(reporter.ProviderGPS):     h.fixes.ProviderEnabled(reporter.ProviderGPS),
		string(reporter.ProviderNetwork): h.fixes.ProviderEnabled(reporter.ProviderNetwork),
	})
}

func (h *Handlers) apiSetProvider(w http.ResponseWriter, r *http.Request) {
	p, ok := reporter.ParseProvider(chi.URLParam(r, "provider"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown provider")
		return
	}
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes)).Decode(&req); err != nil || req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled required")
		return
	}

	h.fixes.SetProviderEnabled(p, *req.Enabled)
	writeJSON(w, map[string]interface{}{"success": true, "provider": string(p), "enabled": *req.Enabled})
}
