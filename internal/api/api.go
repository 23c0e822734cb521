package api

import (
	"encoding/json"
	"net/http"

	"github.com/yok-tottii/micwatch/internal/config"
	"github.com/yok-tottii/micwatch/internal/hotkey"
	"github.com/yok-tottii/micwatch/internal/logger"
	"github.com/yok-tottii/micwatch/internal/monitor"
)

// Handler manages API endpoints
type Handler struct {
	config  *config.Config
	monitor *monitor.Monitor
	log     *logger.Logger
}

// New creates a new API handler. A nil logger discards output.
func New(cfg *config.Config, mon *monitor.Monitor, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{
		config:  cfg,
		monitor: mon,
		log:     log,
	}
}

// RegisterRoutes registers all API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/status", h.handleStatus)
	mux.HandleFunc("/api/config", h.handleConfig)
	mux.HandleFunc("/api/pause", h.handlePause)
	mux.HandleFunc("/api/resume", h.handleResume)
	mux.HandleFunc("/api/hotkey/validate", h.handleHotkeyValidate)
}

// handleStatus handles GET /api/status
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.monitor.Status())
}

// handleConfig handles GET /api/config. The file is input only, so there is no PUT.
func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.writeJSON(w, h.config.Clone())
}

// handlePause handles POST /api/pause
func (h *Handler) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.monitor.Pause()
	h.log.Info("Paused via API")
	h.writeJSON(w, h.monitor.Status())
}

// handleResume handles POST /api/resume
func (h *Handler) handleResume(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.monitor.Resume()
	h.log.Info("Resumed via API")
	h.writeJSON(w, h.monitor.Status())
}

// HotkeyValidation is the response of /api/hotkey/validate
type HotkeyValidation struct {
	Valid     bool                 `json:"valid"`
	Display   string               `json:"display"`
	Error     string               `json:"error,omitempty"`
	Conflicts []hotkey.ConflictInfo `json:"conflicts"`
}

// handleHotkeyValidate handles POST /api/hotkey/validate
func (h *Handler) handleHotkeyValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var request config.HotkeyConfig
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	settings := request.Settings()

	response := HotkeyValidation{
		Valid:     true,
		Display:   hotkey.FormatHotkey(settings.Modifiers, settings.Key),
		Conflicts: request.Conflicts(),
	}
	if response.Conflicts == nil {
		response.Conflicts = []hotkey.ConflictInfo{}
	}
	if _, err := hotkey.ParseKey(request.Key); err != nil {
		response.Valid = false
		response.Error = err.Error()
	}
	if len(response.Conflicts) > 0 {
		response.Valid = false
	}

	h.writeJSON(w, response)
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn("Failed to encode API response: %v", err)
	}
}
