package api

import (
	"net/http"

	"github.com/shaiso/autoanalysis/internal/domain"
)

// Health сообщает, жив ли цикл.
// GET /healthz
//
// После остановки цикла отвечает 503, чтобы балансировщик снял процесс.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		JSON(w, http.StatusOK, HealthResponse{Status: "ok"})
		return
	}

	phase := h.status.Status().Phase
	resp := HealthResponse{Status: "ok", Phase: string(phase)}
	if phase == domain.PhaseStopped {
		resp.Status = "stopped"
		JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// GetStatus возвращает состояние цикла.
// GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.status == nil {
		ServiceUnavailable(w, "orchestrator not running")
		return
	}
	Success(w, StatusFromDomain(h.status.Status()))
}
