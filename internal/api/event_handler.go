package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/autoanalysis/internal/repo"
)

// ListEvents возвращает события журнала с фильтрацией.
// GET /api/v1/events?run_id=...&event_type=...&pipeline=...&since=...&limit=...&offset=...
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		ServiceUnavailable(w, "event store not configured")
		return
	}

	q := r.URL.Query()
	filter := repo.EventFilter{
		RunID:    q.Get("run_id"),
		Type:     q.Get("event_type"),
		Pipeline: q.Get("pipeline"),
	}

	if s := q.Get("since"); s != "" {
		since, err := time.Parse(time.RFC3339, s)
		if err != nil {
			BadRequest(w, "invalid since: expected RFC3339 timestamp")
			return
		}
		filter.Since = since
	}

	var err error
	if filter.Limit, err = intParam(q.Get("limit"), 50); err != nil {
		BadRequest(w, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		BadRequest(w, "invalid offset")
		return
	}

	events, err := h.events.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]EventResponse, len(events))
	for i, e := range events {
		result[i] = EventFromDomain(e)
	}

	List(w, result, len(result))
}

// GetEvent возвращает событие по ID.
// GET /api/v1/events/{id}
func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		ServiceUnavailable(w, "event store not configured")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid event id")
		return
	}

	event, err := h.events.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "event not found") {
		return
	}

	Success(w, EventFromDomain(*event))
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
