package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/audit"
	"github.com/tendant/simple-workspace/pkg/errors"
	"github.com/tendant/simple-workspace/pkg/response"
)

type Handle struct {
	recorder *audit.Recorder
}

func NewHandle(recorder *audit.Recorder) *Handle {
	return &Handle{
		recorder: recorder,
	}
}

// List handles GET /admin/audit-logs with optional query filters
func (h *Handle) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	params := audit.ListParams{
		Action:      q.Get("action"),
		EntityType:  q.Get("entity_type"),
		WorkspaceID: q.Get("workspace_id"),
	}

	if s := q.Get("actor_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			response.Err(w, r, errors.ValidationFailed("actor_id", "invalid UUID format"))
			return
		}
		params.ActorID = &id
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.Err(w, r, errors.ValidationFailed("limit", "must be a non-negative integer"))
			return
		}
		params.Limit = n
	}
	if s := q.Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			response.Err(w, r, errors.ValidationFailed("offset", "must be a non-negative integer"))
			return
		}
		params.Offset = n
	}

	logs, err := h.recorder.List(r.Context(), params)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "audit logs retrieved", logs)
}

// Stats handles GET /admin/audit-logs/stats
func (h *Handle) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.recorder.GetStats(r.Context())
	if err != nil {
		response.Err(w, r, err)
		return
	}
	response.OK(w, r, "audit statistics retrieved", stats)
}
