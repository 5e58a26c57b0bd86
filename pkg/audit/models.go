package audit

import (
	"time"

	"github.com/google/uuid"
)

// Log is one immutable, append-only audit record.
type Log struct {
	ID          uuid.UUID              `json:"id"`
	Action      string                 `json:"action"`
	EntityType  string                 `json:"entity_type"`
	EntityID    string                 `json:"entity_id"`
	ActorID     uuid.UUID              `json:"actor_id"`
	ActorEmail  string                 `json:"actor_email,omitempty"`
	TargetID    string                 `json:"target_id,omitempty"`
	TargetEmail string                 `json:"target_email,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	IPAddress   string                 `json:"ip_address,omitempty"`
	UserAgent   string                 `json:"user_agent,omitempty"`
	WorkspaceID string                 `json:"workspace_id,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Entry is what callers hand to the recorder. Actor and target emails are
// resolved by lookup when not supplied.
type Entry struct {
	Action      string
	EntityType  string
	EntityID    string
	ActorID     uuid.UUID
	ActorEmail  string
	TargetID    string
	TargetEmail string
	Details     map[string]interface{}
	WorkspaceID string
}

// ListParams filters audit log queries
type ListParams struct {
	Action      string
	EntityType  string
	ActorID     *uuid.UUID
	WorkspaceID string
	Limit       int
	Offset      int
}

// ActionCount is one row of the audit statistics grouping
type ActionCount struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

// Stats summarizes the audit log for the admin dashboard
type Stats struct {
	Total    int64         `json:"total"`
	ByAction []ActionCount `json:"by_action"`
}
