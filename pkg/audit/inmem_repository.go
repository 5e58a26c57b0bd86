package audit

import (
	"context"
	"sort"
	"sync"
)

// InMemAuditRepository implements AuditRepository with in-memory storage,
// for tests and local development.
type InMemAuditRepository struct {
	mu   sync.RWMutex
	logs []Log

	// FailInsert makes Insert return this error, to test that recording
	// failures never propagate to the triggering operation
	FailInsert error
}

// NewInMemAuditRepository creates a new in-memory audit repository
func NewInMemAuditRepository() *InMemAuditRepository {
	return &InMemAuditRepository{}
}

// Insert appends one audit record
func (r *InMemAuditRepository) Insert(ctx context.Context, log Log) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailInsert != nil {
		return r.FailInsert
	}

	r.logs = append(r.logs, log)
	return nil
}

// List returns audit records matching the filters, newest first
func (r *InMemAuditRepository) List(ctx context.Context, params ListParams) ([]Log, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var logs []Log
	for _, log := range r.logs {
		if params.Action != "" && log.Action != params.Action {
			continue
		}
		if params.EntityType != "" && log.EntityType != params.EntityType {
			continue
		}
		if params.ActorID != nil && log.ActorID != *params.ActorID {
			continue
		}
		if params.WorkspaceID != "" && log.WorkspaceID != params.WorkspaceID {
			continue
		}
		logs = append(logs, log)
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].CreatedAt.After(logs[j].CreatedAt)
	})

	if params.Offset > 0 {
		if params.Offset >= len(logs) {
			return nil, nil
		}
		logs = logs[params.Offset:]
	}
	if params.Limit > 0 && params.Limit < len(logs) {
		logs = logs[:params.Limit]
	}

	return logs, nil
}

// Count returns the total number of audit records
func (r *InMemAuditRepository) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.logs)), nil
}

// CountByAction returns record counts grouped by action, largest first
func (r *InMemAuditRepository) CountByAction(ctx context.Context) ([]ActionCount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byAction := make(map[string]int64)
	for _, log := range r.logs {
		byAction[log.Action]++
	}

	counts := make([]ActionCount, 0, len(byAction))
	for action, count := range byAction {
		counts = append(counts, ActionCount{Action: action, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Action < counts[j].Action
	})

	return counts, nil
}

// All returns every stored record, for test assertions
func (r *InMemAuditRepository) All() []Log {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Log, len(r.logs))
	copy(out, r.logs)
	return out
}
