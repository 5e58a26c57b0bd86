package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/simple-workspace/pkg/client"
)

// EmailResolver looks up the email for an account id when the caller did
// not supply one.
type EmailResolver interface {
	EmailForAccount(ctx context.Context, id uuid.UUID) (string, error)
}

// Recorder writes audit records. Recording is fire-and-forget relative to
// the triggering operation: a persistence failure is logged and swallowed,
// it never fails or rolls back the business operation.
type Recorder struct {
	repo     AuditRepository
	resolver EmailResolver
}

// NewRecorder creates a new audit recorder
func NewRecorder(repo AuditRepository, resolver EmailResolver) *Recorder {
	return &Recorder{
		repo:     repo,
		resolver: resolver,
	}
}

// SetResolver installs the email resolver. The resolver is typically the
// account service, which itself records through this recorder, so it is
// attached after construction.
func (rec *Recorder) SetResolver(resolver EmailResolver) {
	rec.resolver = resolver
}

// Record persists one audit entry. Transport metadata (client IP and
// user agent) is taken from the request context when present.
func (rec *Recorder) Record(ctx context.Context, entry Entry) {
	log := Log{
		ID:          uuid.New(),
		Action:      entry.Action,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		ActorID:     entry.ActorID,
		ActorEmail:  entry.ActorEmail,
		TargetID:    entry.TargetID,
		TargetEmail: entry.TargetEmail,
		Details:     entry.Details,
		WorkspaceID: entry.WorkspaceID,
		CreatedAt:   time.Now(),
	}

	if info, ok := client.RequestInfoFromContext(ctx); ok {
		log.IPAddress = info.IPAddress
		log.UserAgent = info.UserAgent
	}

	if log.ActorEmail == "" && rec.resolver != nil && log.ActorID != uuid.Nil {
		if email, err := rec.resolver.EmailForAccount(ctx, log.ActorID); err == nil {
			log.ActorEmail = email
		}
	}

	if log.TargetEmail == "" && rec.resolver != nil && log.TargetID != "" {
		if targetID, err := uuid.Parse(log.TargetID); err == nil {
			if email, err := rec.resolver.EmailForAccount(ctx, targetID); err == nil {
				log.TargetEmail = email
			}
		}
	}

	if err := rec.repo.Insert(ctx, log); err != nil {
		slog.Error("Failed to write audit log",
			"err", err,
			"action", log.Action,
			"entity_type", log.EntityType,
			"entity_id", log.EntityID,
			"actor_id", log.ActorID)
	}
}

// List returns audit records matching the filters
func (rec *Recorder) List(ctx context.Context, params ListParams) ([]Log, error) {
	if params.Limit <= 0 || params.Limit > 500 {
		params.Limit = 100
	}
	return rec.repo.List(ctx, params)
}

// GetStats returns the total record count and the per-action grouping
func (rec *Recorder) GetStats(ctx context.Context) (Stats, error) {
	total, err := rec.repo.Count(ctx)
	if err != nil {
		return Stats{}, err
	}

	byAction, err := rec.repo.CountByAction(ctx)
	if err != nil {
		return Stats{}, err
	}

	return Stats{Total: total, ByAction: byAction}, nil
}
