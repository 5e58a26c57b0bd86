package audit

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/simple-workspace/pkg/client"
)

type staticResolver struct {
	emails map[uuid.UUID]string
}

func (s *staticResolver) EmailForAccount(ctx context.Context, id uuid.UUID) (string, error) {
	email, ok := s.emails[id]
	if !ok {
		return "", stderrors.New("no such account")
	}
	return email, nil
}

func TestRecord(t *testing.T) {
	repo := NewInMemAuditRepository()
	actorID := uuid.New()
	targetID := uuid.New()
	resolver := &staticResolver{emails: map[uuid.UUID]string{
		actorID:  "actor@example.com",
		targetID: "target@example.com",
	}}
	rec := NewRecorder(repo, resolver)

	rec.Record(context.Background(), Entry{
		Action:     "account.status_updated",
		EntityType: "account",
		EntityID:   targetID.String(),
		ActorID:    actorID,
		TargetID:   targetID.String(),
		Details:    map[string]interface{}{"status": "suspended"},
	})

	logs := repo.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "account.status_updated", logs[0].Action)
	assert.Equal(t, "actor@example.com", logs[0].ActorEmail)
	assert.Equal(t, "target@example.com", logs[0].TargetEmail)
	assert.NotEqual(t, uuid.Nil, logs[0].ID)
	assert.False(t, logs[0].CreatedAt.IsZero())
}

func TestRecord_CapturesRequestInfo(t *testing.T) {
	repo := NewInMemAuditRepository()
	rec := NewRecorder(repo, nil)

	ctx := client.WithRequestInfo(context.Background(), &client.RequestInfo{
		IPAddress: "203.0.113.9",
		UserAgent: "curl/8.0",
	})

	rec.Record(ctx, Entry{
		Action:     "workspace.created",
		EntityType: "workspace",
		ActorID:    uuid.New(),
	})

	logs := repo.All()
	require.Len(t, logs, 1)
	assert.Equal(t, "203.0.113.9", logs[0].IPAddress)
	assert.Equal(t, "curl/8.0", logs[0].UserAgent)
}

func TestRecord_SwallowsPersistenceFailure(t *testing.T) {
	repo := NewInMemAuditRepository()
	repo.FailInsert = stderrors.New("disk full")
	rec := NewRecorder(repo, nil)

	// must not panic or surface the error in any way
	rec.Record(context.Background(), Entry{
		Action:     "workspace.deleted",
		EntityType: "workspace",
		ActorID:    uuid.New(),
	})

	assert.Empty(t, repo.All())
}

func TestRecord_ResolverFailureLeavesEmailsBlank(t *testing.T) {
	repo := NewInMemAuditRepository()
	rec := NewRecorder(repo, &staticResolver{emails: map[uuid.UUID]string{}})

	rec.Record(context.Background(), Entry{
		Action:     "workspace.created",
		EntityType: "workspace",
		ActorID:    uuid.New(),
	})

	logs := repo.All()
	require.Len(t, logs, 1)
	assert.Empty(t, logs[0].ActorEmail)
}

func TestList_DefaultsAndCaps(t *testing.T) {
	repo := NewInMemAuditRepository()
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec.Record(ctx, Entry{
			Action:     "workspace.created",
			EntityType: "workspace",
			ActorID:    uuid.New(),
		})
	}

	logs, err := rec.List(ctx, ListParams{})
	require.NoError(t, err)
	assert.Len(t, logs, 5)

	logs, err = rec.List(ctx, ListParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestGetStats(t *testing.T) {
	repo := NewInMemAuditRepository()
	rec := NewRecorder(repo, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		rec.Record(ctx, Entry{Action: "workspace.created", EntityType: "workspace", ActorID: uuid.New()})
	}
	rec.Record(ctx, Entry{Action: "workspace.deleted", EntityType: "workspace", ActorID: uuid.New()})

	stats, err := rec.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Total)
	require.NotEmpty(t, stats.ByAction)
	assert.Equal(t, "workspace.created", stats.ByAction[0].Action)
	assert.Equal(t, int64(3), stats.ByAction[0].Count)
}
