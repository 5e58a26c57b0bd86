package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAuditRepository implements AuditRepository using PostgreSQL
type PostgresAuditRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresAuditRepository creates a new PostgreSQL audit repository
func NewPostgresAuditRepository(pool *pgxpool.Pool) *PostgresAuditRepository {
	return &PostgresAuditRepository{
		pool: pool,
	}
}

// Insert appends one audit record
func (r *PostgresAuditRepository) Insert(ctx context.Context, log Log) error {
	query := `
		INSERT INTO audit_log (
			id, action, entity_type, entity_id, actor_id, actor_email,
			target_id, target_email, details, ip_address, user_agent,
			workspace_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var details []byte
	if log.Details != nil {
		var err error
		details, err = json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("failed to encode audit details: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, query,
		log.ID,
		log.Action,
		log.EntityType,
		log.EntityID,
		log.ActorID,
		nullable(log.ActorEmail),
		nullable(log.TargetID),
		nullable(log.TargetEmail),
		details,
		nullable(log.IPAddress),
		nullable(log.UserAgent),
		nullable(log.WorkspaceID),
		log.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// List returns audit records matching the filters, newest first
func (r *PostgresAuditRepository) List(ctx context.Context, params ListParams) ([]Log, error) {
	query := `
		SELECT id, action, entity_type, entity_id, actor_id, actor_email,
		       target_id, target_email, details, ip_address, user_agent,
		       workspace_id, created_at
		FROM audit_log
		WHERE ($1 = '' OR action = $1)
		  AND ($2 = '' OR entity_type = $2)
		  AND ($3::uuid IS NULL OR actor_id = $3)
		  AND ($4 = '' OR workspace_id = $4)
		ORDER BY created_at DESC
		LIMIT $5 OFFSET $6
	`

	rows, err := r.pool.Query(ctx, query,
		params.Action,
		params.EntityType,
		params.ActorID,
		params.WorkspaceID,
		params.Limit,
		params.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	defer rows.Close()

	var logs []Log
	for rows.Next() {
		log, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", rows.Err())
	}

	return logs, nil
}

// Count returns the total number of audit records
func (r *PostgresAuditRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", err)
	}
	return count, nil
}

// CountByAction returns record counts grouped by action, largest first
func (r *PostgresAuditRepository) CountByAction(ctx context.Context) ([]ActionCount, error) {
	query := `
		SELECT action, COUNT(*)
		FROM audit_log
		GROUP BY action
		ORDER BY COUNT(*) DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count audit logs by action: %w", err)
	}
	defer rows.Close()

	var counts []ActionCount
	for rows.Next() {
		var c ActionCount
		if err := rows.Scan(&c.Action, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		counts = append(counts, c)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating action counts: %w", rows.Err())
	}

	return counts, nil
}

func scanLog(row pgx.Row) (Log, error) {
	var log Log
	var actorEmail, targetID, targetEmail, ipAddress, userAgent, workspaceID *string
	var details []byte

	err := row.Scan(
		&log.ID,
		&log.Action,
		&log.EntityType,
		&log.EntityID,
		&log.ActorID,
		&actorEmail,
		&targetID,
		&targetEmail,
		&details,
		&ipAddress,
		&userAgent,
		&workspaceID,
		&log.CreatedAt,
	)
	if err != nil {
		return Log{}, err
	}

	log.ActorEmail = deref(actorEmail)
	log.TargetID = deref(targetID)
	log.TargetEmail = deref(targetEmail)
	log.IPAddress = deref(ipAddress)
	log.UserAgent = deref(userAgent)
	log.WorkspaceID = deref(workspaceID)

	if len(details) > 0 {
		if err := json.Unmarshal(details, &log.Details); err != nil {
			return Log{}, fmt.Errorf("failed to decode audit details: %w", err)
		}
	}

	return log, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
