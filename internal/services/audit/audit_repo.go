package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
)

type AuditRepo struct {
	db *sqlx.DB
}

func NewAuditRepo(db *sqlx.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, entry *Entry) (*Entry, error) {
	query := `
		INSERT INTO audit_trail (action, actor_id, actor_email, entity_type, entity_id, old_value, new_value, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, action, actor_id, actor_email, entity_type, entity_id, old_value, new_value, metadata, created_at
	`

	meta := entry.Metadata
	if meta == nil {
		meta = JSONMap{}
	}

	var out Entry
	err := r.db.GetContext(ctx, &out, query,
		entry.Action, entry.ActorID, entry.ActorEmail, entry.EntityType, entry.EntityID,
		entry.OldValue, entry.NewValue, meta)
	if err != nil {
		return nil, fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return &out, nil
}

// whereClause builds the fixed predicate set for a Query. Each filter maps to
// one parameterized predicate; there is no free-form condition input.
func (q *Query) whereClause() (string, []any) {
	conditions := []string{}
	args := []any{}

	if q.EntityType != "" {
		args = append(args, q.EntityType)
		conditions = append(conditions, "entity_type = $"+strconv.Itoa(len(args)))
	}
	if q.ActorID != "" {
		args = append(args, q.ActorID)
		conditions = append(conditions, "actor_id = $"+strconv.Itoa(len(args)))
	}
	if q.Days > 0 {
		args = append(args, q.Days)
		conditions = append(conditions, "created_at >= NOW() - make_interval(days => $"+strconv.Itoa(len(args))+")")
	}

	if len(conditions) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

func (r *AuditRepo) List(ctx context.Context, q *Query) ([]*Entry, int64, error) {
	where, args := q.whereClause()

	var total int64
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM audit_trail"+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count audit entries: %w", err)
	}

	offset := (q.Page - 1) * q.Limit
	listArgs := append(args, q.Limit, offset)
	query := fmt.Sprintf(`
		SELECT id, action, actor_id, actor_email, entity_type, entity_id, old_value, new_value, metadata, created_at
		FROM audit_trail%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	var entries []*Entry
	err = r.db.SelectContext(ctx, &entries, query, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit entries: %w", err)
	}

	return entries, total, nil
}
