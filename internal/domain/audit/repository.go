package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateTx appends e inside the transaction of the decision it records.
func (r *Repository) CreateTx(ctx context.Context, tx *sqlx.Tx, e *Entry) error {
	err := tx.QueryRowxContext(ctx, `
		INSERT INTO admin_audit_logs (id, actor_id, action, target_type, target_id, reason, old_value, new_value)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb)
		RETURNING created_at
	`, e.ID, e.ActorID, e.Action, e.TargetType, e.TargetID, e.Reason, jsonText(e.OldValue), jsonText(e.NewValue)).
		Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

func (r *Repository) List(ctx context.Context, filter Filter) ([]*Entry, int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var (
		conditions []string
		args       []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.ActorID != nil {
		add("actor_id", *filter.ActorID)
	}
	if filter.TargetID != nil {
		add("target_id", *filter.TargetID)
	}
	if filter.Action != nil {
		add("action", *filter.Action)
	}
	if filter.TargetType != nil {
		add("target_type", *filter.TargetType)
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx2, &total, `SELECT COUNT(*) FROM admin_audit_logs`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count audit logs: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT id, actor_id, action, target_type, target_id, reason, old_value, new_value, created_at
		FROM admin_audit_logs%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	entries := make([]*Entry, 0)
	if err := r.db.SelectContext(ctx2, &entries, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("list audit logs: %w", err)
	}
	return entries, total, nil
}

func jsonText(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
