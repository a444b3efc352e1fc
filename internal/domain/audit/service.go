package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// RecordTx writes an audit entry in tx. If the entry cannot be written the decision
// rolls back with it.
func (s *Service) RecordTx(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, action, targetType string, targetID uuid.UUID, reason string, oldValue, newValue interface{}) error {
	entry := &Entry{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID,
	}
	if reason != "" {
		entry.Reason = sql.NullString{String: reason, Valid: true}
	}

	var err error
	if entry.OldValue, err = marshal(oldValue); err != nil {
		return err
	}
	if entry.NewValue, err = marshal(newValue); err != nil {
		return err
	}

	if err := s.repo.CreateTx(ctx, tx, entry); err != nil {
		return err
	}

	log.Info().
		Str("actor_id", actorID.String()).
		Str("action", action).
		Str("target_id", targetID.String()).
		Msg("Admin action recorded")
	return nil
}

func (s *Service) List(ctx context.Context, filter Filter) ([]*Entry, int, error) {
	return s.repo.List(ctx, filter)
}

func marshal(v interface{}) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode audit value: %w", err)
	}
	return b, nil
}
