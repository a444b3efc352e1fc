package reward

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func validateCreateRequest(req *CreateRewardRequest) error {
	if !req.Unlimited && req.TotalAvailable <= 0 {
		return ErrInvalidAvailability
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && !req.ValidFrom.Before(*req.ValidUntil) {
		return ErrInvalidValidity
	}
	if (req.AvailableFromMinute == nil) != (req.AvailableToMinute == nil) {
		return ErrInvalidTimeWindow
	}
	return nil
}

// Create publishes a new reward for businessID.
func (s *Service) Create(ctx context.Context, businessID uuid.UUID, req *CreateRewardRequest) (*Reward, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	rw := &Reward{
		ID:             uuid.New(),
		BusinessID:     businessID,
		Title:          req.Title,
		Description:    req.Description,
		PointsCost:     req.PointsCost,
		TotalAvailable: req.TotalAvailable,
		Unlimited:      req.Unlimited,
		Active:         true,
		LevelRequired:  req.LevelRequired,
	}
	if rw.LevelRequired == 0 {
		rw.LevelRequired = 1
	}
	if req.ValidFrom != nil {
		rw.ValidFrom = sql.NullTime{Time: *req.ValidFrom, Valid: true}
	}
	if req.ValidUntil != nil {
		rw.ValidUntil = sql.NullTime{Time: *req.ValidUntil, Valid: true}
	}
	if req.ExpiresAt != nil {
		rw.ExpiresAt = sql.NullTime{Time: *req.ExpiresAt, Valid: true}
	}
	if len(req.AvailableDays) > 0 {
		rw.AvailableDays = make(pq.Int64Array, len(req.AvailableDays))
		for i, d := range req.AvailableDays {
			rw.AvailableDays[i] = int64(d)
		}
	}
	if req.AvailableFromMinute != nil {
		rw.AvailableFromMinute = sql.NullInt32{Int32: int32(*req.AvailableFromMinute), Valid: true}
		rw.AvailableToMinute = sql.NullInt32{Int32: int32(*req.AvailableToMinute), Valid: true}
	}

	if err := s.repo.Create(ctx, rw); err != nil {
		return nil, err
	}

	log.Info().
		Str("reward_id", rw.ID.String()).
		Str("business_id", businessID.String()).
		Int64("points_cost", rw.PointsCost).
		Msg("Reward created")
	return rw, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Reward, error) {
	return s.repo.GetByID(ctx, id)
}

// ListByBusiness shows inactive rewards only to the business itself.
func (s *Service) ListByBusiness(ctx context.Context, businessID, callerID uuid.UUID, limit, offset int) ([]*Reward, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByBusiness(ctx, businessID, businessID != callerID, limit, offset)
}

func (s *Service) SetActive(ctx context.Context, businessID, id uuid.UUID, active bool) (*Reward, error) {
	rw, err := s.repo.SetActive(ctx, businessID, id, active)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("reward_id", id.String()).
		Bool("active", active).
		Msg("Reward activity changed")
	return rw, nil
}
