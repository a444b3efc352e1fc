package account

import (
	"context"

	"github.com/google/uuid"
)

// Service exposes account provisioning and reads
type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Ensure provisions the ledger account for an identity-provider subject.
func (s *Service) Ensure(ctx context.Context, id uuid.UUID, role Role) (*Account, error) {
	if id == uuid.Nil || !role.Valid() {
		return nil, ErrInvalidRole
	}
	return s.repo.Ensure(ctx, id, role)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Account, error) {
	return s.repo.GetByID(ctx, id)
}
