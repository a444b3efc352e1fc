package progression

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/pointhub/pointhub-api/internal/domain/account"
	"github.com/pointhub/pointhub-api/internal/domain/audit"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*account.Account, error)
	UpdateProgressTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, p account.BusinessProgress) error
	ListPendingUpgrades(ctx context.Context, limit, offset int) ([]*account.Account, error)
}

type XPStore interface {
	CreateXPEventTx(ctx context.Context, tx *sqlx.Tx, e *XPEvent) error
	ListXPEvents(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*XPEvent, error)
}

// Auditor records admin decisions inside the caller's transaction
type Auditor interface {
	RecordTx(ctx context.Context, tx *sqlx.Tx, actorID uuid.UUID, action, targetType string, targetID uuid.UUID, reason string, oldValue, newValue interface{}) error
}

type Service struct {
	tx       *database.TxRunner
	accounts AccountStore
	xp       XPStore
	audit    Auditor
	events   notification.Publisher
	now      func() time.Time
}

func NewService(runner *database.TxRunner, accounts AccountStore, xp XPStore, auditor Auditor, events notification.Publisher) *Service {
	if events == nil {
		events = notification.NopPublisher{}
	}
	return &Service{
		tx:       runner,
		accounts: accounts,
		xp:       xp,
		audit:    auditor,
		events:   events,
		now:      time.Now,
	}
}

// AwardXP adds XP to a business and recomputes its sub-level. XP is a counter of its own
// and never touches the point balance.
func (s *Service) AwardXP(ctx context.Context, businessID uuid.UUID, amount int64, reason string) (*Progress, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var progress *Progress
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		biz, err := s.lockBusiness(ctx, tx, businessID)
		if err != nil {
			return err
		}

		biz.BusinessXP += amount
		biz.BusinessSubLevel = SubLevelForXP(biz.BusinessXP)

		if err := s.accounts.UpdateProgressTx(ctx, tx, biz.ID, biz.BusinessProgress); err != nil {
			return err
		}
		if err := s.xp.CreateXPEventTx(ctx, tx, &XPEvent{
			ID:         uuid.New(),
			BusinessID: biz.ID,
			Amount:     amount,
			Reason:     reason,
			XPAfter:    biz.BusinessXP,
		}); err != nil {
			return err
		}

		progress = progressOf(biz)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Debug().
		Str("business_id", businessID.String()).
		Int64("amount", amount).
		Int64("xp", progress.BusinessXP).
		Int("sub_level", progress.BusinessSubLevel).
		Msg("Business XP awarded")

	return progress, nil
}

// RequestUpgrade flags a business at the top sub-level for admin review.
// Repeating the request while one is pending changes nothing.
func (s *Service) RequestUpgrade(ctx context.Context, businessID uuid.UUID) (*Progress, error) {
	var (
		progress *Progress
		created  bool
	)
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		created = false

		biz, err := s.lockBusiness(ctx, tx, businessID)
		if err != nil {
			return err
		}
		if !CanRequestUpgrade(biz.BusinessProgress) {
			return ErrNotEligible
		}

		if !biz.UpgradeRequested {
			now := s.now().UTC()
			biz.UpgradeRequested = true
			biz.UpgradeRequestedAt = &now
			if err := s.accounts.UpdateProgressTx(ctx, tx, biz.ID, biz.BusinessProgress); err != nil {
				return err
			}
			created = true
		}

		progress = progressOf(biz)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if created {
		s.events.Publish(ctx, notification.TypeUpgradeRequested, businessID, map[string]interface{}{
			"level": progress.BusinessLevel,
		})
		log.Info().Str("business_id", businessID.String()).Int("level", progress.BusinessLevel).Msg("Upgrade requested")
	}
	return progress, nil
}

// ApproveUpgrade moves a business one level up and starts it at sub-level 1 with no XP.
// The audit entry commits with the change.
func (s *Service) ApproveUpgrade(ctx context.Context, businessID, adminID uuid.UUID) (*Progress, error) {
	var progress *Progress
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		biz, err := s.lockBusiness(ctx, tx, businessID)
		if err != nil {
			return err
		}
		if !biz.UpgradeRequested {
			return ErrNoPendingRequest
		}
		if biz.BusinessLevel >= account.MaxBusinessLevel {
			return ErrNotEligible
		}

		before := biz.BusinessProgress
		biz.BusinessProgress = account.BusinessProgress{
			BusinessLevel:    before.BusinessLevel + 1,
			BusinessSubLevel: 1,
			BusinessXP:       0,
		}

		if err := s.accounts.UpdateProgressTx(ctx, tx, biz.ID, biz.BusinessProgress); err != nil {
			return err
		}
		if err := s.audit.RecordTx(ctx, tx, adminID, audit.ActionUpgradeApproved, audit.TargetBusiness, biz.ID, "", before, biz.BusinessProgress); err != nil {
			return err
		}

		progress = progressOf(biz)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, notification.TypeUpgradeApproved, businessID, map[string]interface{}{
		"level": progress.BusinessLevel,
	})
	log.Info().
		Str("business_id", businessID.String()).
		Str("admin_id", adminID.String()).
		Int("level", progress.BusinessLevel).
		Msg("Upgrade approved")

	return progress, nil
}

// RejectUpgrade clears a pending request. Level and XP stay as they are.
func (s *Service) RejectUpgrade(ctx context.Context, businessID, adminID uuid.UUID, reason string) (*Progress, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrMissingReason
	}

	var progress *Progress
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		biz, err := s.lockBusiness(ctx, tx, businessID)
		if err != nil {
			return err
		}
		if !biz.UpgradeRequested {
			return ErrNoPendingRequest
		}

		before := biz.BusinessProgress
		biz.UpgradeRequested = false
		biz.UpgradeRequestedAt = nil

		if err := s.accounts.UpdateProgressTx(ctx, tx, biz.ID, biz.BusinessProgress); err != nil {
			return err
		}
		if err := s.audit.RecordTx(ctx, tx, adminID, audit.ActionUpgradeRejected, audit.TargetBusiness, biz.ID, reason, before, biz.BusinessProgress); err != nil {
			return err
		}

		progress = progressOf(biz)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, notification.TypeUpgradeRejected, businessID, map[string]interface{}{
		"level":  progress.BusinessLevel,
		"reason": reason,
	})
	log.Info().
		Str("business_id", businessID.String()).
		Str("admin_id", adminID.String()).
		Msg("Upgrade rejected")

	return progress, nil
}

func (s *Service) GetProgress(ctx context.Context, businessID uuid.UUID) (*Progress, error) {
	biz, err := s.accounts.GetByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	if !biz.IsBusiness() {
		return nil, ErrNotBusiness
	}
	return progressOf(biz), nil
}

// ListPendingUpgrades is the admin review queue, oldest request first
func (s *Service) ListPendingUpgrades(ctx context.Context, limit, offset int) ([]*Progress, error) {
	accounts, err := s.accounts.ListPendingUpgrades(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	items := make([]*Progress, len(accounts))
	for i, a := range accounts {
		items[i] = progressOf(a)
	}
	return items, nil
}

func (s *Service) ListXPEvents(ctx context.Context, businessID uuid.UUID, limit, offset int) ([]*XPEvent, error) {
	return s.xp.ListXPEvents(ctx, businessID, limit, offset)
}

func (s *Service) lockBusiness(ctx context.Context, tx *sqlx.Tx, businessID uuid.UUID) (*account.Account, error) {
	biz, err := s.accounts.GetForUpdateTx(ctx, tx, businessID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrBusinessNotFound
		}
		return nil, err
	}
	if !biz.IsBusiness() {
		return nil, ErrNotBusiness
	}
	return biz, nil
}
