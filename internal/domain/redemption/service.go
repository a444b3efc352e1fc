package redemption

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/pointhub/pointhub-api/internal/domain/account"
	"github.com/pointhub/pointhub-api/internal/domain/claim"
	"github.com/pointhub/pointhub-api/internal/domain/ledger"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/domain/reward"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

// RewardStore is the part of the reward repository redemptions depend on
type RewardStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*reward.Reward, error)
	IncrementClaimedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (bool, error)
	DecrementClaimedTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) error
}

// AccountReader loads the redeeming customer
type AccountReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
}

// Ledger moves points; redemptions never touch balances directly
type Ledger interface {
	TransferTx(ctx context.Context, tx *sqlx.Tx, from, to uuid.UUID, amount int64, reason, relatedEntityID string) (*ledger.Transfer, error)
	ReverseTransferTx(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount int64, reason, relatedEntityID string) (*ledger.Transfer, error)
	ListByRelatedEntity(ctx context.Context, relatedEntityID string) ([]ledger.Transaction, error)
}

type Config struct {
	TTL          time.Duration
	RefundPolicy RefundPolicy
	SweepBatch   int
	// Location defines weekdays and time-of-day for reward eligibility windows
	Location *time.Location
}

type Service struct {
	tx       *database.TxRunner
	repo     *Repository
	rewards  RewardStore
	accounts AccountReader
	ledger   Ledger
	clicks   *claim.ClickGuard
	events   notification.Publisher
	cfg      Config
	now      func() time.Time
}

func NewService(
	runner *database.TxRunner,
	repo *Repository,
	rewards RewardStore,
	accounts AccountReader,
	ledgerSvc Ledger,
	clicks *claim.ClickGuard,
	events notification.Publisher,
	cfg Config,
) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	if cfg.RefundPolicy == "" {
		cfg.RefundPolicy = RefundNone
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 500
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if events == nil {
		events = notification.NopPublisher{}
	}
	return &Service{
		tx:       runner,
		repo:     repo,
		rewards:  rewards,
		accounts: accounts,
		ledger:   ledgerSvc,
		clicks:   clicks,
		events:   events,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Redeem moves the reward's cost from the customer to the business, takes one unit
// of stock and creates a PENDING redemption, all in one database transaction.
func (s *Service) Redeem(ctx context.Context, userID, rewardID uuid.UUID) (*Redemption, error) {
	now := s.now()

	rw, err := s.rewards.GetByID(ctx, rewardID)
	if err != nil {
		return nil, err
	}
	customer, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rw.BusinessID == userID {
		return nil, ErrOwnReward
	}
	if err := rw.CheckRedeemable(customer.Level(), now, s.cfg.Location); err != nil {
		return nil, err
	}

	clickKey := claim.RedemptionClickKey(userID, rewardID, now, s.clicks.Window())
	if !s.clicks.Acquire(ctx, clickKey) {
		return nil, ErrDuplicateRedemption
	}

	rd := &Redemption{
		ID:          uuid.New(),
		UserID:      userID,
		RewardID:    rw.ID,
		BusinessID:  rw.BusinessID,
		PointsSpent: rw.PointsCost,
		Status:      StatusPending,
		RedeemedAt:  now,
		ExpiresAt:   now.Add(s.cfg.TTL),
		UpdatedAt:   now,
	}
	if end, ok := rw.EndsAt(); ok && end.Before(rd.ExpiresAt) {
		rd.ExpiresAt = end
	}

	err = s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := s.ledger.TransferTx(ctx, tx, userID, rw.BusinessID, rw.PointsCost, "reward redemption: "+rw.Title, rd.RelatedEntityID()); err != nil {
			return err
		}

		taken, err := s.rewards.IncrementClaimedTx(ctx, tx, rw.ID)
		if err != nil {
			return err
		}
		if !taken {
			return reward.ErrRewardSoldOut
		}

		if rd.CouponCode, err = generateCouponCode(); err != nil {
			return err
		}
		return s.repo.CreateTx(ctx, tx, rd)
	})
	if err != nil {
		s.clicks.Release(ctx, clickKey)
		if database.IsUniqueViolation(err) {
			return nil, fmt.Errorf("coupon collision: %w", err)
		}
		return nil, err
	}

	log.Info().
		Str("redemption_id", rd.ID.String()).
		Str("user_id", userID.String()).
		Str("reward_id", rewardID.String()).
		Int64("points", rd.PointsSpent).
		Msg("Reward redeemed")

	s.events.Publish(ctx, notification.TypeRewardRedeemed, userID, map[string]interface{}{
		"redemption_id": rd.ID,
		"reward_id":     rewardID,
		"points":        rd.PointsSpent,
		"coupon_code":   rd.CouponCode,
	})
	s.events.Publish(ctx, notification.TypeRewardRedeemed, rw.BusinessID, map[string]interface{}{
		"redemption_id": rd.ID,
		"reward_id":     rewardID,
		"points":        rd.PointsSpent,
	})

	return rd, nil
}

// Approve moves a PENDING redemption to APPROVED. Only the issuing business may approve.
func (s *Service) Approve(ctx context.Context, id, businessUserID uuid.UUID) (*Redemption, error) {
	rd, err := s.transition(ctx, id, StatusApproved, ownedBy(businessUserID), func(_ *sqlx.Tx, rd *Redemption, now time.Time) error {
		rd.ApprovedAt = sql.NullTime{Time: now, Valid: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, notification.TypeRedemptionApproved, rd.UserID, map[string]interface{}{
		"redemption_id": rd.ID,
	})
	return rd, nil
}

// MarkUsed consumes the coupon. Valid from PENDING or APPROVED, issuing business only.
func (s *Service) MarkUsed(ctx context.Context, id, businessUserID uuid.UUID) (*Redemption, error) {
	rd, err := s.transition(ctx, id, StatusUsed, ownedBy(businessUserID), func(_ *sqlx.Tx, rd *Redemption, now time.Time) error {
		rd.UsedAt = sql.NullTime{Time: now, Valid: true}
		rd.UsedBy = uuid.NullUUID{UUID: businessUserID, Valid: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, notification.TypeRedemptionUsed, rd.UserID, map[string]interface{}{
		"redemption_id": rd.ID,
	})
	return rd, nil
}

// Cancel reverses both legs of the transfer, returns the unit to stock and moves
// the redemption to CANCELLED. The customer, the issuing business or an admin may cancel.
// If the business no longer holds the points the cancellation fails with InsufficientBalance.
func (s *Service) Cancel(ctx context.Context, id, callerID uuid.UUID, callerRole string) (*Redemption, error) {
	rd, err := s.transition(ctx, id, StatusCancelled, visibleTo(callerID, callerRole), func(tx *sqlx.Tx, rd *Redemption, now time.Time) error {
		if _, err := s.ledger.ReverseTransferTx(ctx, tx, rd.UserID, rd.BusinessID, rd.PointsSpent, "redemption cancelled", rd.RelatedEntityID()); err != nil {
			return err
		}
		if err := s.rewards.DecrementClaimedTx(ctx, tx, rd.RewardID); err != nil {
			return err
		}
		rd.CancelledAt = sql.NullTime{Time: now, Valid: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, notification.TypeRedemptionCancelled, rd.UserID, map[string]interface{}{
		"redemption_id": rd.ID,
		"refunded":      rd.PointsSpent,
	})
	return rd, nil
}

func ownedBy(businessUserID uuid.UUID) func(*Redemption) error {
	return func(rd *Redemption) error {
		if rd.BusinessID != businessUserID {
			return ErrUnauthorized
		}
		return nil
	}
}

func visibleTo(callerID uuid.UUID, callerRole string) func(*Redemption) error {
	return func(rd *Redemption) error {
		if callerID != rd.UserID && callerID != rd.BusinessID && callerRole != string(account.RoleAdmin) {
			return ErrUnauthorized
		}
		return nil
	}
}

// transition runs one state change under the row lock. apply runs inside the same
// transaction after the checks and before the status write.
// An overdue redemption is expired in place and ErrRedemptionExpired returned.
func (s *Service) transition(
	ctx context.Context,
	id uuid.UUID,
	next Status,
	authorize func(rd *Redemption) error,
	apply func(tx *sqlx.Tx, rd *Redemption, now time.Time) error,
) (*Redemption, error) {
	now := s.now()
	var (
		result  *Redemption
		expired bool
	)

	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		expired = false

		rd, err := s.repo.GetForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}

		from := rd.Status
		if err := authorize(rd); err != nil {
			return err
		}
		if rd.Overdue(now) {
			expired = true
			result = rd
			return s.expireTx(ctx, tx, rd, now)
		}
		if !from.CanTransitionTo(next) {
			return ErrInvalidTransition
		}

		if err := apply(tx, rd, now); err != nil {
			return err
		}

		rd.Status = next
		rd.UpdatedAt = now
		moved, err := s.repo.TransitionTx(ctx, tx, from, rd)
		if err != nil {
			return err
		}
		if !moved {
			return ErrInvalidTransition
		}
		result = rd
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		s.publishExpired(ctx, result)
		return nil, ErrRedemptionExpired
	}

	log.Info().
		Str("redemption_id", id.String()).
		Str("status", string(next)).
		Msg("Redemption status changed")
	return result, nil
}

// expireTx moves a locked open redemption to EXPIRED and applies the refund policy.
// Under RefundCustomer a business that no longer holds the points keeps the
// redemption expiring without a refund rather than blocking the sweep.
func (s *Service) expireTx(ctx context.Context, tx *sqlx.Tx, rd *Redemption, now time.Time) error {
	from := rd.Status

	if s.cfg.RefundPolicy == RefundCustomer {
		_, err := s.ledger.ReverseTransferTx(ctx, tx, rd.UserID, rd.BusinessID, rd.PointsSpent, "redemption expired", rd.RelatedEntityID())
		switch {
		case errors.Is(err, ledger.ErrInsufficientBalance):
			log.Warn().
				Str("redemption_id", rd.ID.String()).
				Str("business_id", rd.BusinessID.String()).
				Msg("Business cannot cover expiry refund, expiring without refund")
		case err != nil:
			return err
		}
	}

	rd.Status = StatusExpired
	rd.ExpiredAt = sql.NullTime{Time: now, Valid: true}
	rd.UpdatedAt = now
	moved, err := s.repo.TransitionTx(ctx, tx, from, rd)
	if err != nil {
		return err
	}
	if !moved {
		return ErrInvalidTransition
	}
	return nil
}

// ExpireStale expires one batch of overdue redemptions and returns how many it moved.
// Each row is handled in its own transaction under the row lock, so concurrent sweeps
// and live transitions never double-process a row.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	now := s.now()

	ids, err := s.repo.ListExpirable(ctx, now, s.cfg.SweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	var errs []error
	for _, id := range ids {
		var rd *Redemption
		err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
			rd = nil
			locked, err := s.repo.GetForUpdateTx(ctx, tx, id)
			if err != nil {
				return err
			}
			if !locked.Overdue(now) {
				return nil
			}
			if err := s.expireTx(ctx, tx, locked, now); err != nil {
				return err
			}
			rd = locked
			return nil
		})
		if err != nil {
			log.Error().Err(err).Str("redemption_id", id.String()).Msg("Failed to expire redemption")
			errs = append(errs, err)
			continue
		}
		if rd != nil {
			expired++
			s.publishExpired(ctx, rd)
		}
	}

	if expired > 0 {
		log.Info().Int("count", expired).Str("refund_policy", string(s.cfg.RefundPolicy)).Msg("Expired stale redemptions")
	}
	return expired, errors.Join(errs...)
}

func (s *Service) publishExpired(ctx context.Context, rd *Redemption) {
	s.events.Publish(ctx, notification.TypeRedemptionExpired, rd.UserID, map[string]interface{}{
		"redemption_id": rd.ID,
		"refunded":      s.cfg.RefundPolicy == RefundCustomer,
	})
}

// GetByID returns a redemption to its customer, its business or an admin.
func (s *Service) GetByID(ctx context.Context, id, callerID uuid.UUID, callerRole string) (*Redemption, error) {
	rd, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := visibleTo(callerID, callerRole)(rd); err != nil {
		return nil, err
	}
	return rd, nil
}

// GetDetail is GetByID plus the ledger legs recorded against the redemption:
// the SPEND/EARN pair from Redeem and any REFUND pair from cancel or expiry.
func (s *Service) GetDetail(ctx context.Context, id, callerID uuid.UUID, callerRole string) (*Redemption, []ledger.Transaction, error) {
	rd, err := s.GetByID(ctx, id, callerID, callerRole)
	if err != nil {
		return nil, nil, err
	}
	legs, err := s.ledger.ListByRelatedEntity(ctx, rd.RelatedEntityID())
	if err != nil {
		return nil, nil, err
	}
	return rd, legs, nil
}

func (s *Service) FindByCoupon(ctx context.Context, businessID uuid.UUID, code string) (*Redemption, error) {
	return s.repo.GetByCoupon(ctx, businessID, code)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Redemption, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListByBusiness(ctx context.Context, businessID uuid.UUID, status Status, limit, offset int) ([]*Redemption, error) {
	limit, offset = clampPage(limit, offset)
	return s.repo.ListByBusiness(ctx, businessID, status, limit, offset)
}

// Now is the clock used for effective status on reads
func (s *Service) Now() time.Time {
	return s.now()
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
