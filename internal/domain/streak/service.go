package streak

import (
	"context"
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
	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error)
	GetForUpdateTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*account.Account, error)
	UpdateStreakTx(ctx context.Context, tx *sqlx.Tx, id uuid.UUID, s account.StreakRecord) error
}

type Claimer interface {
	TryClaimTx(ctx context.Context, tx *sqlx.Tx, accountID uuid.UUID, key string) (bool, error)
	Claimed(ctx context.Context, accountID uuid.UUID, key string) (bool, error)
}

type Ledger interface {
	ApplyTx(ctx context.Context, tx *sqlx.Tx, e ledger.Entry) (*ledger.Transaction, error)
}

// ClaimResult is either AlreadyClaimedToday or a granted reward
type ClaimResult struct {
	AlreadyClaimedToday bool `json:"already_claimed_today"`
	Reward
	LongestStreak int                 `json:"longest_streak"`
	Transaction   *ledger.Transaction `json:"transaction,omitempty"`
}

// Status is the caller's streak as of today
type Status struct {
	account.StreakRecord
	ClaimedToday bool   `json:"claimed_today"`
	Next         Reward `json:"next_reward"`
}

type Service struct {
	tx       *database.TxRunner
	accounts AccountStore
	claims   Claimer
	ledger   Ledger
	events   notification.Publisher
	loc      *time.Location
	now      func() time.Time
}

// NewService creates the streak service. loc defines where a calendar day starts.
func NewService(runner *database.TxRunner, accounts AccountStore, claims Claimer, ledgerSvc Ledger, events notification.Publisher, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if events == nil {
		events = notification.NopPublisher{}
	}
	return &Service{
		tx:       runner,
		accounts: accounts,
		claims:   claims,
		ledger:   ledgerSvc,
		events:   events,
		loc:      loc,
		now:      time.Now,
	}
}

// ClaimDaily grants today's streak reward at most once per account and calendar day.
// The claim record, the EARN and the streak update commit together.
func (s *Service) ClaimDaily(ctx context.Context, accountID uuid.UUID) (*ClaimResult, error) {
	now := s.now()
	today := CivilDay(now, s.loc)
	key := claim.StreakKey(accountID, today)

	result := &ClaimResult{}
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		*result = ClaimResult{}

		acct, err := s.accounts.GetForUpdateTx(ctx, tx, accountID)
		if err != nil {
			return err
		}

		won, err := s.claims.TryClaimTx(ctx, tx, accountID, key)
		if err != nil {
			return err
		}
		if !won {
			return errSameDay
		}

		reward := Compute(acct.LoginStreak, acct.LastStreakRewardClaimed, today)
		if reward.SameDay {
			return errSameDay
		}

		txn, err := s.ledger.ApplyTx(ctx, tx, ledger.Entry{
			AccountID:       accountID,
			Amount:          reward.TotalPoints,
			Kind:            ledger.KindEarn,
			Reason:          fmt.Sprintf("daily streak day %d", reward.NewStreakLength),
			RelatedEntityID: key,
		})
		if err != nil {
			return err
		}

		record := acct.StreakRecord
		record.LoginStreak = reward.NewStreakLength
		if record.LoginStreak > record.LongestLoginStreak {
			record.LongestLoginStreak = record.LoginStreak
		}
		record.LastLoginAt = &now
		record.LastStreakRewardClaimed = &today
		record.TotalStreakPointsEarned += reward.TotalPoints
		if err := s.accounts.UpdateStreakTx(ctx, tx, accountID, record); err != nil {
			return err
		}

		result.Reward = reward
		result.LongestStreak = record.LongestLoginStreak
		result.Transaction = txn
		return nil
	})
	if errors.Is(err, errSameDay) {
		return &ClaimResult{AlreadyClaimedToday: true}, nil
	}
	if errors.Is(err, account.ErrAccountNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("account_id", accountID.String()).
		Int("streak", result.NewStreakLength).
		Int64("points", result.TotalPoints).
		Bool("milestone", result.MilestoneReached).
		Msg("Streak reward claimed")

	s.events.Publish(ctx, notification.TypeStreakClaimed, accountID, map[string]interface{}{
		"streak":    result.NewStreakLength,
		"points":    result.TotalPoints,
		"milestone": result.MilestoneReached,
	})
	return result, nil
}

// GetStatus reports the current streak and what a claim today would pay.
func (s *Service) GetStatus(ctx context.Context, accountID uuid.UUID) (*Status, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	today := CivilDay(s.now(), s.loc)
	claimed, err := s.claims.Claimed(ctx, accountID, claim.StreakKey(accountID, today))
	if err != nil {
		return nil, err
	}

	status := &Status{StreakRecord: acct.StreakRecord, ClaimedToday: claimed}
	if !claimed {
		status.Next = Compute(acct.LoginStreak, acct.LastStreakRewardClaimed, today)
	}
	return status, nil
}
