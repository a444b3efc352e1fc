package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/pointhub/pointhub-api/internal/domain/claim"
	"github.com/pointhub/pointhub-api/internal/domain/notification"
	"github.com/pointhub/pointhub-api/internal/pkg/database"
)

// Service is the transaction engine: every point movement in the system goes through it.
type Service struct {
	tx              *database.TxRunner
	repo            *Repository
	guard           *claim.Guard
	events          notification.Publisher
	pointsPerCredit decimal.Decimal
}

func NewService(runner *database.TxRunner, repo *Repository, guard *claim.Guard, events notification.Publisher, pointsPerCredit decimal.Decimal) *Service {
	if events == nil {
		events = notification.NopPublisher{}
	}
	if !pointsPerCredit.IsPositive() {
		pointsPerCredit = decimal.NewFromInt(100)
	}
	return &Service{
		tx:              runner,
		repo:            repo,
		guard:           guard,
		events:          events,
		pointsPerCredit: pointsPerCredit,
	}
}

// Apply performs one mutation in its own database transaction.
func (s *Service) Apply(ctx context.Context, e Entry) (*Transaction, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	var txn *Transaction
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		txn, err = s.repo.ApplyTx(ctx, tx, e)
		return err
	})
	if err != nil {
		return nil, err
	}

	logApplied(txn)
	return txn, nil
}

// ApplyTx performs one mutation inside the caller's transaction.
func (s *Service) ApplyTx(ctx context.Context, tx *sqlx.Tx, e Entry) (*Transaction, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return s.repo.ApplyTx(ctx, tx, e)
}

func (s *Service) AwardPoints(ctx context.Context, accountID uuid.UUID, amount int64, reason, relatedEntityID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	txn, err := s.Apply(ctx, Entry{
		AccountID:       accountID,
		Amount:          amount,
		Kind:            KindEarn,
		Reason:          reason,
		RelatedEntityID: relatedEntityID,
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, notification.TypePointsEarned, accountID, map[string]interface{}{
		"amount":  amount,
		"reason":  reason,
		"balance": txn.BalanceAfter,
	})
	return txn, nil
}

func (s *Service) SpendPoints(ctx context.Context, accountID uuid.UUID, amount int64, reason, relatedEntityID string) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	return s.Apply(ctx, Entry{
		AccountID:       accountID,
		Amount:          -amount,
		Kind:            KindSpend,
		Reason:          reason,
		RelatedEntityID: relatedEntityID,
	})
}

// TransferTx debits from and credits to inside tx. The debit goes first because
// it is the leg with a balance precondition.
func (s *Service) TransferTx(ctx context.Context, tx *sqlx.Tx, from, to uuid.UUID, amount int64, reason, relatedEntityID string) (*Transfer, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if from == to {
		return nil, ErrSameAccount
	}

	debit, err := s.repo.ApplyTx(ctx, tx, Entry{
		AccountID:       from,
		Amount:          -amount,
		Kind:            KindSpend,
		Reason:          reason,
		RelatedEntityID: relatedEntityID,
	})
	if err != nil {
		return nil, err
	}

	credit, err := s.repo.ApplyTx(ctx, tx, Entry{
		AccountID:       to,
		Amount:          amount,
		Kind:            KindEarn,
		Reason:          reason,
		RelatedEntityID: relatedEntityID,
	})
	if err != nil {
		return nil, err
	}

	return &Transfer{Debit: debit, Credit: credit}, nil
}

// ReverseTransferTx undoes a TransferTx with two REFUND legs. The original payee is
// debited first; if it no longer holds the points the whole reversal fails.
func (s *Service) ReverseTransferTx(ctx context.Context, tx *sqlx.Tx, payer, payee uuid.UUID, amount int64, reason, relatedEntityID string) (*Transfer, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if payer == payee {
		return nil, ErrSameAccount
	}

	debit, err := s.repo.ApplyTx(ctx, tx, Entry{
		AccountID:       payee,
		Amount:          -amount,
		Kind:            KindRefund,
		Reason:          reason,
		RelatedEntityID: relatedEntityID,
	})
	if err != nil {
		return nil, err
	}

	credit, err := s.repo.ApplyTx(ctx, tx, Entry{
		AccountID:       payer,
		Amount:          amount,
		Kind:            KindRefund,
		Reason:          reason,
		RelatedEntityID: relatedEntityID,
	})
	if err != nil {
		return nil, err
	}

	return &Transfer{Debit: debit, Credit: credit}, nil
}

// CompleteMission awards points once per (account, mission). The claim row and the
// EARN commit together, so a failed award can be retried.
func (s *Service) CompleteMission(ctx context.Context, accountID uuid.UUID, missionID string, points int64) (*Transaction, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}

	key := claim.MissionKey(missionID)
	var txn *Transaction
	err := s.tx.WithTx(ctx, func(tx *sqlx.Tx) error {
		claimed, err := s.guard.TryClaimTx(ctx, tx, accountID, key)
		if err != nil {
			return err
		}
		if !claimed {
			return ErrMissionClaimed
		}

		txn, err = s.repo.ApplyTx(ctx, tx, Entry{
			AccountID:       accountID,
			Amount:          points,
			Kind:            KindEarn,
			Reason:          "mission completed",
			RelatedEntityID: key,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	logApplied(txn)
	s.events.Publish(ctx, notification.TypePointsEarned, accountID, map[string]interface{}{
		"amount":     points,
		"mission_id": missionID,
		"balance":    txn.BalanceAfter,
	})
	return txn, nil
}

// ConvertPoints turns business points into subscription credit at the configured rate.
// Credit is rounded down to cents; points worth less than one cent are rejected.
func (s *Service) ConvertPoints(ctx context.Context, businessID uuid.UUID, points int64) (*Conversion, error) {
	if points <= 0 {
		return nil, ErrInvalidAmount
	}

	credit := decimal.NewFromInt(points).Div(s.pointsPerCredit).RoundDown(2)
	if !credit.IsPositive() {
		return nil, ErrConversionTooSmall
	}

	txn, err := s.Apply(ctx, Entry{
		AccountID:       businessID,
		Amount:          -points,
		Kind:            KindConversion,
		Reason:          "converted to subscription credit",
		RelatedEntityID: fmt.Sprintf("credit:%s", credit.StringFixed(2)),
	})
	if err != nil {
		return nil, err
	}

	return &Conversion{
		Transaction: txn,
		Points:      points,
		Credit:      credit,
		Rate:        s.pointsPerCredit,
	}, nil
}

func (s *Service) GetBalance(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return s.repo.GetBalance(ctx, accountID)
}

func (s *Service) ListTransactions(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, accountID, limit, offset)
}

// ListByRelatedEntity returns the legs tagged with one mission, redemption or streak id, oldest first.
func (s *Service) ListByRelatedEntity(ctx context.Context, relatedEntityID string) ([]Transaction, error) {
	return s.repo.ListByRelatedEntity(ctx, relatedEntityID)
}

// Verify checks that the balance equals both the newest balance_after and the log sum.
func (s *Service) Verify(ctx context.Context, accountID uuid.UUID) (*Check, error) {
	check, err := s.repo.Check(ctx, accountID)
	if err != nil {
		return nil, err
	}
	check.AccountID = accountID
	if !check.Consistent {
		log.Error().
			Str("account_id", accountID.String()).
			Int64("point_balance", check.PointBalance).
			Int64("log_sum", check.LogSum).
			Msg("Ledger inconsistency detected")
	}
	return check, nil
}

func logApplied(txn *Transaction) {
	log.Info().
		Str("account_id", txn.AccountID.String()).
		Str("kind", string(txn.Kind)).
		Int64("amount", txn.Amount).
		Int64("balance_after", txn.BalanceAfter).
		Msg("ledger transaction applied")
}
