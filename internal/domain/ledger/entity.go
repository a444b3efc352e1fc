package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies a balance mutation
type Kind string

const (
	KindEarn       Kind = "EARN"
	KindSpend      Kind = "SPEND"
	KindConversion Kind = "CONVERSION"
	KindRefund     Kind = "REFUND"
)

// Transaction is an immutable point_transactions row.
// BalanceAfter of the newest row equals the account's point_balance.
type Transaction struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Seq             int64     `db:"seq" json:"-"`
	AccountID       uuid.UUID `db:"account_id" json:"account_id"`
	Amount          int64     `db:"amount" json:"amount"`
	Kind            Kind      `db:"kind" json:"kind"`
	Reason          string    `db:"reason" json:"reason"`
	RelatedEntityID *string   `db:"related_entity_id" json:"related_entity_id,omitempty"`
	BalanceBefore   int64     `db:"balance_before" json:"balance_before"`
	BalanceAfter    int64     `db:"balance_after" json:"balance_after"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Entry is a requested mutation. Amount is signed: EARN > 0, SPEND and CONVERSION < 0,
// REFUND either way depending on which leg it reverses.
type Entry struct {
	AccountID       uuid.UUID
	Amount          int64
	Kind            Kind
	Reason          string
	RelatedEntityID string
}

func (e Entry) Validate() error {
	if e.AccountID == uuid.Nil {
		return ErrAccountNotFound
	}
	if e.Amount == 0 {
		return ErrInvalidAmount
	}
	switch e.Kind {
	case KindEarn:
		if e.Amount < 0 {
			return ErrInvalidAmount
		}
	case KindSpend, KindConversion:
		if e.Amount > 0 {
			return ErrInvalidAmount
		}
	case KindRefund:
	default:
		return ErrInvalidKind
	}
	return nil
}

// Transfer is the two legs of a point movement between accounts
type Transfer struct {
	Debit  *Transaction `json:"debit"`
	Credit *Transaction `json:"credit"`
}

// Conversion is the outcome of turning points into subscription credit
type Conversion struct {
	Transaction *Transaction    `json:"transaction"`
	Points      int64           `json:"points"`
	Credit      decimal.Decimal `json:"credit"`
	Rate        decimal.Decimal `json:"points_per_credit"`
}

// Check compares an account balance against its transaction log
type Check struct {
	AccountID          uuid.UUID `db:"-" json:"account_id"`
	PointBalance       int64     `db:"point_balance" json:"point_balance"`
	LatestBalanceAfter *int64    `db:"latest_balance_after" json:"latest_balance_after,omitempty"`
	LogSum             int64     `db:"log_sum" json:"log_sum"`
	Transactions       int64     `db:"transactions" json:"transactions"`
	Consistent         bool      `db:"-" json:"consistent"`
}
