package redemption

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status of a redemption. USED, EXPIRED and CANCELLED are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusUsed      Status = "USED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusUsed, StatusExpired, StatusCancelled},
	StatusApproved: {StatusUsed, StatusExpired, StatusCancelled},
}

// CanTransitionTo consults the transition table; anything not listed is rejected.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusUsed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// Redemption is one customer's claim against one reward
type Redemption struct {
	ID          uuid.UUID     `db:"id"`
	UserID      uuid.UUID     `db:"user_id"`
	RewardID    uuid.UUID     `db:"reward_id"`
	BusinessID  uuid.UUID     `db:"business_id"`
	PointsSpent int64         `db:"points_spent"`
	CouponCode  string        `db:"coupon_code"`
	Status      Status        `db:"status"`
	RedeemedAt  time.Time     `db:"redeemed_at"`
	ApprovedAt  sql.NullTime  `db:"approved_at"`
	UsedAt      sql.NullTime  `db:"used_at"`
	UsedBy      uuid.NullUUID `db:"used_by"`
	CancelledAt sql.NullTime  `db:"cancelled_at"`
	ExpiredAt   sql.NullTime  `db:"expired_at"`
	ExpiresAt   time.Time     `db:"expires_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

// Overdue reports an open redemption whose deadline has passed but which
// the sweep has not yet expired.
func (r *Redemption) Overdue(now time.Time) bool {
	return !r.Status.IsTerminal() && !now.Before(r.ExpiresAt)
}

// EffectiveStatus is the status a reader should see at now.
func (r *Redemption) EffectiveStatus(now time.Time) Status {
	if r.Overdue(now) {
		return StatusExpired
	}
	return r.Status
}

// RelatedEntityID tags the ledger legs of this redemption
func (r *Redemption) RelatedEntityID() string {
	return "redemption:" + r.ID.String()
}

// RefundPolicy decides what happens to the points of a redemption that expires unused.
type RefundPolicy string

const (
	// RefundNone keeps the transfer: the business keeps the points, the customer's value lapses
	RefundNone RefundPolicy = "none"
	// RefundCustomer reverses both legs as REFUND transactions
	RefundCustomer RefundPolicy = "customer"
)

func ParseRefundPolicy(s string) (RefundPolicy, error) {
	switch p := RefundPolicy(s); p {
	case RefundNone, RefundCustomer:
		return p, nil
	case "":
		return RefundNone, nil
	default:
		return "", fmt.Errorf("unknown redemption expiry refund policy %q", s)
	}
}
