package ledger

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestEntryValidate(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name  string
		entry Entry
		want  error
	}{
		{"earn positive", Entry{AccountID: id, Amount: 10, Kind: KindEarn}, nil},
		{"earn negative", Entry{AccountID: id, Amount: -10, Kind: KindEarn}, ErrInvalidAmount},
		{"spend negative", Entry{AccountID: id, Amount: -10, Kind: KindSpend}, nil},
		{"spend positive", Entry{AccountID: id, Amount: 10, Kind: KindSpend}, ErrInvalidAmount},
		{"conversion positive", Entry{AccountID: id, Amount: 10, Kind: KindConversion}, ErrInvalidAmount},
		{"refund either sign", Entry{AccountID: id, Amount: -10, Kind: KindRefund}, nil},
		{"zero amount", Entry{AccountID: id, Amount: 0, Kind: KindEarn}, ErrInvalidAmount},
		{"unknown kind", Entry{AccountID: id, Amount: 10, Kind: "GIFT"}, ErrInvalidKind},
		{"nil account", Entry{Amount: 10, Kind: KindEarn}, ErrAccountNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Validate())
		})
	}
}
