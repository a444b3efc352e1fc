package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelForPoints(t *testing.T) {
	cases := map[int64]int{
		0:      1,
		499:    1,
		500:    2,
		4999:   3,
		10000:  5,
		250000: 6,
	}
	for earned, want := range cases {
		assert.Equal(t, want, LevelForPoints(earned), "earned=%d", earned)
	}
}

func TestAccountLevelUsesBusinessLevelForBusinesses(t *testing.T) {
	biz := &Account{Role: RoleBusiness, TotalPointsEarned: 99999}
	biz.BusinessLevel = 2
	assert.Equal(t, 2, biz.Level())

	customer := &Account{Role: RoleCustomer, TotalPointsEarned: 2000}
	assert.Equal(t, 3, customer.Level())
}

func TestRoleValid(t *testing.T) {
	assert.True(t, RoleCreator.Valid())
	assert.False(t, Role("pirate").Valid())
}
