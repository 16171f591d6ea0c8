package vote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("up")
	require.NoError(t, err)
	assert.Equal(t, Up, d)

	d, err = ParseDirection(" DOWN ")
	require.NoError(t, err)
	assert.Equal(t, Down, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
	_, err = ParseDirection("")
	assert.Error(t, err)
}

func TestDecide(t *testing.T) {
	cases := []struct {
		current Membership
		dir     Direction
		want    Action
	}{
		{None, Up, Add},
		{None, Down, Add},
		{InUp, Up, Remove},
		{InDown, Down, Remove},
		{InUp, Down, Switch},
		{InDown, Up, Switch},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Decide(tc.current, tc.dir), "current=%d dir=%s", tc.current, tc.dir)
	}
}

func TestActionAfter(t *testing.T) {
	assert.Equal(t, None, Remove.After(Up))
	assert.Equal(t, InUp, Add.After(Up))
	assert.Equal(t, InDown, Switch.After(Down))
}

func TestSets_DoubleToggleRestoresCounts(t *testing.T) {
	s := NewSets()
	s.Toggle("alice", Up)
	s.Toggle("bob", Down)
	before := s.Tally()

	for _, dir := range []Direction{Up, Down} {
		s.Toggle("carol", dir)
		s.Toggle("carol", dir)
		assert.Equal(t, before, s.Tally(), "direction %s", dir)
		assert.Equal(t, None, s.Membership("carol"))
	}
}

func TestSets_SwitchNeverLeavesUserInBothSets(t *testing.T) {
	s := NewSets()
	sequence := []Direction{Up, Down, Down, Up, Up, Down, Up}
	for _, dir := range sequence {
		s.Toggle("alice", dir)
		assert.False(t, contains(s.Upvoters(), "alice") && contains(s.Downvoters(), "alice"))
	}
}

func TestSets_Tally(t *testing.T) {
	s := NewSets()
	assert.Equal(t, Add, s.Toggle("a", Up))
	assert.Equal(t, Add, s.Toggle("b", Up))
	assert.Equal(t, Add, s.Toggle("c", Down))
	assert.Equal(t, Tally{Upvotes: 2, Downvotes: 1, VoteCount: 1}, s.Tally())

	assert.Equal(t, Switch, s.Toggle("a", Down))
	assert.Equal(t, Tally{Upvotes: 1, Downvotes: 2, VoteCount: -1}, s.Tally())
}

func TestMembershipOf(t *testing.T) {
	assert.Equal(t, InUp, MembershipOf(1))
	assert.Equal(t, InDown, MembershipOf(-1))
	assert.Equal(t, None, MembershipOf(0))
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
