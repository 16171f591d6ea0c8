// Package vote implements toggle voting on questions and answers.
//
// A user's membership in an entity's upvote and downvote sets is mutually
// exclusive. Voting in the direction the user already holds removes the
// vote, voting in the opposite direction switches it in a single change.
package vote

import (
	"fmt"
	"strings"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection accepts "up" or "down", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Up:
		return Up, nil
	case Down:
		return Down, nil
	}
	return "", fmt.Errorf("invalid vote type %q: must be up or down", s)
}

// Value is the signed weight stored for a vote row (+1 / -1).
func (d Direction) Value() int {
	if d == Down {
		return -1
	}
	return 1
}

func (d Direction) Opposite() Direction {
	if d == Up {
		return Down
	}
	return Up
}

type Membership int

const (
	None Membership = iota
	InUp
	InDown
)

// MembershipOf maps a stored vote value to a Membership.
func MembershipOf(value int) Membership {
	switch {
	case value > 0:
		return InUp
	case value < 0:
		return InDown
	}
	return None
}

func (m Membership) holds(d Direction) bool {
	return (m == InUp && d == Up) || (m == InDown && d == Down)
}

type Action int

const (
	// Remove takes the user out of the requested set.
	Remove Action = iota + 1
	// Add puts the user into the requested set.
	Add
	// Switch moves the user from the opposite set into the requested one.
	Switch
)

func (a Action) String() string {
	switch a {
	case Remove:
		return "removed"
	case Add:
		return "added"
	case Switch:
		return "switched"
	}
	return "unknown"
}

// Decide returns the change that toggling dir produces from current.
func Decide(current Membership, dir Direction) Action {
	switch {
	case current.holds(dir):
		return Remove
	case current == None:
		return Add
	default:
		return Switch
	}
}

// After returns the membership that results from applying a to dir.
func (a Action) After(dir Direction) Membership {
	if a == Remove {
		return None
	}
	if dir == Up {
		return InUp
	}
	return InDown
}

type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
	VoteCount int `json:"voteCount"`
}

func NewTally(up, down int) Tally {
	return Tally{Upvotes: up, Downvotes: down, VoteCount: up - down}
}

// Sets holds the upvoter and downvoter sets of one entity.
type Sets struct {
	up   map[string]struct{}
	down map[string]struct{}
}

func NewSets() *Sets {
	return &Sets{up: map[string]struct{}{}, down: map[string]struct{}{}}
}

func (s *Sets) Membership(userID string) Membership {
	if _, ok := s.up[userID]; ok {
		return InUp
	}
	if _, ok := s.down[userID]; ok {
		return InDown
	}
	return None
}

// Toggle applies a vote by userID in dir and returns the action taken.
func (s *Sets) Toggle(userID string, dir Direction) Action {
	action := Decide(s.Membership(userID), dir)
	target, other := s.up, s.down
	if dir == Down {
		target, other = s.down, s.up
	}
	switch action {
	case Remove:
		delete(target, userID)
	case Switch:
		delete(other, userID)
		target[userID] = struct{}{}
	case Add:
		target[userID] = struct{}{}
	}
	return action
}

func (s *Sets) Tally() Tally {
	return NewTally(len(s.up), len(s.down))
}

// Upvoters returns a copy of the upvote set members.
func (s *Sets) Upvoters() []string { return keys(s.up) }

// Downvoters returns a copy of the downvote set members.
func (s *Sets) Downvoters() []string { return keys(s.down) }

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

type TargetKind string

const (
	QuestionTarget TargetKind = "question"
	AnswerTarget   TargetKind = "answer"
)

// Target identifies the entity a vote is cast on.
type Target struct {
	Kind TargetKind
	ID   string
}
