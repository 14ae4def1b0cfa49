// Package derive computes client-side facts the server does not send
// directly. Everything here is a pure function over the current view, and
// must agree with the validation the server applies on its side.
package derive

import (
	"example.com/crew-client/internal/state"
	"example.com/crew-client/internal/wire"
)

// IsLocalTurn reports whether the local player is the current player.
func IsLocalTurn(v state.View) bool {
	return v.LocalSessionID != "" && v.CurrentPlayer == v.LocalSessionID
}

// ClassifyCommunication returns the rank the candidate card would be
// communicated with, given the local hand:
//
//	black card            → RankInvalid
//	only card of color    → RankOnly
//	lowest of that color  → RankLowest
//	highest of that color → RankHighest
//	anything else         → RankUnknown (not a legal communication)
func ClassifyCommunication(candidate wire.Card, hand []wire.Card) state.Rank {
	if candidate.Color == wire.Black {
		return state.RankInvalid
	}

	lo, hi, count := 0, 0, 0
	for _, c := range hand {
		if c.Color != candidate.Color {
			continue
		}
		if count == 0 || c.Number < lo {
			lo = c.Number
		}
		if count == 0 || c.Number > hi {
			hi = c.Number
		}
		count++
	}

	switch {
	case count == 0:
		// the candidate is not even in the hand's color set
		return state.RankInvalid
	case count == 1:
		return state.RankOnly
	case candidate.Number == lo:
		return state.RankLowest
	case candidate.Number == hi:
		return state.RankHighest
	default:
		return state.RankUnknown
	}
}

// UnclaimedTasks filters the task list down to tasks nobody has taken.
func UnclaimedTasks(v state.View) []state.Task {
	var out []state.Task
	for _, t := range v.Tasks {
		if t.Base().Player == "" {
			out = append(out, t)
		}
	}
	return out
}

// TasksOwnedBy filters the task list down to one player's tasks.
func TasksOwnedBy(v state.View, sessionID string) []state.Task {
	var out []state.Task
	for _, t := range v.Tasks {
		if t.Base().Player == sessionID {
			out = append(out, t)
		}
	}
	return out
}

// AllTasksClaimed is true iff there is at least one task and every task has
// an owner. A game with zero tasks configured is "no tasks", not "all
// claimed": callers gating a start action must check len(v.Tasks) themselves.
func AllTasksClaimed(v state.View) bool {
	if len(v.Tasks) == 0 {
		return false
	}
	for _, t := range v.Tasks {
		if t.Base().Player == "" {
			return false
		}
	}
	return true
}
