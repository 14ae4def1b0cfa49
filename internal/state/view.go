// Package state holds the client's local view of the authoritative game
// state. The view is rebuilt wholesale from every server snapshot; nothing
// here is ever mutated in place by user actions.
package state

import "example.com/crew-client/internal/wire"

type Stage string

const (
	StageNotStarted  Stage = "not_started"
	StageGameSetup   Stage = "game_setup"
	StageTrickStart  Stage = "trick_start"
	StageTrickMiddle Stage = "trick_middle"
	StageTrickEnd    Stage = "trick_end"
	StageGameEnd     Stage = "game_end"
)

// Rank is a declared communication classification.
type Rank string

const (
	RankHighest Rank = "highest"
	RankLowest  Rank = "lowest"
	RankOnly    Rank = "only"
	RankUnknown Rank = "unknown"
	RankInvalid Rank = "invalid" // never a legal communication (black cards)
)

type Player struct {
	SessionID            string
	DisplayName          string
	Hand                 []wire.Card // empty for everyone but the local player
	HasCommunicated      bool
	IntendsToCommunicate bool
	CommunicationCard    *wire.Card
	CommunicationRank    Rank
	IsHost               bool
	Connected            bool
}

type Trick struct {
	PlayedCards []wire.Card
	PlayerOrder []string // play order for this trick
	Winner      string
	Completed   bool
}

type HistoryStat struct {
	Hand  []wire.Card
	Tasks []Task
}

// View is the presentation-ready projection of the last authoritative
// snapshot. Readers must treat it as immutable.
type View struct {
	RoomID         string
	LocalSessionID string

	Players      []Player
	PlayerOrder  []string
	ActivePlayer *Player // the local player's own record

	Hand        []wire.Card
	PlayedCards []wire.Card

	CurrentPlayer string
	Commander     string

	CurrentTrick    Trick
	CompletedTricks []Trick
	ExpectedTricks  int

	Tasks []Task

	Stage         Stage
	GameFinished  bool
	GameSucceeded bool
	UseExpansion  bool

	History map[string]HistoryStat
}
