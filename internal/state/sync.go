package state

import (
	"sort"

	"example.com/crew-client/internal/wire"
)

// Rebuild derives a complete View from one authoritative snapshot. It is a
// pure function: applying the same snapshot twice yields equal views, and no
// field of a previous view survives into the next one.
//
// Hands are emptied for everyone except the local player. The server does
// not reveal other hands; dropping them here keeps the view honest even if
// it ever did.
func Rebuild(snap wire.Snapshot, localSessionID string) View {
	v := View{
		RoomID:         snap.RoomID,
		LocalSessionID: localSessionID,
		PlayerOrder:    append([]string(nil), snap.PlayerOrder...),
		CurrentPlayer:  snap.CurrentPlayer,
		Commander:      snap.Commander,
		CurrentTrick:   trickFromWire(snap.CurrentTrick),
		PlayedCards:    append([]wire.Card(nil), snap.CurrentTrick.PlayedCards...),
		ExpectedTricks: snap.ExpectedTrickCount,
		Stage:          Stage(snap.Stage),
		GameFinished:   snap.GameFinished,
		GameSucceeded:  snap.GameSucceeded,
		UseExpansion:   snap.UseExpansion,
	}

	for _, id := range orderedSessionIDs(snap) {
		ps := snap.Players[id]
		p := playerFromWire(ps, id == localSessionID)
		v.Players = append(v.Players, p)

		if id == localSessionID {
			local := p
			v.ActivePlayer = &local
			v.Hand = p.Hand
		}
	}

	for _, t := range snap.CompletedTricks {
		v.CompletedTricks = append(v.CompletedTricks, trickFromWire(t))
	}

	for _, ts := range snap.Tasks {
		v.Tasks = append(v.Tasks, taskFromWire(ts))
	}

	if len(snap.History) > 0 {
		v.History = make(map[string]HistoryStat, len(snap.History))
		for id, h := range snap.History {
			stat := HistoryStat{Hand: append([]wire.Card(nil), h.Hand...)}
			for _, ts := range h.Tasks {
				stat.Tasks = append(stat.Tasks, taskFromWire(ts))
			}
			v.History[id] = stat
		}
	}

	return v
}

// orderedSessionIDs lists players in play order; anyone not yet ordered
// (lobby stage) follows sorted by session id, so rebuilds stay deterministic.
func orderedSessionIDs(snap wire.Snapshot) []string {
	ids := make([]string, 0, len(snap.Players))
	seen := make(map[string]bool, len(snap.Players))

	for _, id := range snap.PlayerOrder {
		if _, ok := snap.Players[id]; ok && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	var rest []string
	for id := range snap.Players {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)

	return append(ids, rest...)
}

func playerFromWire(ps wire.PlayerState, local bool) Player {
	p := Player{
		SessionID:            ps.SessionID,
		DisplayName:          ps.DisplayName,
		HasCommunicated:      ps.HasCommunicated,
		IntendsToCommunicate: ps.IntendsToCommunicate,
		CommunicationRank:    Rank(ps.CommunicationRank),
		IsHost:               ps.IsHost,
		Connected:            ps.Connected,
	}
	if ps.CommunicationCard != nil {
		card := *ps.CommunicationCard
		p.CommunicationCard = &card
	}
	if local {
		p.Hand = append([]wire.Card(nil), ps.Hand...)
	}
	return p
}

func trickFromWire(ts wire.TrickState) Trick {
	return Trick{
		PlayedCards: append([]wire.Card(nil), ts.PlayedCards...),
		PlayerOrder: append([]string(nil), ts.PlayerOrder...),
		Winner:      ts.TrickWinner,
		Completed:   ts.TrickCompleted,
	}
}
