package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/crew-client/internal/wire"
)

func snapshotFixture() wire.Snapshot {
	return wire.Snapshot{
		RoomID: "R1",
		Players: map[string]wire.PlayerState{
			"p1": {
				SessionID:   "p1",
				DisplayName: "Alice",
				Hand:        []wire.Card{{Color: wire.Blue, Number: 3}, {Color: wire.Pink, Number: 9}},
				IsHost:      true,
				Connected:   true,
			},
			"p2": {
				SessionID:       "p2",
				DisplayName:     "Bob",
				Hand:            []wire.Card{{Color: wire.Green, Number: 1}},
				HasCommunicated: true,
				Connected:       true,
			},
		},
		PlayerOrder:   []string{"p2", "p1"},
		CurrentPlayer: "p2",
		Commander:     "p1",
		CurrentTrick: wire.TrickState{
			PlayedCards: []wire.Card{{Color: wire.Green, Number: 5}},
			PlayerOrder: []string{"p2", "p1"},
		},
		ExpectedTrickCount: 5,
		Tasks: []wire.TaskState{
			{Kind: "simple", TaskID: "t1", Player: "p1", Card: &wire.Card{Color: wire.Pink, Number: 2}, TaskCategory: "plain"},
			{Kind: "narrative", TaskID: "t2", DisplayName: "Win nothing", Difficulty: 3, InterestedPlayers: []string{"p2"}},
		},
		Stage: "trick_middle",
	}
}

func TestRebuild_HidesOtherHands(t *testing.T) {
	v := Rebuild(snapshotFixture(), "p1")

	require.Len(t, v.Players, 2)
	// play order decides the list order
	assert.Equal(t, "p2", v.Players[0].SessionID)
	assert.Equal(t, "p1", v.Players[1].SessionID)

	// only the local player's hand survives
	assert.Empty(t, v.Players[0].Hand)
	assert.Len(t, v.Players[1].Hand, 2)

	require.NotNil(t, v.ActivePlayer)
	assert.Equal(t, "p1", v.ActivePlayer.SessionID)
	assert.True(t, v.ActivePlayer.IsHost)
	assert.Equal(t, v.ActivePlayer.Hand, v.Hand)
}

func TestRebuild_CopiesFlagsAndCollections(t *testing.T) {
	v := Rebuild(snapshotFixture(), "p1")

	assert.Equal(t, "R1", v.RoomID)
	assert.Equal(t, "p2", v.CurrentPlayer)
	assert.Equal(t, "p1", v.Commander)
	assert.Equal(t, StageTrickMiddle, v.Stage)
	assert.Equal(t, 5, v.ExpectedTricks)
	assert.Equal(t, []wire.Card{{Color: wire.Green, Number: 5}}, v.CurrentTrick.PlayedCards)
	assert.Equal(t, v.CurrentTrick.PlayedCards, v.PlayedCards)

	require.Len(t, v.Tasks, 2)
	simple, ok := v.Tasks[0].(SimpleTask)
	require.True(t, ok, "first task should decode as SimpleTask")
	assert.Equal(t, "t1", simple.TaskID)
	assert.Equal(t, TaskPlain, simple.Category)
	assert.Equal(t, wire.Card{Color: wire.Pink, Number: 2}, simple.Card)

	narrative, ok := v.Tasks[1].(NarrativeTask)
	require.True(t, ok, "second task should decode as NarrativeTask")
	assert.Equal(t, "t2", narrative.TaskID)
	assert.Equal(t, 3, narrative.Difficulty)
	assert.Equal(t, []string{"p2"}, narrative.InterestedPlayers)
	assert.Empty(t, narrative.Player, "unclaimed")
}

func TestRebuild_Idempotent(t *testing.T) {
	snap := snapshotFixture()
	first := Rebuild(snap, "p1")
	second := Rebuild(snap, "p1")
	assert.Equal(t, first, second)
}

func TestRebuild_SecondSnapshotLeavesNoResidue(t *testing.T) {
	sync := NewSynchronizer()
	src := &fakeSource{id: "p1"}
	sync.Attach(src)

	src.push(snapshotFixture())

	// a later, smaller snapshot: p2 left, tasks gone, trick reset
	next := wire.Snapshot{
		RoomID: "R1",
		Players: map[string]wire.PlayerState{
			"p1": {SessionID: "p1", DisplayName: "Alice", Connected: true},
		},
		PlayerOrder:   []string{"p1"},
		CurrentPlayer: "p1",
		Stage:         "trick_start",
	}
	src.push(next)

	v := sync.Current()
	assert.Len(t, v.Players, 1)
	assert.Empty(t, v.Tasks, "tasks from the first snapshot must not leak")
	assert.Empty(t, v.CurrentTrick.PlayedCards)
	assert.Empty(t, v.CompletedTricks)
	assert.Equal(t, StageTrickStart, v.Stage)
	assert.Equal(t, Rebuild(next, "p1"), v)
}

func TestSynchronizer_DetachStopsUpdates(t *testing.T) {
	sync := NewSynchronizer()
	src := &fakeSource{id: "p1"}
	sync.Attach(src)

	src.push(snapshotFixture())
	require.Equal(t, "R1", sync.Current().RoomID)

	sync.Detach()
	assert.Empty(t, src.handlers, "unsubscribe must remove the handler")
}

func TestSynchronizer_AttachReplacesSubscription(t *testing.T) {
	sync := NewSynchronizer()
	src := &fakeSource{id: "p1"}

	sync.Attach(src)
	sync.Attach(src)

	// a second Attach must not layer a second listener on top
	assert.Len(t, src.handlers, 1)
}

type fakeSource struct {
	id       string
	nextID   int
	handlers map[int]func(wire.Snapshot)
}

func (f *fakeSource) SessionID() string { return f.id }

func (f *fakeSource) OnSnapshot(fn func(wire.Snapshot)) func() {
	if f.handlers == nil {
		f.handlers = make(map[int]func(wire.Snapshot))
	}
	id := f.nextID
	f.nextID++
	f.handlers[id] = fn
	return func() { delete(f.handlers, id) }
}

func (f *fakeSource) push(snap wire.Snapshot) {
	for _, fn := range f.handlers {
		fn(snap)
	}
}
