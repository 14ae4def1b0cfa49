// Package dispatch turns user intents into outbound messages. Every intent
// is checked against the same rules the server enforces before anything is
// sent, so obviously-invalid actions fail locally with an explanation
// instead of costing a round trip.
package dispatch

import (
	"log/slog"

	"example.com/crew-client/internal/derive"
	"example.com/crew-client/internal/persist"
	"example.com/crew-client/internal/state"
	"example.com/crew-client/internal/wire"
)

// ValidationError is a local precondition failure. It never reaches the
// network; Message is meant for the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func reject(msg string) error { return &ValidationError{Message: msg} }

// Sender is the slice of the session manager the dispatcher needs.
type Sender interface {
	Send(msgType string, payload any) error
}

// Views yields the current view model.
type Views interface {
	Current() state.View
}

type Dispatcher struct {
	send  Sender
	views Views
	store persist.Store
	log   *slog.Logger
}

func New(send Sender, views Views, store persist.Store, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{send: send, views: views, store: store, log: log}
}

// PlayCard plays a card from the local hand.
func (d *Dispatcher) PlayCard(card wire.Card) error {
	v := d.views.Current()
	if !derive.IsLocalTurn(v) {
		return reject("It is not your turn.")
	}
	if v.Stage != state.StageTrickStart && v.Stage != state.StageTrickMiddle {
		return reject("Cards can only be played during a trick.")
	}
	return d.send.Send(wire.MsgPlayCard, card)
}

// UndoCard retracts the local player's just-played card.
func (d *Dispatcher) UndoCard() error {
	v := d.views.Current()
	if len(v.CurrentTrick.PlayedCards) == 0 {
		return reject("There is no card to take back.")
	}
	last := len(v.CurrentTrick.PlayedCards) - 1
	if last >= len(v.CurrentTrick.PlayerOrder) || v.CurrentTrick.PlayerOrder[last] != v.LocalSessionID {
		return reject("Only the player of the last card can take it back.")
	}
	return d.send.Send(wire.MsgUndoCard, nil)
}

// Communicate declares the rank of one card, once per game.
func (d *Dispatcher) Communicate(card wire.Card) error {
	v := d.views.Current()

	rank := derive.ClassifyCommunication(card, v.Hand)
	if rank == state.RankInvalid || rank == state.RankUnknown {
		return reject("You can only communicate your highest, lowest, or only card of that color.")
	}
	if v.ActivePlayer != nil && v.ActivePlayer.HasCommunicated {
		return reject("You have already communicated this game.")
	}
	if v.Stage != state.StageTrickStart && v.Stage != state.StageTrickEnd {
		return reject("Communication is only allowed between tricks.")
	}

	return d.send.Send(wire.MsgCommunicate, wire.CommunicatePayload{
		Card:     card,
		CardRank: string(rank),
	})
}

func (d *Dispatcher) IntendCommunication() error {
	return d.send.Send(wire.MsgIntendCommunication, nil)
}

func (d *Dispatcher) CancelIntention() error {
	return d.send.Send(wire.MsgCancelIntention, nil)
}

// FinishTrick acknowledges a completed trick; only its winner may.
func (d *Dispatcher) FinishTrick() error {
	v := d.views.Current()
	if v.CurrentTrick.Winner != v.LocalSessionID || v.LocalSessionID == "" {
		return reject("Only the trick winner can finish the trick.")
	}
	return d.send.Send(wire.MsgFinishTrick, nil)
}

// TakeTask claims an unclaimed task during setup.
func (d *Dispatcher) TakeTask(t state.Task) error {
	v := d.views.Current()
	if v.Stage != state.StageGameSetup {
		return reject("Tasks can only be taken during game setup.")
	}
	return d.send.Send(wire.MsgTakeTask, state.TaskToWire(t))
}

// ReturnTask puts a claimed task back during setup.
func (d *Dispatcher) ReturnTask(t state.Task) error {
	v := d.views.Current()
	if v.Stage != state.StageGameSetup {
		return reject("Tasks can only be returned during game setup.")
	}
	return d.send.Send(wire.MsgReturnTask, state.TaskToWire(t))
}

// RegisterInterest flags a task the local player would like; allowed at any
// stage.
func (d *Dispatcher) RegisterInterest(t state.Task) error {
	return d.send.Send(wire.MsgRegisterInterest, state.TaskToWire(t))
}

func (d *Dispatcher) CancelInterest(t state.Task) error {
	return d.send.Send(wire.MsgCancelInterest, state.TaskToWire(t))
}

// FinishTaskAllocation closes the setup phase.
func (d *Dispatcher) FinishTaskAllocation() error {
	v := d.views.Current()
	if v.Stage != state.StageGameSetup {
		return reject("Task allocation can only finish during game setup.")
	}
	return d.send.Send(wire.MsgFinishTaskAllocation, nil)
}

// StartGame sends the setup parameters. The form is remembered so the next
// setup screen can offer the same settings again.
func (d *Dispatcher) StartGame(p wire.StartGamePayload) error {
	if err := persist.PutJSON(d.store, persist.KeyLastSetup, p); err != nil {
		d.log.Warn("persist last setup", "err", err)
	}
	return d.send.Send(wire.MsgStartGame, p)
}

// RestartGame is host-only. Before sending, the current task ids are saved
// so a later setup screen can offer "use same tasks as last game".
func (d *Dispatcher) RestartGame() error {
	v := d.views.Current()
	if v.ActivePlayer == nil || !v.ActivePlayer.IsHost {
		return reject("Only the host can restart the game.")
	}

	ids := make([]string, 0, len(v.Tasks))
	for _, t := range v.Tasks {
		ids = append(ids, t.Base().TaskID)
	}
	if err := persist.PutJSON(d.store, persist.KeyPreviousTasks, ids); err != nil {
		d.log.Warn("persist previous task ids", "err", err)
	}

	return d.send.Send(wire.MsgRestartGame, nil)
}

// GiveUp is host-only.
func (d *Dispatcher) GiveUp() error {
	v := d.views.Current()
	if v.ActivePlayer == nil || !v.ActivePlayer.IsHost {
		return reject("Only the host can give up the game.")
	}
	return d.send.Send(wire.MsgGiveUp, nil)
}

// SendEmoji broadcasts a reaction; no precondition beyond a live session.
func (d *Dispatcher) SendEmoji(label string) error {
	return d.send.Send(wire.MsgSendEmoji, wire.SendEmojiPayload{Label: label})
}

// KickPlayer removes a player from the lobby, host-only.
func (d *Dispatcher) KickPlayer(sessionID string) error {
	v := d.views.Current()
	if v.ActivePlayer == nil || !v.ActivePlayer.IsHost {
		return reject("Only the host can kick a player.")
	}
	return d.send.Send(wire.MsgKickPlayer, wire.KickPlayerPayload{SessionID: sessionID})
}
