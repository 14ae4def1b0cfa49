package wire

import "encoding/json"

// Envelope is the framing for every websocket message, both directions:
// {"type":"...","payload":{...}}
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// client → server
const (
	MsgStartGame            = "start_game"
	MsgPlayCard             = "play_card"
	MsgUndoCard             = "undo_card"
	MsgCommunicate          = "communicate"
	MsgIntendCommunication  = "intend_communication"
	MsgCancelIntention      = "cancel_intention"
	MsgFinishTrick          = "finish_trick"
	MsgTakeTask             = "take_task"
	MsgReturnTask           = "return_task"
	MsgRegisterInterest     = "register_interest_in_task"
	MsgCancelInterest       = "cancel_interest_in_task"
	MsgFinishTaskAllocation = "finish_task_allocation"
	MsgRestartGame          = "restart_game"
	MsgGiveUp               = "give_up"
	MsgSendEmoji            = "send_emoji"
	MsgKickPlayer           = "kick_player"
)

// server → client
const (
	MsgState      = "state"
	MsgRoomClosed = "room_closed"
	MsgEmoji      = "emoji"
	MsgError      = "error"
)

func MustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}
