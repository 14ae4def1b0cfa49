package wire

// client → server

type TaskInstructions struct {
	PlainTasks     int  `json:"plainTasks"`
	OrderedTasks   int  `json:"orderedTasks"`
	SequencedTasks int  `json:"sequencedTasks"`
	LastTask       bool `json:"lastTask"`
}

type StartGamePayload struct {
	IncludeTasks     bool             `json:"includeTasks"`
	TaskInstructions TaskInstructions `json:"taskInstructions"`
	UseExpansion     bool             `json:"useExpansion"`
	DifficultyScore  int              `json:"difficultyScore"`
	StartingTasks    []string         `json:"startingTasks,omitempty"` // previous game's task ids
}

type CommunicatePayload struct {
	Card     Card   `json:"card"`
	CardRank string `json:"cardRank"` // highest|lowest|only
}

type SendEmojiPayload struct {
	Label string `json:"label"`
}

type KickPlayerPayload struct {
	SessionID string `json:"sessionId"`
}

// server → client

type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

type EmojiEvent struct {
	From   string `json:"from"` // session id
	Name   string `json:"name"` // display name
	Emoji  string `json:"emoji"`
	SentAt int64  `json:"sentAt"` // unix millis
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
