package wire

// Snapshot is the full authoritative game state as pushed by the server.
// It is decoded once per push and immediately converted into the local view
// model; nothing outside the synchronizer may hold on to it.
type Snapshot struct {
	RoomID string `json:"roomId"`

	Players       map[string]PlayerState `json:"players"`
	PlayerOrder   []string               `json:"playerOrder"`
	CurrentPlayer string                 `json:"currentPlayer"`
	Commander     string                 `json:"commander"`

	CurrentTrick       TrickState   `json:"currentTrick"`
	CompletedTricks    []TrickState `json:"completedTricks"`
	ExpectedTrickCount int          `json:"expectedTrickCount"`

	Tasks []TaskState `json:"allTasks"`

	Stage         string `json:"currentGameStage"` // not_started|game_setup|trick_start|trick_middle|trick_end|game_end
	GameFinished  bool   `json:"gameFinished"`
	GameSucceeded bool   `json:"gameSucceeded"`
	UseExpansion  bool   `json:"useExpansion"`

	History map[string]HistoryState `json:"history"`
}

type PlayerState struct {
	SessionID            string `json:"sessionId"`
	DisplayName          string `json:"displayName"`
	Hand                 []Card `json:"hand"`
	HasCommunicated      bool   `json:"hasCommunicated"`
	IntendsToCommunicate bool   `json:"intendsToCommunicate"`
	CommunicationCard    *Card  `json:"communicationCard,omitempty"`
	CommunicationRank    string `json:"communicationRank,omitempty"` // highest|lowest|only|unknown
	IsHost               bool   `json:"isHost"`
	Connected            bool   `json:"connected"`
}

type TrickState struct {
	PlayedCards    []Card   `json:"playedCards"`
	PlayerOrder    []string `json:"playerOrder"`
	TrickWinner    string   `json:"trickWinner"`
	TrickCompleted bool     `json:"trickCompleted"`
}

// TaskState is the flat wire form of both task variants, discriminated by
// Kind ("simple" | "narrative"). The state package converts it into the
// typed sum.
type TaskState struct {
	Kind string `json:"kind"`

	TaskID                string `json:"taskId"`
	Player                string `json:"player"` // assignee session id, "" = unclaimed
	Failed                bool   `json:"failed"`
	Completed             bool   `json:"completed"`
	CompletedAtTrickIndex *int   `json:"completedAtTrickIndex,omitempty"`

	// simple
	Card          *Card  `json:"card,omitempty"`
	TaskCategory  string `json:"taskCategory,omitempty"` // plain|ordered|sequence|must_be_last
	SequenceIndex int    `json:"sequenceIndex,omitempty"`
	TaskNumber    int    `json:"taskNumber,omitempty"`

	// narrative
	DisplayName           string   `json:"displayName,omitempty"`
	Description           string   `json:"description,omitempty"`
	EvaluationDescription string   `json:"evaluationDescription,omitempty"`
	Difficulty            int      `json:"difficulty,omitempty"`
	InterestedPlayers     []string `json:"interestedPlayers,omitempty"`
}

type HistoryState struct {
	Hand  []Card      `json:"hand"`
	Tasks []TaskState `json:"tasks"`
}
