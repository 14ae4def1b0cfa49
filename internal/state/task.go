package state

import "example.com/crew-client/internal/wire"

type TaskCategory string

const (
	TaskPlain      TaskCategory = "plain"
	TaskOrdered    TaskCategory = "ordered"
	TaskSequence   TaskCategory = "sequence"
	TaskMustBeLast TaskCategory = "must_be_last"
)

// Task is the sum of the two task variants. Code consuming tasks must
// switch over both SimpleTask and NarrativeTask.
type Task interface {
	Base() TaskBase
	isTask()
}

// TaskBase is shared by both variants. Player == "" means unclaimed.
type TaskBase struct {
	TaskID           string
	Player           string
	Failed           bool
	Completed        bool
	CompletedAtTrick *int
}

// SimpleTask is a base-game card objective.
type SimpleTask struct {
	TaskBase
	Card          wire.Card
	Category      TaskCategory
	SequenceIndex int
	TaskNumber    int
}

// NarrativeTask is an expansion objective described in prose, scored by
// difficulty, with players registering interest during allocation.
type NarrativeTask struct {
	TaskBase
	DisplayName           string
	Description           string
	EvaluationDescription string
	Difficulty            int // 1..5
	InterestedPlayers     []string
}

func (t SimpleTask) Base() TaskBase    { return t.TaskBase }
func (t NarrativeTask) Base() TaskBase { return t.TaskBase }

func (SimpleTask) isTask()    {}
func (NarrativeTask) isTask() {}

func taskFromWire(ts wire.TaskState) Task {
	base := TaskBase{
		TaskID:           ts.TaskID,
		Player:           ts.Player,
		Failed:           ts.Failed,
		Completed:        ts.Completed,
		CompletedAtTrick: copyIntPtr(ts.CompletedAtTrickIndex),
	}

	if ts.Kind == "narrative" {
		return NarrativeTask{
			TaskBase:              base,
			DisplayName:           ts.DisplayName,
			Description:           ts.Description,
			EvaluationDescription: ts.EvaluationDescription,
			Difficulty:            ts.Difficulty,
			InterestedPlayers:     append([]string(nil), ts.InterestedPlayers...),
		}
	}

	st := SimpleTask{
		TaskBase:      base,
		Category:      TaskCategory(ts.TaskCategory),
		SequenceIndex: ts.SequenceIndex,
		TaskNumber:    ts.TaskNumber,
	}
	if ts.Card != nil {
		st.Card = *ts.Card
	}
	return st
}

// TaskToWire is the inverse conversion, used when an intent carries a task
// back to the server.
func TaskToWire(t Task) wire.TaskState {
	base := t.Base()
	ts := wire.TaskState{
		TaskID:                base.TaskID,
		Player:                base.Player,
		Failed:                base.Failed,
		Completed:             base.Completed,
		CompletedAtTrickIndex: copyIntPtr(base.CompletedAtTrick),
	}

	switch v := t.(type) {
	case SimpleTask:
		ts.Kind = "simple"
		card := v.Card
		ts.Card = &card
		ts.TaskCategory = string(v.Category)
		ts.SequenceIndex = v.SequenceIndex
		ts.TaskNumber = v.TaskNumber
	case NarrativeTask:
		ts.Kind = "narrative"
		ts.DisplayName = v.DisplayName
		ts.Description = v.Description
		ts.EvaluationDescription = v.EvaluationDescription
		ts.Difficulty = v.Difficulty
		ts.InterestedPlayers = append([]string(nil), v.InterestedPlayers...)
	}
	return ts
}

func copyIntPtr(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
