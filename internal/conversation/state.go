// Package conversation defines the conversation states and the per-turn
// state machine that moves a session between them.
package conversation

import (
	"github.com/qmuntal/stateless"

	"github.com/openscholar/scholarship-agent/internal/profile"
)

// State is the phase a conversation is in.
type State string

const (
	// StateProfiling gathers the required profile fields.
	StateProfiling State = "profiling"
	// StateSearching means the profile is complete and a search is due.
	StateSearching State = "searching"
	// StateResponding handles free-form turns after results were shown.
	StateResponding State = "responding"
	// StateComplete is declared in the data model but no transition
	// targets it; reserved.
	StateComplete State = "complete"
)

// Triggers for the state machine.
var (
	TriggerProfileCompleted stateless.Trigger = "ProfileCompleted"
	TriggerSearchSucceeded  stateless.Trigger = "SearchSucceeded"
	TriggerSearchFailed     stateless.Trigger = "SearchFailed"
	TriggerFollowUp         stateless.Trigger = "FollowUp"
)

// NewMachine builds the conversation state machine seeded at initial.
// A failed search re-enters searching so the caller can retry; follow-up
// turns re-enter responding without changing state.
func NewMachine(initial State) *stateless.StateMachine {
	fsm := stateless.NewStateMachine(initial)

	fsm.Configure(StateProfiling).
		Permit(TriggerProfileCompleted, StateSearching)

	fsm.Configure(StateSearching).
		Permit(TriggerSearchSucceeded, StateResponding).
		PermitReentry(TriggerSearchFailed)

	fsm.Configure(StateResponding).
		PermitReentry(TriggerFollowUp)

	return fsm
}

// CurrentState reads the machine's state back as a State value.
func CurrentState(fsm *stateless.StateMachine) State {
	return fsm.MustState().(State)
}

// clarifying question per required field, in priority order.
var questionOrder = []struct {
	unset    func(profile.Profile) bool
	question string
}{
	{
		unset:    func(p profile.Profile) bool { return p.FieldOfStudy == "" },
		question: "What field are you studying or planning to study?",
	},
	{
		unset:    func(p profile.Profile) bool { return p.EducationLevel == "" },
		question: "What education level are you at? (High School, Undergraduate, Graduate, or PhD)",
	},
	{
		unset: func(p profile.Profile) bool { return p.Citizenship == "" },
		question: "What is your citizenship/nationality? This is crucial as scholarships " +
			"have specific eligibility requirements based on citizenship.",
	},
	{
		unset:    func(p profile.Profile) bool { return p.Location == "" },
		question: "Where are you located, or where do you plan to study?",
	},
}

// NextQuestion returns the clarifying question for the first unset
// required field in priority order: field of study, education level,
// citizenship, location. ok is false when the profile is complete.
func NextQuestion(p profile.Profile) (string, bool) {
	for _, q := range questionOrder {
		if q.unset(p) {
			return q.question, true
		}
	}
	return "", false
}
