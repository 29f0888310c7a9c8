// Package agent orchestrates one conversation turn: extract profile
// facts, drive the conversation state machine, and delegate to the
// search adapter and response composer when the state calls for it.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/qmuntal/stateless"

	"github.com/openscholar/scholarship-agent/internal/composer"
	"github.com/openscholar/scholarship-agent/internal/conversation"
	"github.com/openscholar/scholarship-agent/internal/logger"
	"github.com/openscholar/scholarship-agent/internal/profile"
	"github.com/openscholar/scholarship-agent/internal/search"
	"github.com/openscholar/scholarship-agent/internal/session"
)

// ErrRetryable marks failures scoped to one turn: the state is left
// unchanged and the caller is expected to retry the same request.
var ErrRetryable = errors.New("temporarily unavailable")

// Composer is the response-generation collaborator.
type Composer interface {
	Compose(ctx context.Context, p profile.Profile, results []search.Result) (string, error)
	FollowUp(ctx context.Context, p profile.Profile, history []composer.Turn, input string) (string, error)
	ApplicationSupport(ctx context.Context, p profile.Profile) (string, error)
}

// TurnResult is the typed outcome of one turn. SearchReady replaces the
// sentinel substring the agent text used to carry: when set, the caller
// should immediately issue a follow-up request to run the search.
type TurnResult struct {
	Reply       string
	Type        session.MessageType
	SearchReady bool
}

// Agent processes conversation turns. It holds no session state of its
// own; the session record is passed in and owned by the store.
type Agent struct {
	search        search.Adapter
	composer      Composer
	searchTimeout time.Duration
}

// New creates an agent.
func New(adapter search.Adapter, comp Composer, searchTimeout time.Duration) *Agent {
	if searchTimeout <= 0 {
		searchTimeout = 30 * time.Second
	}
	return &Agent{search: adapter, composer: comp, searchTimeout: searchTimeout}
}

const (
	pendingApplicationSupport = "application_support"

	searchAnnouncement = "Great, I have everything I need! Let me search for scholarships that match your profile..."
	declineReply       = "No problem! Feel free to ask if you need anything else or want to search for different scholarships."
	fallbackReply      = "I'm not sure how to help with that. Could you please rephrase your question?"
	historyWindow      = 10
)

// Process handles one user message against the given session. The
// session's profile, state and pending-confirmation flag are mutated in
// place; persisting them is the caller's job.
func (a *Agent) Process(ctx context.Context, sess *session.Session, input string) (TurnResult, error) {
	fsm := conversation.NewMachine(sess.State)

	// Confirmations take precedence over state routing.
	if sess.PendingConfirm == pendingApplicationSupport && sess.State == conversation.StateResponding {
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "yes", "y", "ok", "sure":
			sess.PendingConfirm = ""
			reply, err := a.composer.ApplicationSupport(ctx, sess.Profile)
			if err != nil {
				return TurnResult{}, fmt.Errorf("%w: %w", ErrRetryable, err)
			}
			return TurnResult{Reply: reply, Type: session.MessageTypeApplicationSupport}, nil
		case "no", "n", "not now":
			sess.PendingConfirm = ""
			return TurnResult{Reply: declineReply, Type: session.MessageTypeText}, nil
		}
		// Anything else falls through to the follow-up path.
		sess.PendingConfirm = ""
	}

	switch sess.State {
	case conversation.StateProfiling:
		return a.profilingTurn(fsm, sess, input)
	case conversation.StateSearching:
		return a.searchingTurn(ctx, fsm, sess)
	case conversation.StateResponding:
		return a.respondingTurn(ctx, fsm, sess, input)
	default:
		return TurnResult{Reply: fallbackReply, Type: session.MessageTypeText}, nil
	}
}

func (a *Agent) profilingTurn(fsm *stateless.StateMachine, sess *session.Session, input string) (TurnResult, error) {
	profile.Extract(input, &sess.Profile)

	if sess.Profile.Complete() {
		if err := fsm.Fire(conversation.TriggerProfileCompleted); err != nil {
			return TurnResult{}, fmt.Errorf("fire ProfileCompleted: %w", err)
		}
		sess.State = conversation.CurrentState(fsm)
		logger.L.Info("profile complete, search due",
			"session_id", sess.ID,
			"field_of_study", sess.Profile.FieldOfStudy,
			"citizenship", sess.Profile.Citizenship)
		return TurnResult{Reply: searchAnnouncement, Type: session.MessageTypeText, SearchReady: true}, nil
	}

	question, _ := conversation.NextQuestion(sess.Profile)
	return TurnResult{Reply: question, Type: session.MessageTypeText}, nil
}

func (a *Agent) searchingTurn(ctx context.Context, fsm *stateless.StateMachine, sess *session.Session) (TurnResult, error) {
	searchCtx, cancel := context.WithTimeout(ctx, a.searchTimeout)
	defer cancel()

	var results []search.Result
	var lastErr error
	for _, query := range search.Queries(sess.Profile) {
		found, err := a.search.Search(searchCtx, query)
		if err != nil {
			logger.L.Warn("search query failed", "session_id", sess.ID, "error", err)
			lastErr = err
			continue
		}
		results = append(results, found...)
	}
	if len(results) == 0 {
		// State stays at searching; the caller retries the same request.
		if err := fsm.Fire(conversation.TriggerSearchFailed); err != nil {
			return TurnResult{}, fmt.Errorf("fire SearchFailed: %w", err)
		}
		sess.State = conversation.CurrentState(fsm)
		if lastErr == nil {
			lastErr = errors.New("no results")
		}
		return TurnResult{}, fmt.Errorf("%w: scholarship search: %w", ErrRetryable, lastErr)
	}

	reply, err := a.composer.Compose(ctx, sess.Profile, results)
	if err != nil {
		if fireErr := fsm.Fire(conversation.TriggerSearchFailed); fireErr != nil {
			return TurnResult{}, fmt.Errorf("fire SearchFailed: %w", fireErr)
		}
		sess.State = conversation.CurrentState(fsm)
		return TurnResult{}, fmt.Errorf("%w: %w", ErrRetryable, err)
	}

	if err := fsm.Fire(conversation.TriggerSearchSucceeded); err != nil {
		return TurnResult{}, fmt.Errorf("fire SearchSucceeded: %w", err)
	}
	sess.State = conversation.CurrentState(fsm)
	sess.PendingConfirm = pendingApplicationSupport
	logger.L.Info("search completed", "session_id", sess.ID, "results", len(results))
	return TurnResult{Reply: reply, Type: session.MessageTypeScholarshipResults}, nil
}

func (a *Agent) respondingTurn(ctx context.Context, fsm *stateless.StateMachine, sess *session.Session, input string) (TurnResult, error) {
	history := make([]composer.Turn, 0, historyWindow)
	start := len(sess.History) - historyWindow
	if start < 0 {
		start = 0
	}
	for _, msg := range sess.History[start:] {
		role := "user"
		if msg.Sender == session.SenderAgent {
			role = "assistant"
		}
		history = append(history, composer.Turn{Role: role, Content: msg.Content})
	}

	reply, err := a.composer.FollowUp(ctx, sess.Profile, history, input)
	if err != nil {
		return TurnResult{}, fmt.Errorf("%w: %w", ErrRetryable, err)
	}
	if err := fsm.Fire(conversation.TriggerFollowUp); err != nil {
		return TurnResult{}, fmt.Errorf("fire FollowUp: %w", err)
	}
	sess.State = conversation.CurrentState(fsm)
	return TurnResult{Reply: reply, Type: session.MessageTypeText}, nil
}
