package session

import (
	"fmt"
	"time"

	"github.com/openscholar/scholarship-agent/internal/conversation"
	"github.com/openscholar/scholarship-agent/internal/profile"
)

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderAgent Sender = "agent"
)

// MessageType classifies an agent message for the presentation layer.
type MessageType string

const (
	MessageTypeText               MessageType = "text"
	MessageTypeScholarshipResults MessageType = "scholarship_results"
	MessageTypeApplicationSupport MessageType = "application_support"
	MessageTypeError              MessageType = "error"
)

// Message is one immutable entry in a session's history.
type Message struct {
	ID        string      `json:"id"`
	Content   string      `json:"content"`
	Sender    Sender      `json:"sender"`
	Type      MessageType `json:"type,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Session ties one conversation's profile, state and history to an
// opaque identifier. Stores hand out copies: a turn mutates its copy
// and persists it with Save, serialized per session id by the API layer.
type Session struct {
	ID             string               `json:"id"`
	Profile        profile.Profile      `json:"profile"`
	State          conversation.State   `json:"state"`
	History        []Message            `json:"history"`
	PendingConfirm string               `json:"pending_confirm,omitempty"`
	MessageCount   int                  `json:"message_count"`
	CreatedAt      time.Time            `json:"created_at"`
	LastActivity   time.Time            `json:"last_activity"`
}

// Append records a message in history and returns it. Message ids keep
// the original <session>_<count> format the frontend already relies on.
func (s *Session) Append(sender Sender, content string, typ MessageType) Message {
	s.MessageCount++
	msg := Message{
		ID:        fmt.Sprintf("%s_%d", s.ID, s.MessageCount),
		Content:   content,
		Sender:    sender,
		Type:      typ,
		Timestamp: time.Now(),
	}
	s.History = append(s.History, msg)
	return msg
}

// resetInPlace restores the session to its fresh defaults, preserving
// only the identifier and creation time.
func (s *Session) resetInPlace(now time.Time) {
	s.Profile = profile.Profile{}
	s.State = conversation.StateProfiling
	s.History = nil
	s.PendingConfirm = ""
	s.MessageCount = 0
	s.LastActivity = now
}

// clone deep-copies the session. Store drivers hand out clones rather
// than their live records, so a caller mutating its session mid-turn
// cannot race a concurrent read of the same id.
func (s *Session) clone() *Session {
	c := *s
	c.History = append([]Message(nil), s.History...)
	c.Profile.Extracurriculars = append([]string(nil), s.Profile.Extracurriculars...)
	c.Profile.ResearchInterests = append([]string(nil), s.Profile.ResearchInterests...)
	return &c
}

func newSession(id string, now time.Time) *Session {
	return &Session{
		ID:           id,
		State:        conversation.StateProfiling,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Stats summarizes the store for the monitoring endpoint.
type Stats struct {
	ActiveSessions int     `json:"active_sessions"`
	TotalMessages  int     `json:"total_messages"`
	TimeoutHours   float64 `json:"session_timeout_hours"`
}
