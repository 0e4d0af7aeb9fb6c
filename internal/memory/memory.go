// Package memory provides conversation history storage for multi-turn
// chat sessions.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single message in a conversation.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// History is the conversation storage port. Implementations must be
// safe for concurrent use.
type History interface {
	// AddMessage appends a message to the session's history.
	AddMessage(ctx context.Context, sessionID, role, content string) error

	// RecentHistory returns the last n messages for a session, oldest
	// first. Unknown sessions return an empty slice, not an error.
	RecentHistory(ctx context.Context, sessionID string, n int) ([]Message, error)

	// ClearSession drops a session's history.
	ClearSession(ctx context.Context, sessionID string) error
}

// conversation holds one session's messages.
type conversation struct {
	messages  []Message
	updatedAt time.Time
}

// Store is the in-process History implementation. Sessions expire after
// ttl of inactivity; use the Redis implementation when history must
// survive restarts.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	maxMessages   int
	ttl           time.Duration
}

var _ History = (*Store)(nil)

// NewStore creates an in-memory conversation store.
func NewStore(maxMessages int, ttl time.Duration) *Store {
	s := &Store{
		conversations: make(map[string]*conversation),
		maxMessages:   maxMessages,
		ttl:           ttl,
	}
	go s.cleanupLoop()
	return s
}

// DefaultStore creates a store with sensible defaults: 20 messages per
// conversation (10 turns), 1 hour session TTL.
func DefaultStore() *Store {
	return NewStore(20, time.Hour)
}

// AddMessage implements History.
func (s *Store) AddMessage(_ context.Context, sessionID, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		conv = &conversation{}
		s.conversations[sessionID] = conv
	}

	conv.messages = append(conv.messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	conv.updatedAt = time.Now()

	// Keep only the most recent messages.
	if len(conv.messages) > s.maxMessages {
		conv.messages = conv.messages[len(conv.messages)-s.maxMessages:]
	}
	return nil
}

// RecentHistory implements History.
func (s *Store) RecentHistory(_ context.Context, sessionID string, n int) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil, nil
	}

	messages := conv.messages
	if n > 0 && len(messages) > n {
		messages = messages[len(messages)-n:]
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out, nil
}

// ClearSession implements History.
func (s *Store) ClearSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, sessionID)
	return nil
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		now := time.Now()
		for id, conv := range s.conversations {
			if now.Sub(conv.updatedAt) > s.ttl {
				delete(s.conversations, id)
			}
		}
		s.mu.Unlock()
	}
}

// FormatForPrompt renders history as alternating "User:"/"Assistant:"
// lines for inclusion in an LLM prompt. Empty history yields an empty
// string.
func FormatForPrompt(messages []Message) string {
	if len(messages) == 0 {
		return ""
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg.Role {
		case RoleUser:
			b.WriteString("User: " + msg.Content + "\n")
		case RoleAssistant:
			b.WriteString("Assistant: " + msg.Content + "\n")
		}
	}
	return b.String()
}
