package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Turn is one persisted message in a conversation. Metadata links the turn
// back to the workflow run that produced it, when there is one.
type Turn struct {
	Role      Role              `json:"role"`
	Content   string            `json:"content"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TurnMetaRunID is the metadata key carrying the workflow run identifier.
const TurnMetaRunID = "workflow_run_id"

// Message converts the turn into an eino chat message for LLM context.
func (t Turn) Message() *schema.Message {
	switch t.Role {
	case RoleAssistant:
		return schema.AssistantMessage(t.Content, nil)
	case RoleSystem:
		return schema.SystemMessage(t.Content)
	default:
		return schema.UserMessage(t.Content)
	}
}

// Conversation is the stored header of one conversation thread.
type Conversation struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	TurnCount      int       `json:"turn_count"`
}

// ConversationRepository is the persistence collaborator contract. An append
// must never be dropped silently: implementations surface storage failures as
// persistence errors and the caller propagates them.
type ConversationRepository interface {
	// AppendTurn persists one turn at the end of the conversation, creating
	// the conversation header on first use.
	AppendTurn(ctx context.Context, conv Conversation, turn Turn) error

	// RecentTurns returns up to limit most recent turns in chronological
	// order. A new or unknown conversation yields an empty slice, not an
	// error.
	RecentTurns(ctx context.Context, conversationID string, limit int) ([]Turn, error)

	// ListConversations returns the user's conversations, most recently
	// updated first.
	ListConversations(ctx context.Context, userID string, limit int) ([]Conversation, error)

	// GetConversation loads one conversation header, or nil when absent.
	GetConversation(ctx context.Context, conversationID string) (*Conversation, error)

	// DeleteConversation removes the conversation and all its turns.
	DeleteConversation(ctx context.Context, conversationID string) error
}
