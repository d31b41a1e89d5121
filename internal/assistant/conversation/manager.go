package conversation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/quickspin-labs/assistant/internal/assistant/model"
)

// Manager wraps the repository with per-conversation append serialization so
// concurrent requests on the same conversation cannot interleave their turns.
type Manager struct {
	repo     model.ConversationRepository
	maxTurns int

	mu    sync.Mutex
	locks map[string]*convLock
}

// convLock is a per-conversation mutex with a waiter count so the entry can
// be dropped from the map once nobody holds or wants it.
type convLock struct {
	sync.Mutex
	refs int
}

func NewManager(repo model.ConversationRepository, cfg model.ConversationConfig) *Manager {
	return &Manager{
		repo:     repo,
		maxTurns: cfg.History.MaxTurns,
		locks:    make(map[string]*convLock),
	}
}

func (m *Manager) acquire(conversationID string) *convLock {
	m.mu.Lock()
	l, ok := m.locks[conversationID]
	if !ok {
		l = &convLock{}
		m.locks[conversationID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.Lock()
	return l
}

func (m *Manager) release(conversationID string, l *convLock) {
	l.Unlock()

	m.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(m.locks, conversationID)
	}
	m.mu.Unlock()
}

// AppendUser persists the user's message as the next turn.
func (m *Manager) AppendUser(ctx context.Context, conv model.Conversation, content string) error {
	return m.append(ctx, conv, model.Turn{
		Role:      model.RoleUser,
		Content:   content,
		Timestamp: time.Now().UTC(),
	})
}

// AppendAssistant persists the assistant's reply. A non-empty runID is
// recorded in turn metadata so the turn can be traced back to its workflow run.
func (m *Manager) AppendAssistant(ctx context.Context, conv model.Conversation, content, runID string) error {
	turn := model.Turn{
		Role:      model.RoleAssistant,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
	if runID != "" {
		turn.Metadata = map[string]string{model.TurnMetaRunID: runID}
	}
	return m.append(ctx, conv, turn)
}

func (m *Manager) append(ctx context.Context, conv model.Conversation, turn model.Turn) error {
	l := m.acquire(conv.ID)
	defer m.release(conv.ID, l)
	return m.repo.AppendTurn(ctx, conv, turn)
}

// History returns the most recent turns, bounded by the configured window.
func (m *Manager) History(ctx context.Context, conversationID string) ([]model.Turn, error) {
	return m.repo.RecentTurns(ctx, conversationID, m.maxTurns)
}

// Messages returns the recent history as chat messages, prefixed with the
// system prompt when one is given.
func (m *Manager) Messages(ctx context.Context, conversationID, systemPrompt string) ([]*schema.Message, error) {
	turns, err := m.History(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	msgs := make([]*schema.Message, 0, len(turns)+1)
	if systemPrompt != "" {
		msgs = append(msgs, schema.SystemMessage(systemPrompt))
	}
	for _, t := range turns {
		msgs = append(msgs, t.Message())
	}
	return msgs, nil
}

// ContextString renders the recent history as a tagged transcript for the
// intent classifier prompt.
func (m *Manager) ContextString(ctx context.Context, conversationID string) (string, error) {
	turns, err := m.History(ctx, conversationID)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, t := range turns {
		if t.Content == "" {
			continue
		}
		switch t.Role {
		case model.RoleUser:
			b.WriteString("UserMessage(" + t.Content + ")\n")
		case model.RoleAssistant:
			b.WriteString("AssistantMessage(" + t.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>")
	return b.String(), nil
}
