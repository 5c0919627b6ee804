// Package deepsearch owns the ephemeral deep-search session: an independent
// message stream for retrieval-augmented queries, not linked to any chat
// entity until the backend returns a real identifier.
package deepsearch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"deepchat/src/api"
	"deepchat/src/types"

	"github.com/google/uuid"
)

// pendingChatID is the synthetic chat id carried by optimistic deep-search
// messages until the backend reports the real one.
const pendingChatID = "deep-search-pending"

// Backend is the transport surface the store depends on, satisfied by
// *api.Client.
type Backend interface {
	DeepSearch(ctx context.Context, query string) (api.DeepSearchResult, error)
}

// Snapshot is an atomic copy of the deep-search state for rendering.
type Snapshot struct {
	Messages     []types.Message
	IsActive     bool
	IsLoading    bool
	ActiveChatID string
}

// Store is the deep-search store. It is deliberately independent of the
// session store: a deep-search send is never blocked by a normal-chat
// generation, and vice versa.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *slog.Logger

	messages     []types.Message
	isActive     bool
	isLoading    bool
	activeChatID string
}

// NewStore builds a deep-search store around the given backend.
func NewStore(backend Backend, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, logger: logger}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Messages:     append([]types.Message(nil), s.messages...),
		IsActive:     s.isActive,
		IsLoading:    s.isLoading,
		ActiveChatID: s.activeChatID,
	}
}

// Active reports whether deep-search mode is on.
func (s *Store) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isActive
}

// Messages returns a copy of the deep-search message sequence.
func (s *Store) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Message(nil), s.messages...)
}

// Toggle flips deep-search mode. Pure state transition, no I/O.
func (s *Store) Toggle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isActive = !s.isActive
}

// SetActive sets deep-search mode explicitly.
func (s *Store) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.isActive = active
}

// Reset restores the initial empty state; used when leaving the mode or
// starting a fresh deep-search session.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.isActive = false
	s.isLoading = false
	s.activeChatID = ""
}

// Send inserts an optimistic user message and assistant placeholder, runs the
// deep-search query, and reconciles the answer into the placeholder's
// position. On failure both optimistic messages are removed; deep-search
// failures are never partially visible.
func (s *Store) Send(ctx context.Context, query string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	userMsg := types.Message{
		ID:        "temp-user-" + uuid.NewString(),
		Content:   query,
		Role:      types.RoleUser,
		CreatedAt: now,
		ChatID:    pendingChatID,
	}
	placeholder := types.Message{
		ID:        "temp-assistant-" + uuid.NewString(),
		Content:   "...",
		Role:      types.RoleAssistant,
		CreatedAt: now,
		ChatID:    pendingChatID,
		IsLoading: true,
	}

	s.mu.Lock()
	s.isLoading = true
	s.messages = append(s.messages, userMsg, placeholder)
	s.mu.Unlock()

	result, err := s.backend.DeepSearch(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	if err != nil {
		s.logger.Error("deep search failed", "error", err)
		kept := s.messages[:0:0]
		for _, m := range s.messages {
			if m.ID != userMsg.ID && m.ID != placeholder.ID {
				kept = append(kept, m)
			}
		}
		s.messages = kept
		return err
	}

	final := types.Message{
		ID:        result.MessageID,
		Content:   extractAnswer(result.Results),
		Role:      types.RoleAssistant,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		ChatID:    result.ChatID,
		Metadata: &types.MessageMetadata{
			Sources: extractSources(result.Results),
			Type:    "deep_search",
		},
	}
	if final.ID == "" {
		final.ID = "ai-" + uuid.NewString()
	}
	if final.ChatID == "" {
		final.ChatID = pendingChatID
	}

	for i := range s.messages {
		if s.messages[i].ID == placeholder.ID {
			s.messages[i] = final
			break
		}
	}
	s.activeChatID = result.ChatID
	return nil
}
