// Package session owns the client-side chat session state: the chat list,
// the active chat's messages, optimistic updates while a request is in
// flight, and the single cancellable generation per session.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"deepchat/src/api"
	"deepchat/src/types"

	"github.com/google/uuid"
)

// ErrGenerationInFlight is returned when a send is rejected because a
// generation is already outstanding. Callers treat it as a no-op, not a
// failure; the store's error field is not set.
var ErrGenerationInFlight = errors.New("a generation is already in flight")

// Backend is the transport surface the store depends on, satisfied by
// *api.Client.
type Backend interface {
	ListChats(ctx context.Context) ([]types.Chat, error)
	CreateChat(ctx context.Context) (types.Chat, error)
	ChatMessages(ctx context.Context, chatID string) ([]types.Message, error)
	SendChat(ctx context.Context, message, chatID string) (api.ChatReply, error)
	DeleteChat(ctx context.Context, chatID string) error
}

// Snapshot is an atomic copy of the session state for rendering.
type Snapshot struct {
	Chats        []types.Chat
	ActiveChatID string
	Messages     []types.Message
	IsLoading    bool
	IsGenerating bool
	Error        string
}

// Store is the session store. All mutations are atomic snapshot replacements
// under a single mutex; operations that hit the network release the lock for
// the duration of the call and reconcile the result afterwards.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *slog.Logger

	chats        []types.Chat
	activeChatID string
	messages     []types.Message
	isLoading    bool
	isGenerating bool
	err          string

	// cancelGeneration is the handle for the single in-flight generation.
	// It only exists while isGenerating is true.
	cancelGeneration context.CancelFunc
}

// NewStore builds a session store around the given backend.
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
		Chats:        append([]types.Chat(nil), s.chats...),
		ActiveChatID: s.activeChatID,
		Messages:     append([]types.Message(nil), s.messages...),
		IsLoading:    s.isLoading,
		IsGenerating: s.isGenerating,
		Error:        s.err,
	}
}

// ActiveChatID returns the id of the active chat, or "" if none.
func (s *Store) ActiveChatID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeChatID
}

// IsGenerating reports whether a generation is outstanding.
func (s *Store) IsGenerating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isGenerating
}

// Messages returns a copy of the active chat's message sequence.
func (s *Store) Messages() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Message(nil), s.messages...)
}

// ClearError clears the session-level error string.
func (s *Store) ClearError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = ""
}

// LoadChats fetches the full chat list and replaces the collection. On
// failure the collection is left unchanged and the error string is set.
func (s *Store) LoadChats(ctx context.Context) error {
	s.mu.Lock()
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()

	chats, err := s.backend.ListChats(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	if err != nil {
		s.logger.Error("failed to load chats", "error", err)
		s.err = errorMessage(err, "Failed to load chats")
		return err
	}
	s.chats = chats
	return nil
}

// CreateChat requests a new chat, prepends it to the collection, makes it
// active, and clears the message sequence. Returns the new chat id so callers
// needing a chat context can chain.
func (s *Store) CreateChat(ctx context.Context) (string, error) {
	chat, err := s.backend.CreateChat(ctx)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.logger.Error("failed to create chat", "error", err)
		s.err = errorMessage(err, "Failed to create chat")
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append([]types.Chat{chat}, s.chats...)
	s.activeChatID = chat.ID
	s.messages = nil
	s.err = ""
	return chat.ID, nil
}

// SelectChat makes the given chat active and loads its messages. Reselecting
// the active chat is a no-op with no network call. An in-flight generation is
// interrupted before switching so its placeholder cannot leak into the new
// chat's message list. On failure the switch sticks but messages stay empty.
func (s *Store) SelectChat(ctx context.Context, chatID string) error {
	s.mu.Lock()
	if s.activeChatID == chatID {
		s.mu.Unlock()
		return nil
	}
	s.interruptLocked()
	s.activeChatID = chatID
	s.messages = nil
	s.isLoading = true
	s.err = ""
	s.mu.Unlock()

	messages, err := s.backend.ChatMessages(ctx, chatID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.isLoading = false
	if s.activeChatID != chatID {
		// A later switch superseded this fetch; drop the stale result.
		return nil
	}
	if err != nil {
		s.logger.Error("failed to load messages", "chat_id", chatID, "error", err)
		s.err = errorMessage(err, "Failed to load messages")
		return err
	}
	s.messages = messages
	return nil
}

// Send runs one generation cycle: optimistic insert of the user message and
// an assistant placeholder, the completion request, then reconciliation. At
// most one cycle may be in flight; a second call while generating returns
// ErrGenerationInFlight without touching state. If no chat is active one is
// created first, and the send aborts if that fails.
func (s *Store) Send(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.isGenerating {
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	// Reserve the single send cycle before any suspension point.
	s.isGenerating = true
	s.err = ""
	chatID := s.activeChatID
	s.mu.Unlock()

	if chatID == "" {
		id, err := s.CreateChat(ctx)
		if err != nil {
			s.mu.Lock()
			s.isGenerating = false
			s.mu.Unlock()
			return err
		}
		chatID = id
	}

	now := timestamp()
	userMsg := types.Message{
		ID:        "temp-" + uuid.NewString(),
		Content:   content,
		Role:      types.RoleUser,
		CreatedAt: now,
		ChatID:    chatID,
	}
	placeholder := types.Message{
		ID:        "pending-" + uuid.NewString(),
		Role:      types.RoleAssistant,
		CreatedAt: now,
		ChatID:    chatID,
		IsLoading: true,
	}

	s.mu.Lock()
	if s.cancelGeneration != nil {
		// Invariant: a handle may only exist for the cycle that reserved
		// isGenerating above.
		s.mu.Unlock()
		return ErrGenerationInFlight
	}
	genCtx, cancel := context.WithCancel(ctx)
	s.cancelGeneration = cancel
	s.messages = append(s.messages, userMsg, placeholder)
	s.mu.Unlock()

	reply, err := s.backend.SendChat(genCtx, content, chatID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if genCtx.Err() != nil {
		// Cancellation wins over a late success or failure. The interrupt
		// already stripped the placeholder and cleared the handle; both
		// steps are idempotent here.
		s.removePlaceholderLocked()
		s.clearGenerationLocked()
		return nil
	}
	s.clearGenerationLocked()
	if err != nil {
		// The user message stays visible; only the reply failed.
		s.removePlaceholderLocked()
		s.logger.Error("failed to send message", "chat_id", chatID, "error", err)
		s.err = errorMessage(err, "Failed to send message")
		return err
	}

	assistant := types.Message{
		ID:        reply.MessageID,
		Content:   reply.Response,
		Role:      types.RoleAssistant,
		CreatedAt: timestamp(),
		ChatID:    chatID,
	}
	if assistant.ID == "" {
		assistant.ID = "ai-" + uuid.NewString()
	}
	for i := range s.messages {
		if s.messages[i].IsPlaceholder() {
			s.messages[i] = assistant
			return nil
		}
	}
	// Placeholder vanished without the context being cancelled: the message
	// sequence was replaced under the request, so the reply may no longer
	// belong to the list on display. Append only if the chat it was generated
	// for is still the active one; otherwise drop it.
	if s.activeChatID == chatID {
		s.messages = append(s.messages, assistant)
	}
	return nil
}

// InterruptGeneration cancels the in-flight generation, strips the
// placeholder, and clears the generating state. Idempotent: with nothing in
// flight it does nothing.
func (s *Store) InterruptGeneration() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interruptLocked()
}

func (s *Store) interruptLocked() {
	if s.cancelGeneration == nil {
		return
	}
	s.cancelGeneration()
	s.cancelGeneration = nil
	s.isGenerating = false
	s.removePlaceholderLocked()
}

// DeleteChat deletes a chat. If it was active, the selection and message
// sequence are cleared as well. On failure the collection is unchanged.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	if err := s.backend.DeleteChat(ctx, chatID); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.logger.Error("failed to delete chat", "chat_id", chatID, "error", err)
		s.err = errorMessage(err, "Failed to delete chat")
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.chats[:0:0]
	for _, c := range s.chats {
		if c.ID != chatID {
			kept = append(kept, c)
		}
	}
	s.chats = kept
	if s.activeChatID == chatID {
		s.activeChatID = ""
		s.messages = nil
	}
	return nil
}

func (s *Store) clearGenerationLocked() {
	if s.cancelGeneration != nil {
		s.cancelGeneration()
		s.cancelGeneration = nil
	}
	s.isGenerating = false
}

func (s *Store) removePlaceholderLocked() {
	kept := s.messages[:0:0]
	for _, m := range s.messages {
		if !m.IsPlaceholder() {
			kept = append(kept, m)
		}
	}
	s.messages = kept
}

// errorMessage prefers the backend's own message over the fallback.
func errorMessage(err error, fallback string) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
