// Package types holds the data model shared across the client: chats,
// messages, and the roles the backend reports.
package types

// Message roles as the backend reports them.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Chat represents a conversation owned by the current user.
// Immutable once created except Title/UpdatedAt.
type Chat struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	IsDeepSearch bool   `json:"is_deep_search"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
	UserID       string `json:"user_id"`
}

// MessageMetadata carries optional extra data attached to a message,
// currently the source references returned by deep search.
type MessageMetadata struct {
	Sources []string `json:"sources,omitempty"`
	Type    string   `json:"type,omitempty"`
}

// Message represents a single chat message. A message with IsLoading set is a
// placeholder standing in for a not-yet-arrived assistant reply; it must be
// replaced or removed once the request settles, never left stale.
type Message struct {
	ID        string           `json:"id"`
	Content   string           `json:"content"`
	Role      string           `json:"role"`
	CreatedAt string           `json:"created_at"`
	ChatID    string           `json:"chat_id"`
	IsLoading bool             `json:"isLoading,omitempty"`
	Metadata  *MessageMetadata `json:"metadata,omitempty"`
}

// IsPlaceholder reports whether the message is an assistant placeholder.
func (m Message) IsPlaceholder() bool {
	return m.IsLoading
}
