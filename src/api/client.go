// Package api implements the HTTP transport client for the chat backend.
// It attaches bearer credentials to every request, normalizes backend errors
// into *APIError, and clears stored credentials on a 401 so the caller can
// route the user back to login.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"deepchat/src/types"
)

// CredentialSource provides the bearer token forwarded with each request.
// Clear is invoked when the backend rejects the token.
type CredentialSource interface {
	Token() string
	Clear() error
}

// APIError is the normalized error shape for all backend failures.
type APIError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("API error %d: %s", e.Code, e.Message)
	}
	return e.Message
}

// IsUnauthorized reports whether the error is a credential rejection.
func (e *APIError) IsUnauthorized() bool {
	return e.Code == http.StatusUnauthorized
}

// ChatReply is the success shape of POST /ai/chat.
type ChatReply struct {
	MessageID string `json:"message_id"`
	Response  string `json:"response"`
}

// DeepSearchResult is the success shape of POST /ai/deep-search. Results is
// kept raw because the retrieval pipeline returns partially-populated objects
// or, in some deployments, a bare string.
type DeepSearchResult struct {
	MessageID string          `json:"message_id"`
	ChatID    string          `json:"chat_id"`
	Results   json.RawMessage `json:"results"`
}

// Config holds the transport settings. A zero Timeout means no timeout; the
// backend is free to take as long as it wants absent manual interruption.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the HTTP client for the chat backend.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	creds          CredentialSource
	onUnauthorized func()
	logger         *slog.Logger
}

// NewClient builds a Client. onUnauthorized may be nil; it is called after
// credentials have been cleared following a 401.
func NewClient(cfg Config, creds CredentialSource, onUnauthorized func(), logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		httpClient:     &http.Client{Timeout: cfg.Timeout},
		creds:          creds,
		onUnauthorized: onUnauthorized,
		logger:         logger,
	}
}

// ListChats fetches the full chat list for the current user.
func (c *Client) ListChats(ctx context.Context) ([]types.Chat, error) {
	var chats []types.Chat
	if err := c.do(ctx, http.MethodGet, "/chats", nil, &chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// CreateChat requests a new chat from the backend.
func (c *Client) CreateChat(ctx context.Context) (types.Chat, error) {
	var chat types.Chat
	if err := c.do(ctx, http.MethodPost, "/chats", nil, &chat); err != nil {
		return types.Chat{}, err
	}
	return chat, nil
}

// ChatMessages fetches the message sequence for one chat.
func (c *Client) ChatMessages(ctx context.Context, chatID string) ([]types.Message, error) {
	var messages []types.Message
	if err := c.do(ctx, http.MethodGet, "/chats/"+chatID+"/messages", nil, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

// SendChat submits a user message for completion in the given chat.
func (c *Client) SendChat(ctx context.Context, message, chatID string) (ChatReply, error) {
	body := map[string]string{"message": message, "chat_id": chatID}
	var reply ChatReply
	if err := c.do(ctx, http.MethodPost, "/ai/chat", body, &reply); err != nil {
		return ChatReply{}, err
	}
	return reply, nil
}

// DeleteChat deletes a chat and its messages.
func (c *Client) DeleteChat(ctx context.Context, chatID string) error {
	return c.do(ctx, http.MethodDelete, "/chats/"+chatID, nil, nil)
}

// DeepSearch runs a retrieval-augmented query outside any existing chat.
func (c *Client) DeepSearch(ctx context.Context, query string) (DeepSearchResult, error) {
	body := map[string]string{"query": query}
	var result DeepSearchResult
	if err := c.do(ctx, http.MethodPost, "/ai/deep-search", body, &result); err != nil {
		return DeepSearchResult{}, err
	}
	return result, nil
}

// do issues one request and decodes the response into out (unless out is nil).
// Context cancellation is passed through untouched so callers can tell a
// cancelled request apart from a failed one.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &types.AppError{Op: "encode request", Message: "failed to marshal request body", Err: err}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &types.AppError{Op: "build request", Message: "failed to create API request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.creds.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			// Surface the cancellation itself, not the wrapped transport error.
			return ctx.Err()
		}
		return &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.logger.Warn("credentials rejected, clearing token", "path", path)
		if err := c.creds.Clear(); err != nil {
			c.logger.Error("failed to clear credentials", "error", err)
		}
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return &APIError{Code: resp.StatusCode, Message: "authentication required"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.decodeError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Message: fmt.Sprintf("failed to decode response: %v", err)}
	}
	return nil
}

// decodeError extracts the backend's error message. The backend reports
// {"error": "..."}; older endpoints used {"message": "..."}.
func (c *Client) decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	msg := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Error != "" {
			msg = body.Error
		} else if body.Message != "" {
			msg = body.Message
		}
	}
	if msg == "" {
		msg = fmt.Sprintf("API returned status %d", resp.StatusCode)
	}
	return &APIError{Code: resp.StatusCode, Message: msg}
}
