package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCreds struct {
	token   string
	cleared bool
}

func (f *fakeCreds) Token() string { return f.token }

func (f *fakeCreds) Clear() error {
	f.cleared = true
	f.token = ""
	return nil
}

func newTestClient(t *testing.T, handler http.HandlerFunc, creds *fakeCreds, onUnauthorized func()) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(Config{BaseURL: server.URL}, creds, onUnauthorized, nil)
}

func TestClientAttachesBearerToken(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}, &fakeCreds{token: "tok-123"}, nil)

	_, err := client.ListChats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok-123", gotAuth)
}

func TestClientOmitsAuthorizationWithoutToken(t *testing.T) {
	var hasAuth bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hasAuth = r.Header["Authorization"]
		w.Write([]byte(`[]`))
	}, &fakeCreds{}, nil)

	_, err := client.ListChats(context.Background())
	require.NoError(t, err)
	assert.False(t, hasAuth)
}

func TestClientSendChat(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/ai/chat", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Hello", body["message"])
		assert.Equal(t, "c1", body["chat_id"])

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message_id":"m1","response":"Hi!"}`))
	}, &fakeCreds{token: "tok"}, nil)

	reply, err := client.SendChat(context.Background(), "Hello", "c1")
	require.NoError(t, err)
	assert.Equal(t, "m1", reply.MessageID)
	assert.Equal(t, "Hi!", reply.Response)
}

func TestClientUnauthorizedClearsCredentials(t *testing.T) {
	creds := &fakeCreds{token: "stale"}
	var notified bool
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, creds, func() { notified = true })

	_, err := client.ListChats(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnauthorized())
	assert.True(t, creds.cleared)
	assert.True(t, notified)
}

func TestClientNormalizesErrorBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "error": "Message and chat_id are required"}`))
	}, &fakeCreds{token: "tok"}, nil)

	_, err := client.SendChat(context.Background(), "", "")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Code)
	assert.Equal(t, "Message and chat_id are required", apiErr.Message)
}

func TestClientErrorWithoutBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, &fakeCreds{token: "tok"}, nil)

	_, err := client.ListChats(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	assert.Contains(t, apiErr.Message, "502")
}

func TestClientDeleteChat(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNoContent)
	}, &fakeCreds{token: "tok"}, nil)

	require.NoError(t, client.DeleteChat(context.Background(), "c1"))
	assert.Equal(t, "/chats/c1", gotPath)
}

func TestClientCancellationSurfacesContextError(t *testing.T) {
	started := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server starts its background connection
		// read; otherwise it never observes the client disconnect and
		// r.Context() is never cancelled, deadlocking Server.Close.
		io.Copy(io.Discard, r.Body)
		close(started)
		<-r.Context().Done()
	}, &fakeCreds{token: "tok"}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.SendChat(ctx, "Hello", "c1")
		done <- err
	}()

	<-started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled,
			"cancellation must be distinguishable from a transport failure")
	case <-time.After(time.Second):
		t.Fatal("cancelled request did not return")
	}
}

func TestClientDeepSearchKeepsRawResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/deep-search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"chat_id":"dsc-1","results":{"rag_answer":"Sunny, 20C"}}`))
	}, &fakeCreds{token: "tok"}, nil)

	result, err := client.DeepSearch(context.Background(), "weather in Paris")
	require.NoError(t, err)
	assert.Equal(t, "dsc-1", result.ChatID)
	assert.JSONEq(t, `{"rag_answer":"Sunny, 20C"}`, string(result.Results))
}
