package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"deepchat/src/api"
	"deepchat/src/deepsearch"
	"deepchat/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeepBackend struct {
	deepSearchFunc func(ctx context.Context, query string) (api.DeepSearchResult, error)
	calls          int
}

func (f *fakeDeepBackend) DeepSearch(ctx context.Context, query string) (api.DeepSearchResult, error) {
	f.calls++
	if f.deepSearchFunc != nil {
		return f.deepSearchFunc(ctx, query)
	}
	return api.DeepSearchResult{Results: json.RawMessage(`"answer"`)}, nil
}

func newTestCoordinator(chatBackend *fakeBackend, deepBackend *fakeDeepBackend) *Coordinator {
	return NewCoordinator(
		NewStore(chatBackend, nil),
		deepsearch.NewStore(deepBackend, nil),
	)
}

func TestCoordinatorRoutesToDeepSearchWhenActive(t *testing.T) {
	chatBackend := &fakeBackend{}
	deepBackend := &fakeDeepBackend{}
	coord := newTestCoordinator(chatBackend, deepBackend)

	coord.DeepSearch().SetActive(true)
	require.NoError(t, coord.Send(context.Background(), "query"))

	assert.Equal(t, 1, deepBackend.calls)
	assert.Zero(t, chatBackend.sendCallCount(), "normal pipeline is bypassed entirely")
}

func TestCoordinatorRoutesToChatWhenInactive(t *testing.T) {
	chatBackend := &fakeBackend{}
	deepBackend := &fakeDeepBackend{}
	coord := newTestCoordinator(chatBackend, deepBackend)

	require.NoError(t, coord.Send(context.Background(), "hello"))

	assert.Equal(t, 1, chatBackend.sendCallCount())
	assert.Zero(t, deepBackend.calls)
}

func TestCoordinatorActiveMessagesFollowsMode(t *testing.T) {
	chatBackend := &fakeBackend{
		chatMessagesFunc: func(ctx context.Context, chatID string) ([]types.Message, error) {
			return []types.Message{{ID: "chat-m1", Content: "in chat"}}, nil
		},
	}
	deepBackend := &fakeDeepBackend{}
	coord := newTestCoordinator(chatBackend, deepBackend)

	require.NoError(t, coord.Session().SelectChat(context.Background(), "c1"))
	require.NoError(t, coord.Send(context.Background(), "hello"))

	coord.DeepSearch().SetActive(true)
	require.NoError(t, coord.Send(context.Background(), "query"))

	deepMessages := coord.ActiveMessages()
	require.Len(t, deepMessages, 2)
	assert.Equal(t, "query", deepMessages[0].Content)

	coord.DeepSearch().SetActive(false)
	chatMessages := coord.ActiveMessages()
	require.Len(t, chatMessages, 3)
	assert.Equal(t, "chat-m1", chatMessages[0].ID)
}

func TestDeepSearchSendNotBlockedByChatGeneration(t *testing.T) {
	release := make(chan struct{})
	chatBackend := &fakeBackend{
		sendChatFunc: func(ctx context.Context, message, chatID string) (api.ChatReply, error) {
			<-release
			return api.ChatReply{MessageID: "m1", Response: "done"}, nil
		},
	}
	deepBackend := &fakeDeepBackend{}
	coord := newTestCoordinator(chatBackend, deepBackend)
	require.NoError(t, coord.Session().SelectChat(context.Background(), "c1"))

	done := make(chan error, 1)
	go func() { done <- coord.Send(context.Background(), "slow chat send") }()
	require.Eventually(t, coord.Session().IsGenerating, time.Second, time.Millisecond)

	// Deep-search sends are checked before the generation guard, so the
	// in-flight chat generation must not reject this.
	coord.DeepSearch().SetActive(true)
	require.NoError(t, coord.Send(context.Background(), "independent query"))
	assert.Equal(t, 1, deepBackend.calls)

	close(release)
	require.NoError(t, <-done)
}
